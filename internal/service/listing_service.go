package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"prolar/internal/apperrors"
	"prolar/internal/events"
	"prolar/internal/metrics"
	"prolar/internal/models"
	"prolar/internal/repository"
	"prolar/internal/session"
	"prolar/internal/validation"
)

type ListingService interface {
	Create(ctx context.Context, form models.ListingForm, images []models.Image, owner session.Session) (*models.Listing, error)
	SubmitDraft(ctx context.Context, draftID string, form models.ListingForm, owner session.Session) (*models.Listing, error)
	ListAll(ctx context.Context) ([]models.Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error)
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	SearchByName(ctx context.Context, prefix string) ([]models.Listing, error)
	ValidateFields(form models.ListingForm, fields ...string) apperrors.FieldErrors
}

type listingService struct {
	repo      repository.ListingRepository
	uploads   UploadService
	schema    *validation.Schema
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

func NewListingService(repo repository.ListingRepository, uploads UploadService, schema *validation.Schema,
	publisher events.Publisher, m *metrics.Metrics, log *zap.Logger) ListingService {
	return &listingService{
		repo:      repo,
		uploads:   uploads,
		schema:    schema,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// Create persists a listing with one write. Nothing is written when images is
// empty or the form fails validation.
func (s *listingService) Create(ctx context.Context, form models.ListingForm, images []models.Image, owner session.Session) (*models.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingService.Create", trace.WithAttributes(attribute.String("owner.id", owner.UID)))
	defer span.End()

	fe := s.schema.ValidateListing(form)
	if len(images) == 0 {
		if fe == nil {
			fe = apperrors.FieldErrors{}
		}
		fe["images"] = "at least one image required"
	}
	if fe != nil {
		return nil, fe
	}

	listing := &models.Listing{
		Name:        strings.ToUpper(form.Name),
		Rooms:       form.Rooms,
		Bathrooms:   form.Bathrooms,
		Garages:     form.Garages,
		Area:        form.Area,
		Price:       form.Price,
		PriceType:   models.PriceType(form.PriceType),
		City:        form.City,
		Address:     form.Address,
		PostalCode:  form.PostalCode,
		Phone:       form.Phone,
		Description: form.Description,
		CreatedAt:   s.now().UTC(),
		OwnerID:     owner.UID,
		OwnerName:   owner.Name,
		Images:      append([]models.Image(nil), images...),
	}

	id, err := s.repo.Create(ctx, listing)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("create listing: %w", err)
	}
	listing.ID = id

	s.metrics.ListingsCreated.Inc()
	s.log.Info("listing created", zap.String("listing_id", id), zap.String("owner_id", owner.UID), zap.Int("images", len(images)))

	if err := s.publisher.Publish(ctx, events.ListingCreatedSubject, events.ListingCreated{
		ID:      id,
		OwnerID: owner.UID,
		Name:    listing.Name,
		Images:  len(images),
	}); err != nil {
		s.log.Warn("listing created event not published", zap.String("listing_id", id), zap.Error(err))
	}

	return listing, nil
}

// SubmitDraft creates the listing from the draft's pending images, in draft
// order, then discards the draft.
func (s *listingService) SubmitDraft(ctx context.Context, draftID string, form models.ListingForm, owner session.Session) (*models.Listing, error) {
	draft, err := s.uploads.GetDraft(ctx, draftID, owner.UID)
	if err != nil {
		return nil, err
	}

	listing, err := s.Create(ctx, form, draft.StoredImages(), owner)
	if err != nil {
		return nil, err
	}

	if err := s.uploads.Discard(ctx, draftID, owner.UID); err != nil {
		s.log.Warn("draft not discarded after submit", zap.String("draft_id", draftID), zap.Error(err))
	}
	return listing, nil
}

func (s *listingService) ListAll(ctx context.Context) ([]models.Listing, error) {
	listings, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return listings, nil
}

func (s *listingService) ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	listings, err := s.repo.GetByOwner(ctx, ownerID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return []models.Listing{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list owner listings: %w", err)
	}
	return listings, nil
}

func (s *listingService) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return listing, nil
}

// SearchByName matches the upper-cased prefix. A blank prefix lists all.
func (s *listingService) SearchByName(ctx context.Context, prefix string) ([]models.Listing, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return s.ListAll(ctx)
	}

	listings, err := s.repo.SearchByName(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	return listings, nil
}

func (s *listingService) ValidateFields(form models.ListingForm, fields ...string) apperrors.FieldErrors {
	return s.schema.ValidateListingFields(form, fields...)
}
