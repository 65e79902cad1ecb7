package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prolar/internal/apperrors"
	"prolar/internal/events"
	"prolar/internal/metrics"
	"prolar/internal/repository"
	"prolar/internal/session"
	"prolar/internal/storage"
)

type DeletionState string

const (
	DeletionRequested       DeletionState = "requested"
	DeletionDocumentDeleted DeletionState = "document_deleted"
	DeletionImagesDeleting  DeletionState = "images_deleting"
	DeletionCompleted       DeletionState = "completed"
	DeletionFailed          DeletionState = "failed"
)

type ImageFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// DeletionReport describes one cascade. ImageFailures lists objects that
// stayed in storage; nothing retries them.
type DeletionReport struct {
	ListingID     string         `json:"listingId"`
	State         DeletionState  `json:"state"`
	ImagesDeleted int            `json:"imagesDeleted"`
	ImageFailures []ImageFailure `json:"imageFailures"`
}

type DeletionService interface {
	Delete(ctx context.Context, listingID string, requester session.Session) (*DeletionReport, error)
}

type deletionService struct {
	repo      repository.ListingRepository
	storage   storage.Storage
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewDeletionService(repo repository.ListingRepository, store storage.Storage, publisher events.Publisher,
	m *metrics.Metrics, log *zap.Logger) DeletionService {
	return &deletionService{
		repo:      repo,
		storage:   store,
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

// Delete removes the document and then every image independently. Once the
// document is gone the cascade always ends in Completed.
func (s *deletionService) Delete(ctx context.Context, listingID string, requester session.Session) (*DeletionReport, error) {
	ctx, span := tracer.Start(ctx, "DeletionService.Delete", trace.WithAttributes(attribute.String("listing.id", listingID)))
	defer span.End()

	report := &DeletionReport{ListingID: listingID, State: DeletionRequested, ImageFailures: []ImageFailure{}}

	listing, err := s.repo.GetRef(ctx, listingID)
	if err != nil {
		report.State = DeletionFailed
		return report, fmt.Errorf("delete listing: %w", err)
	}
	if listing.OwnerID != requester.UID {
		report.State = DeletionFailed
		return report, fmt.Errorf("listing %s belongs to another user: %w", listingID, apperrors.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, listingID); err != nil {
		report.State = DeletionFailed
		s.log.Error("listing delete failed", zap.String("listing_id", listingID), zap.Error(err))
		return report, fmt.Errorf("delete listing: %w", err)
	}
	report.State = DeletionDocumentDeleted
	s.metrics.ListingsDeleted.Inc()

	// The document is gone, so the cascade must not stop with the request.
	cascadeCtx := context.WithoutCancel(ctx)
	report.State = DeletionImagesDeleting
	s.deleteImages(cascadeCtx, listing, report)
	report.State = DeletionCompleted

	s.log.Info("listing deleted",
		zap.String("listing_id", listingID),
		zap.Int("images_deleted", report.ImagesDeleted),
		zap.Int("image_failures", len(report.ImageFailures)))

	if err := s.publisher.Publish(cascadeCtx, events.ListingDeletedSubject, events.ListingDeleted{
		ID:            listingID,
		OwnerID:       listing.OwnerID,
		ImageFailures: len(report.ImageFailures),
	}); err != nil {
		s.log.Warn("listing deleted event not published", zap.String("listing_id", listingID), zap.Error(err))
	}

	return report, nil
}

func (s *deletionService) deleteImages(ctx context.Context, listing *repository.ListingRef, report *DeletionReport) {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	for _, img := range listing.Images {
		g.Go(func() error {
			err := s.storage.Delete(ctx, img.Path())
			if errors.Is(err, apperrors.ErrNotFound) {
				err = nil
			}

			mu.Lock()
			if err == nil {
				report.ImagesDeleted++
			} else {
				report.ImageFailures = append(report.ImageFailures, ImageFailure{Path: img.Path(), Error: err.Error()})
			}
			mu.Unlock()

			if err != nil {
				s.imageDeleteFailed(ctx, listing.ID, img.Path(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *deletionService) imageDeleteFailed(ctx context.Context, listingID, path string, err error) {
	s.metrics.ImageDeleteFailures.Inc()
	s.log.Error("image left in storage after listing delete",
		zap.String("listing_id", listingID), zap.String("path", path), zap.Error(err))

	if perr := s.publisher.Publish(ctx, events.ImageDeleteFailedSubject, events.ImageDeleteFailed{
		ListingID: listingID,
		Path:      path,
		Error:     err.Error(),
	}); perr != nil {
		s.log.Warn("image delete failure not published", zap.String("path", path), zap.Error(perr))
	}
}
