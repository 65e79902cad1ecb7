package service

import (
	"context"
	"errors"
	"fmt"
	"mime"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prolar/internal/apperrors"
	"prolar/internal/metrics"
	"prolar/internal/models"
	"prolar/internal/storage"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// FileResult is the outcome for one submitted file. Image is set only when
// the file was uploaded and appended to the pending list.
type FileResult struct {
	Filename string               `json:"filename"`
	Image    *models.PendingImage `json:"image,omitempty"`
	Err      error                `json:"-"`
}

type UploadService interface {
	OpenDraft(ctx context.Context, ownerID string) Draft
	GetDraft(ctx context.Context, draftID, ownerID string) (Draft, error)
	AcceptFiles(ctx context.Context, draftID, ownerID string, files []models.UploadFile) ([]FileResult, error)
	RemoveImage(ctx context.Context, draftID, ownerID, name string) error
	Preview(ctx context.Context, draftID, ownerID, name string) (models.PendingImage, error)
	Discard(ctx context.Context, draftID, ownerID string) error
}

type uploadService struct {
	drafts      *DraftStore
	storage     storage.Storage
	metrics     *metrics.Metrics
	concurrency int
	log         *zap.Logger
}

func NewUploadService(drafts *DraftStore, store storage.Storage, m *metrics.Metrics, concurrency int, log *zap.Logger) UploadService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &uploadService{
		drafts:      drafts,
		storage:     store,
		metrics:     m,
		concurrency: concurrency,
		log:         log,
	}
}

func (s *uploadService) OpenDraft(_ context.Context, ownerID string) Draft {
	return s.drafts.Open(ownerID)
}

func (s *uploadService) GetDraft(_ context.Context, draftID, ownerID string) (Draft, error) {
	return s.drafts.Get(draftID, ownerID)
}

type uploadOutcome struct {
	index int
	image models.PendingImage
	err   error
}

// AcceptFiles evaluates every file on its own. Accepted files upload
// concurrently; a single collector appends finished uploads to the draft in
// the order they complete.
func (s *uploadService) AcceptFiles(ctx context.Context, draftID, ownerID string, files []models.UploadFile) ([]FileResult, error) {
	ctx, span := tracer.Start(ctx, "UploadService.AcceptFiles",
		trace.WithAttributes(attribute.String("draft.id", draftID), attribute.Int("files", len(files))))
	defer span.End()

	if _, err := s.drafts.Get(draftID, ownerID); err != nil {
		return nil, err
	}

	results := make([]FileResult, len(files))
	outcomes := make(chan uploadOutcome)
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		for out := range outcomes {
			if out.err == nil {
				if err := s.drafts.Append(draftID, ownerID, out.image); err != nil {
					s.cleanup(out.image.Image)
					out.err = err
				}
			}
			if out.err != nil {
				results[out.index].Err = out.err
				continue
			}
			img := out.image
			results[out.index].Image = &img
			s.metrics.ImagesUploaded.Inc()
		}
	}()

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for i, f := range files {
		results[i].Filename = f.Filename

		contentType, err := checkImageType(f)
		if err != nil {
			s.metrics.ImagesRejected.WithLabelValues("media_type").Inc()
			s.log.Info("file rejected", zap.String("file", f.Filename), zap.Error(err))
			results[i].Err = err
			continue
		}

		g.Go(func() error {
			img, err := s.upload(ctx, draftID, ownerID, contentType, f.Data)
			outcomes <- uploadOutcome{index: i, image: img, err: err}
			return nil
		})
	}

	_ = g.Wait()
	close(outcomes)
	<-collected

	return results, nil
}

func (s *uploadService) upload(ctx context.Context, draftID, ownerID, contentType string, data []byte) (models.PendingImage, error) {
	name := uuid.New().String()
	path := models.ImagePath(ownerID, name)

	ref, err := s.storage.Upload(ctx, path, contentType, data)
	if err != nil {
		s.log.Error("image upload failed", zap.String("path", path), zap.Error(err))
		return models.PendingImage{}, err
	}

	url, err := s.storage.GetDownloadURL(ctx, ref)
	if err != nil {
		s.log.Error("image url lookup failed", zap.String("path", path), zap.Error(err))
		s.cleanup(models.Image{Name: name, UID: ownerID})
		return models.PendingImage{}, err
	}

	return models.PendingImage{
		Image:       models.Image{Name: name, UID: ownerID, URL: url},
		PreviewURL:  previewURL(draftID, name),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// cleanup removes an object that made it to storage but not into a draft.
func (s *uploadService) cleanup(img models.Image) {
	ctx := context.Background()
	if err := s.storage.Delete(ctx, img.Path()); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.log.Warn("orphaned upload left in storage", zap.String("path", img.Path()), zap.Error(err))
	}
}

// RemoveImage deletes the stored object first. When that fails the image
// stays pending so the caller can retry.
func (s *uploadService) RemoveImage(ctx context.Context, draftID, ownerID, name string) error {
	img, err := s.drafts.Image(draftID, ownerID, name)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, img.Path()); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.log.Error("pending image delete failed", zap.String("path", img.Path()), zap.Error(err))
		return fmt.Errorf("remove image %s: %w", name, err)
	}

	return s.drafts.Remove(draftID, ownerID, name)
}

func (s *uploadService) Preview(_ context.Context, draftID, ownerID, name string) (models.PendingImage, error) {
	return s.drafts.Image(draftID, ownerID, name)
}

// Discard forgets the draft. Objects already uploaded stay in storage.
func (s *uploadService) Discard(_ context.Context, draftID, ownerID string) error {
	return s.drafts.Discard(draftID, ownerID)
}

func checkImageType(f models.UploadFile) (string, error) {
	declared, _, err := mime.ParseMediaType(f.ContentType)
	if err != nil || !allowedImageTypes[declared] {
		return "", fmt.Errorf("%s: %q: %w", f.Filename, f.ContentType, apperrors.ErrUnsupportedMediaType)
	}

	if len(f.Data) == 0 {
		return "", fmt.Errorf("%s: empty file: %w", f.Filename, apperrors.ErrUnsupportedMediaType)
	}

	detected := mimetype.Detect(f.Data)
	if !detected.Is(declared) {
		return "", fmt.Errorf("%s: declared %s but content is %s: %w",
			f.Filename, declared, detected.String(), apperrors.ErrUnsupportedMediaType)
	}
	return declared, nil
}

func previewURL(draftID, name string) string {
	return "/api/drafts/" + draftID + "/images/" + name + "/preview"
}
