package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"prolar/internal/apperrors"
	"prolar/internal/events"
	"prolar/internal/models"
	"prolar/internal/repository"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	gifBytes  = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00")
)

// memoryListingRepo keeps listings in insertion order.
type memoryListingRepo struct {
	mu        sync.Mutex
	listings  []models.Listing
	creates   int
	deleteErr error
}

func (r *memoryListingRepo) Create(_ context.Context, l *models.Listing) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	stored := *l
	stored.ID = primitive.NewObjectID().Hex()
	stored.Images = append([]models.Image(nil), l.Images...)
	r.listings = append(r.listings, stored)
	return stored.ID, nil
}

func (r *memoryListingRepo) GetAll(_ context.Context) ([]models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]models.Listing{}, r.listings...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryListingRepo) GetByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	all, _ := r.GetAll(ctx)
	out := []models.Listing{}
	for _, l := range all {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memoryListingRepo) GetByID(_ context.Context, id string) (*models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.listings {
		if l.ID == id {
			found := l
			return &found, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memoryListingRepo) SearchByName(ctx context.Context, prefix string) ([]models.Listing, error) {
	all, _ := r.GetAll(ctx)
	out := []models.Listing{}
	for _, l := range all {
		if strings.HasPrefix(l.Name, prefix) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memoryListingRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for i, l := range r.listings {
		if l.ID == id {
			r.listings = append(r.listings[:i], r.listings[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r *memoryListingRepo) GetRef(ctx context.Context, id string) (*repository.ListingRef, error) {
	l, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &repository.ListingRef{ID: l.ID, OwnerID: l.OwnerID, Images: l.Images}, nil
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, path, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) GetDownloadURL(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

type published struct {
	subject string
	payload any
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{subject: subject, payload: payload})
	return p.err
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.sent))
	for _, s := range p.sent {
		out = append(out, s.subject)
	}
	return out
}

var _ events.Publisher = (*recordingPublisher)(nil)

var errBackend = apperrors.Unavailable("storage", errors.New("connection refused"))
