package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"prolar/internal/apperrors"
	"prolar/internal/models"
)

// Draft is one open creation form and its pending image list. It only lives
// in memory and is gone after submit, abandon or DraftTTL of inactivity.
type Draft struct {
	ID        string                `json:"id"`
	OwnerID   string                `json:"ownerId"`
	Images    []models.PendingImage `json:"images"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

func (d Draft) StoredImages() []models.Image {
	out := make([]models.Image, 0, len(d.Images))
	for _, img := range d.Images {
		out = append(out, img.Image)
	}
	return out
}

type DraftStore struct {
	mu     sync.Mutex
	drafts map[string]*Draft
	ttl    time.Duration
	now    func() time.Time
}

func NewDraftStore(ttl time.Duration) *DraftStore {
	return &DraftStore{
		drafts: make(map[string]*Draft),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *DraftStore) Open(ownerID string) Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &Draft{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Images:    []models.PendingImage{},
		UpdatedAt: s.now(),
	}
	s.drafts[d.ID] = d
	return copyDraft(d)
}

func (s *DraftStore) Get(id, ownerID string) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookup(id, ownerID)
	if err != nil {
		return Draft{}, err
	}
	return copyDraft(d), nil
}

// Append adds img at the end of the pending list.
func (s *DraftStore) Append(id, ownerID string, img models.PendingImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookup(id, ownerID)
	if err != nil {
		return err
	}
	d.Images = append(d.Images, img)
	d.UpdatedAt = s.now()
	return nil
}

// Image returns the pending image called name, including its raw bytes.
func (s *DraftStore) Image(id, ownerID, name string) (models.PendingImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookup(id, ownerID)
	if err != nil {
		return models.PendingImage{}, err
	}
	for _, img := range d.Images {
		if img.Name == name {
			return img, nil
		}
	}
	return models.PendingImage{}, fmt.Errorf("image %s: %w", name, apperrors.ErrNotFound)
}

func (s *DraftStore) Remove(id, ownerID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookup(id, ownerID)
	if err != nil {
		return err
	}
	for i, img := range d.Images {
		if img.Name == name {
			d.Images = append(d.Images[:i:i], d.Images[i+1:]...)
			d.UpdatedAt = s.now()
			return nil
		}
	}
	return fmt.Errorf("image %s: %w", name, apperrors.ErrNotFound)
}

func (s *DraftStore) Discard(id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(id, ownerID); err != nil {
		return err
	}
	delete(s.drafts, id)
	return nil
}

// Sweep drops drafts idle for longer than the TTL and returns how many went.
func (s *DraftStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, d := range s.drafts {
		if s.expired(d) {
			delete(s.drafts, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (s *DraftStore) Run(ctx context.Context, interval time.Duration, onSweep func(int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}

func (s *DraftStore) lookup(id, ownerID string) (*Draft, error) {
	d, ok := s.drafts[id]
	if !ok || s.expired(d) {
		return nil, fmt.Errorf("draft %s: %w", id, apperrors.ErrNotFound)
	}
	if d.OwnerID != ownerID {
		return nil, fmt.Errorf("draft %s: %w", id, apperrors.ErrForbidden)
	}
	return d, nil
}

func (s *DraftStore) expired(d *Draft) bool {
	return s.ttl > 0 && s.now().Sub(d.UpdatedAt) > s.ttl
}

func copyDraft(d *Draft) Draft {
	out := *d
	out.Images = append([]models.PendingImage(nil), d.Images...)
	if out.Images == nil {
		out.Images = []models.PendingImage{}
	}
	return out
}
