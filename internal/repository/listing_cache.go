package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"prolar/internal/cache"
	"prolar/internal/models"
)

// CachedListingRepository reads single listings through a cache. Listing
// documents are never updated in place, so only Delete has to invalidate.
// GetRef is not cached.
type CachedListingRepository struct {
	ListingRepository
	cache   cache.Cache
	ttl     time.Duration
	lookups *prometheus.CounterVec
	log     *zap.Logger
}

func NewCachedListingRepository(inner ListingRepository, c cache.Cache, ttl time.Duration, lookups *prometheus.CounterVec, log *zap.Logger) *CachedListingRepository {
	return &CachedListingRepository{
		ListingRepository: inner,
		cache:             c,
		ttl:               ttl,
		lookups:           lookups,
		log:               log,
	}
}

func listingKey(id string) string {
	return "listing:" + id
}

func (r *CachedListingRepository) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	key := listingKey(id)

	data, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var listing models.Listing
		if jsonErr := json.Unmarshal(data, &listing); jsonErr == nil {
			r.count("hit")
			return &listing, nil
		}
		r.log.Warn("dropping undecodable cache entry", zap.String("key", key))
		r.count("error")
	case errors.Is(err, cache.ErrMiss):
		r.count("miss")
	default:
		r.log.Warn("listing cache unavailable", zap.String("key", key), zap.Error(err))
		r.count("error")
	}

	listing, err := r.ListingRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(listing); err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
			r.log.Warn("listing cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return listing, nil
}

// Delete evicts before and after the store delete, so one failed eviction
// does not leave the removed listing readable.
func (r *CachedListingRepository) Delete(ctx context.Context, id string) error {
	r.evict(ctx, id)
	if err := r.ListingRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.evict(ctx, id)
	return nil
}

func (r *CachedListingRepository) evict(ctx context.Context, id string) {
	if err := r.cache.Delete(ctx, listingKey(id)); err != nil {
		r.log.Warn("listing cache invalidation failed", zap.String("id", id), zap.Error(err))
	}
}

func (r *CachedListingRepository) count(result string) {
	if r.lookups != nil {
		r.lookups.WithLabelValues(result).Inc()
	}
}
