package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"katalog/internal/models"
	"katalog/pkg/cache"
)

const productCacheKey = "product:%s"

// CachedProductRepository adds cache-aside reads by id in front of another
// ProductRepository. Every write through it evicts the cached entry.
type CachedProductRepository struct {
	ProductRepository
	cache cache.Client
	ttl   time.Duration
	log   *slog.Logger
}

// NewCachedProductRepository wraps inner with c.
func NewCachedProductRepository(inner ProductRepository, c cache.Client, ttl time.Duration, log *slog.Logger) *CachedProductRepository {
	return &CachedProductRepository{
		ProductRepository: inner,
		cache:             c,
		ttl:               ttl,
		log:               log,
	}
}

func cacheKey(id string) string {
	return fmt.Sprintf(productCacheKey, id)
}

// GetByID serves from the cache and fills it on a miss. Cache failures
// fall back to the store.
func (r *CachedProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	key := cacheKey(id)

	cached, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var product models.Product
		if jsonErr := json.Unmarshal([]byte(cached), &product); jsonErr == nil {
			return &product, nil
		}
		r.log.Warn("discarding unreadable cache entry", "key", key)
	case !errors.Is(err, cache.ErrCacheMiss):
		r.log.Warn("cache read failed", "key", key, "error", err)
	}

	product, err := r.ProductRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
			r.log.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return product, nil
}

func (r *CachedProductRepository) evict(ctx context.Context, id string) {
	if err := r.cache.Delete(ctx, cacheKey(id)); err != nil {
		r.log.Warn("cache eviction failed", "product_id", id, "error", err)
	}
}

// Update writes through and evicts the cached entry.
func (r *CachedProductRepository) Update(ctx context.Context, product *models.Product) error {
	err := r.ProductRepository.Update(ctx, product)
	r.evict(ctx, product.ID)
	return err
}

// Delete removes the product and its cached entry.
func (r *CachedProductRepository) Delete(ctx context.Context, id string) error {
	err := r.ProductRepository.Delete(ctx, id)
	r.evict(ctx, id)
	return err
}

// AddReview writes through and evicts the cached entry.
func (r *CachedProductRepository) AddReview(ctx context.Context, id string, review models.Review) (*models.Product, error) {
	product, err := r.ProductRepository.AddReview(ctx, id, review)
	r.evict(ctx, id)
	return product, err
}
