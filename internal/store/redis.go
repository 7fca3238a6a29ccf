package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/sales-analytics/internal/model"
)

// Cache keys for reference data.
const (
	sellersKey  = "sales:sellers"
	productsKey = "sales:products"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Only reference data (sellers, products) is cached; purchase
// records always come from the primary. A Redis failure degrades to a
// primary read.
type CachedStore struct {
	primary Store
	rdb     redis.Cmdable
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb redis.Cmdable, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Read-through (check cache first) ---

func (s *CachedStore) Sellers(ctx context.Context) ([]model.Seller, error) {
	var sellers []model.Seller
	if s.fromCache(ctx, sellersKey, &sellers) {
		return sellers, nil
	}

	sellers, err := s.primary.Sellers(ctx)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, sellersKey, sellers)
	return sellers, nil
}

func (s *CachedStore) Products(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if s.fromCache(ctx, productsKey, &products) {
		return products, nil
	}

	products, err := s.primary.Products(ctx)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, productsKey, products)
	return products, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) PurchaseRecords(ctx context.Context) ([]model.PurchaseRecord, error) {
	return s.primary.PurchaseRecords(ctx)
}

// Invalidate drops cached reference data; next reads re-populate it.
func (s *CachedStore) Invalidate(ctx context.Context) error {
	return s.rdb.Del(ctx, sellersKey, productsKey).Err()
}

// --- Cache helpers ---

func (s *CachedStore) fromCache(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("cache read failed", "key", key, "err", err)
		}
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) toCache(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		slog.Warn("cache write failed", "key", key, "err", err)
	}
}
