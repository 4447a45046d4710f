package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chat-commerce/internal/models"
	"chat-commerce/internal/util"

	"go.uber.org/zap"
)

// CatalogStore is the authoritative product source behind the cache
type CatalogStore interface {
	GetSellableProducts(ctx context.Context, businessID int64) ([]models.Product, error)
}

// CacheBackend stores cached catalog artifacts with a TTL
type CacheBackend interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// CatalogProvider is what conversational components see: the catalog plus
// synchronous invalidation after stock mutations
type CatalogProvider interface {
	Get(ctx context.Context, businessID int64) (*models.Catalog, error)
	Invalidate(ctx context.Context, businessID int64) error
}

// CatalogCache is a read-through cache of the sellable-product list and the
// alias lookup table for a business
type CatalogCache struct {
	store  CatalogStore
	cache  CacheBackend
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalogCache creates a catalog cache with the given TTL
func NewCatalogCache(store CatalogStore, cache CacheBackend, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: util.GetLogger(),
	}
}

func catalogKey(businessID int64) string {
	return fmt.Sprintf("catalog:%d", businessID)
}

// Get returns the catalog for a business, populating from the product store
// on a miss
func (c *CatalogCache) Get(ctx context.Context, businessID int64) (*models.Catalog, error) {
	var catalog models.Catalog
	hit, err := c.cache.GetJSON(ctx, catalogKey(businessID), &catalog)
	if err != nil {
		c.logger.Warn("Catalog cache read failed, falling back to store",
			zap.Int64("business_id", businessID),
			zap.Error(err))
	}
	if hit {
		util.CatalogCacheHits.Inc()
		return &catalog, nil
	}
	util.CatalogCacheMisses.Inc()

	products, err := c.store.GetSellableProducts(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	catalog = models.Catalog{
		Products: make([]models.CatalogEntry, 0, len(products)),
		Aliases:  make(map[string]models.AliasTarget),
	}
	for _, p := range products {
		catalog.Products = append(catalog.Products, models.CatalogEntry{
			ProductID: p.ID,
			Name:      p.Name,
			NameLocal: p.NameLocal,
			Unit:      p.Unit,
			Price:     p.Price,
			GSTRate:   p.GSTRate,
			InStock:   p.CurrentStock > 0,
			Stock:     p.CurrentStock,
			Aliases:   p.Aliases,
		})
		for _, alias := range p.Aliases {
			catalog.Aliases[strings.ToLower(alias)] = models.AliasTarget{
				ProductID: p.ID,
				Name:      p.Name,
			}
		}
		catalog.Aliases[strings.ToLower(p.Name)] = models.AliasTarget{
			ProductID: p.ID,
			Name:      p.Name,
		}
	}

	if err := c.cache.SetJSON(ctx, catalogKey(businessID), &catalog, c.ttl); err != nil {
		c.logger.Warn("Failed to populate catalog cache",
			zap.Int64("business_id", businessID),
			zap.Error(err))
	}

	c.logger.Info("Catalog loaded",
		zap.Int64("business_id", businessID),
		zap.Int("products", len(catalog.Products)))
	return &catalog, nil
}

// Invalidate removes the cached catalog so the next read reflects the
// current stock. Callers that mutate stock must invalidate before returning.
func (c *CatalogCache) Invalidate(ctx context.Context, businessID int64) error {
	if err := c.cache.Del(ctx, catalogKey(businessID)); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return nil
}
