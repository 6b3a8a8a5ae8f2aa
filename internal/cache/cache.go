// internal/cache/cache.go
package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/bierstube/storefront/internal/models"
)

// ProductCache is a read-through cache for single product lookups. Misses and
// backend failures both report ok=false; callers fall back to the store.
type ProductCache interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, bool)
	Set(ctx context.Context, product *models.Product)
	Invalidate(ctx context.Context, ids ...uuid.UUID)
}

type NopProductCache struct{}

func (NopProductCache) Get(ctx context.Context, id uuid.UUID) (*models.Product, bool) {
	return nil, false
}

func (NopProductCache) Set(ctx context.Context, product *models.Product) {}

func (NopProductCache) Invalidate(ctx context.Context, ids ...uuid.UUID) {}
