// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/bierstube/storefront/internal/models"
)

const productKeyPrefix = "storefront:product:"

type RedisProductCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisProductCache(client redis.UniversalClient, ttl time.Duration) *RedisProductCache {
	return &RedisProductCache{client: client, ttl: ttl}
}

func productKey(id uuid.UUID) string {
	return productKeyPrefix + id.String()
}

func (c *RedisProductCache) Get(ctx context.Context, id uuid.UUID) (*models.Product, bool) {
	raw, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).WithField("product_id", id).Warn("Product cache read failed")
		}
		return nil, false
	}

	var product models.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		logrus.WithError(err).WithField("product_id", id).Warn("Discarding undecodable cached product")
		c.Invalidate(ctx, id)
		return nil, false
	}
	return &product, true
}

func (c *RedisProductCache) Set(ctx context.Context, product *models.Product) {
	raw, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, productKey(product.ID), raw, c.ttl).Err(); err != nil {
		logrus.WithError(err).WithField("product_id", product.ID).Warn("Product cache write failed")
	}
}

func (c *RedisProductCache) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logrus.WithError(err).Warn("Product cache invalidation failed")
	}
}
