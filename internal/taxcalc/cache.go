package taxcalc

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/dariomontes/vendortax-backend/pkg/logger"
	pkgredis "github.com/dariomontes/vendortax-backend/pkg/redis"
)

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	TaxCacheKey(fingerprint string) string
}

// Cache keeps computed results under their content fingerprint. Writes are
// last-write-wins; the fingerprint already encodes every input that matters.
type Cache struct {
	store cacheStore
	ttl   time.Duration
	log   *logger.Logger
}

// NewCache builds the result cache.
func NewCache(store cacheStore, ttl time.Duration, log *logger.Logger) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &Cache{store: store, ttl: ttl, log: log}, nil
}

// Get returns the cached result for the fingerprint. Store errors degrade to
// a miss so a cache outage never blocks tax computation.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*Result, bool) {
	raw, err := c.store.Get(ctx, c.store.TaxCacheKey(fingerprint))
	if stdErrors.Is(err, pkgredis.Nil) {
		return nil, false
	}
	if err != nil {
		c.log.Warn(ctx, "tax cache read failed: "+err.Error())
		return nil, false
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.log.Warn(ctx, "tax cache entry corrupt, treating as miss")
		return nil, false
	}
	return &result, true
}

// Put stores the result under its fingerprint for the configured lifetime.
func (c *Cache) Put(ctx context.Context, fingerprint string, result *Result) {
	payload, err := json.Marshal(result)
	if err != nil {
		c.log.Warn(ctx, "tax cache encode failed: "+err.Error())
		return
	}
	if err := c.store.Set(ctx, c.store.TaxCacheKey(fingerprint), payload, c.ttl); err != nil {
		c.log.Warn(ctx, "tax cache write failed: "+err.Error())
	}
}
