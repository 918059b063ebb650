package cache

import (
	"context"
	"errors"
	"time"

	"TrendSeg/internal/domain/models"
	pkgcache "TrendSeg/pkg/cache"
)

// VerdictCache keeps the latest verdict per symbol in a cache.Service so
// the API and other processes can answer without touching the engine.
type VerdictCache struct {
	svc pkgcache.Service
	ttl time.Duration
}

func NewVerdictCache(svc pkgcache.Service, ttl time.Duration) *VerdictCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &VerdictCache{svc: svc, ttl: ttl}
}

func (c *VerdictCache) SetVerdict(ctx context.Context, v *models.SignalVerdict) error {
	return c.svc.Set(ctx, pkgcache.GenerateKey("verdict", v.Symbol), v, c.ttl)
}

// GetVerdict returns the cached verdict for a symbol, if present.
func (c *VerdictCache) GetVerdict(ctx context.Context, symbol string) (*models.SignalVerdict, bool, error) {
	var v models.SignalVerdict
	err := c.svc.Get(ctx, pkgcache.GenerateKey("verdict", symbol), &v)
	if err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &v, true, nil
}
