// Package cache keeps rate table snapshots keyed by (product_type, version).
// A version's content never changes after publication, so entries only need
// to be dropped when a table is activated, deactivated or expires.
package cache

import (
	"context"
	"fmt"

	"github.com/railzwaylabs/ratebook/internal/config"
	"github.com/railzwaylabs/ratebook/internal/metrics"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Cache interface {
	Get(ctx context.Context, productType string, version int) (*ratetabledomain.Snapshot, bool, error)
	Set(ctx context.Context, snap *ratetabledomain.Snapshot) error
	Invalidate(ctx context.Context, productType string, version int) error
}

func key(productType string, version int) string {
	return fmt.Sprintf("%s:%d", productType, version)
}

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Redis *redis.Client `optional:"true"`
}

// New selects the backend named by CACHE_BACKEND.
func New(p Params) (Cache, error) {
	switch p.Cfg.Cache.Backend {
	case config.CacheBackendRedis:
		if p.Redis == nil {
			return nil, fmt.Errorf("cache backend redis requires a redis client")
		}
		p.Log.Named("ratetable.cache").Info("using redis snapshot cache")
		return NewRedis(p.Redis, p.Cfg.Cache.SnapshotTTL), nil
	default:
		return NewMemory(p.Cfg.Cache.SnapshotTTL, p.Cfg.Cache.SnapshotMaxEntries), nil
	}
}

func observe(backend, result string) {
	metrics.SnapshotCacheRequests.WithLabelValues(backend, result).Inc()
}
