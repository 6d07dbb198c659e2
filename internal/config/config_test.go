package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ratebook", cfg.AppName)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 15*time.Minute, cfg.Cache.SnapshotTTL)
	assert.Equal(t, 256, cfg.Cache.SnapshotMaxEntries)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "grpc", cfg.Observability.OTLPProtocol)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:ratebook.db")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_SNAPSHOT_TTL", "2m")
	t.Setenv("IMPORT_WATCH_DIR", "/var/lib/ratebook/inbox")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "file:ratebook.db", cfg.Database.DSN)
	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 2*time.Minute, cfg.Cache.SnapshotTTL)
	assert.Equal(t, "/var/lib/ratebook/inbox", cfg.Import.WatchDir)
}

func TestLoadRejectsRedisCacheWithoutAddr(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")

	_, err := Load()
	require.Error(t, err)
}
