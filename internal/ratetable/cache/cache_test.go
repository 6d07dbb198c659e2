package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/railzwaylabs/ratebook/internal/metrics"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *ratetabledomain.Snapshot {
	table := ratetabledomain.RateTable{
		ID:            snowflake.ID(42),
		ProductType:   "auto",
		Version:       3,
		Name:          "Auto 2025",
		EffectiveDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
	return ratetabledomain.NewSnapshot(table, ratetabledomain.Children{
		Entries: []ratetabledomain.RateTableEntry{
			{RateTableID: 42, RateKey: "TX|25-34|standard", RateValue: decimal.RequireFromString("120.00")},
		},
		ModalFactors: []ratetabledomain.RateModalFactor{
			{RateTableID: 42, PaymentMode: ratetabledomain.PaymentAnnual, Factor: decimal.NewFromInt(1)},
		},
	})
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute, 16)

	hits := metrics.SnapshotCacheRequests.WithLabelValues(backendMemory, "hit")
	before := counterValue(t, hits)

	_, ok, err := c.Get(ctx, "auto", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, testSnapshot()))

	snap, ok, err := c.Get(ctx, "auto", 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, snap.Table.Version)
	assert.Equal(t, before+1, counterValue(t, hits))

	require.NoError(t, c.Invalidate(ctx, "auto", 3))
	_, ok, err = c.Get(ctx, "auto", 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func snapshotVersion(version int) *ratetabledomain.Snapshot {
	snap := testSnapshot()
	snap.Table.Version = version
	return snap
}

func TestMemoryCacheEvictsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(20*time.Millisecond, 0)

	for v := 1; v <= 50; v++ {
		require.NoError(t, c.Set(ctx, snapshotVersion(v)))
	}
	require.Equal(t, 50, c.Len())

	require.Eventually(t, func() bool { return c.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	for v := 1; v <= 50; v++ {
		_, ok, err := c.Get(ctx, "auto", v)
		require.NoError(t, err)
		assert.False(t, ok, "version %d", v)
	}
}

func TestMemoryCacheBoundedSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0, 2)

	require.NoError(t, c.Set(ctx, snapshotVersion(1)))
	require.NoError(t, c.Set(ctx, snapshotVersion(2)))
	// touch 1 so 2 is the least recently used
	_, ok, err := c.Get(ctx, "auto", 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, c.Set(ctx, snapshotVersion(3)))

	assert.Equal(t, 2, c.Len())
	_, ok, _ = c.Get(ctx, "auto", 2)
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "auto", 1)
	assert.True(t, ok)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	ctx := context.Background()
	c := NewRedis(client, time.Minute)

	_, ok, err := c.Get(ctx, "auto", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, testSnapshot()))
	assert.True(t, s.Exists(redisPrefix+"auto:3"))

	snap, ok, err := c.Get(ctx, "auto", 3)
	require.NoError(t, err)
	require.True(t, ok)
	rate, err := snap.Rate("TX|25-34|standard")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("120").Equal(rate))
	assert.Equal(t, snowflake.ID(42), snap.Table.ID)

	s.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "auto", 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheInvalidate(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	ctx := context.Background()
	c := NewRedis(client, 0)

	require.NoError(t, c.Set(ctx, testSnapshot()))
	require.NoError(t, c.Invalidate(ctx, "auto", 3))
	assert.False(t, s.Exists(redisPrefix+"auto:3"))
}
