package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/railzwaylabs/ratebook/internal/config"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTables struct {
	ratetabledomain.Service
	warmed  atomic.Int32
	expired atomic.Int32
	err     error
}

func (f *fakeTables) WarmCache(context.Context) (int, error) {
	f.warmed.Add(1)
	return 3, f.err
}

func (f *fakeTables) ExpireTables(context.Context) (int, error) {
	f.expired.Add(1)
	return 1, f.err
}

func newScheduler(cfg config.SchedulerConfig, tables ratetabledomain.Service) *Scheduler {
	return New(Params{Cfg: config.Config{Scheduler: cfg}, Log: zap.NewNop(), RateTables: tables})
}

func TestStartDisabled(t *testing.T) {
	s := newScheduler(config.SchedulerConfig{Enabled: false, CacheWarmSchedule: "* * * * *"}, &fakeTables{})
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := newScheduler(config.SchedulerConfig{Enabled: true, CacheWarmSchedule: "every minute"}, &fakeTables{})
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warm_snapshot_cache")
}

func TestStartAndStop(t *testing.T) {
	s := newScheduler(config.SchedulerConfig{
		Enabled:            true,
		CacheWarmSchedule:  "*/10 * * * *",
		ExpireTablesAtSpec: "5 0 * * *",
	}, &fakeTables{})
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.Len(t, s.cron.Entries(), 2)

	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestJobsDelegateToRateTables(t *testing.T) {
	tables := &fakeTables{}
	s := newScheduler(config.SchedulerConfig{}, tables)

	for _, j := range s.jobs() {
		s.runJob(context.Background(), j)
	}
	assert.Equal(t, int32(1), tables.warmed.Load())
	assert.Equal(t, int32(1), tables.expired.Load())

	tables.err = errors.New("db down")
	n, err := s.ExpireTablesJob(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}
