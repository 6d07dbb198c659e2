// Package scheduler runs the periodic rate table jobs: snapshot cache
// warming and retirement of tables past their expiration date.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/railzwaylabs/ratebook/internal/config"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	RateTables ratetabledomain.Service
}

type Scheduler struct {
	cfg        config.SchedulerConfig
	log        *zap.Logger
	rateTables ratetabledomain.Service

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func New(p Params) *Scheduler {
	log := p.Log.Named("scheduler")
	return &Scheduler{
		cfg:        p.Cfg.Scheduler,
		log:        log,
		rateTables: p.RateTables,
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{log.Sugar()}),
			cron.SkipIfStillRunning(cronLogger{log.Sugar()}),
		)),
	}
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) (int, error)
}

func (s *Scheduler) jobs() []job {
	return []job{
		{name: "warm_snapshot_cache", schedule: s.cfg.CacheWarmSchedule, run: s.WarmCacheJob},
		{name: "expire_rate_tables", schedule: s.cfg.ExpireTablesAtSpec, run: s.ExpireTablesJob},
	}
}

// Start registers the jobs with a non-empty schedule and starts the cron
// runner. Jobs run with ctx until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enabled {
		s.log.Info("scheduler disabled")
		return nil
	}

	for _, j := range s.jobs() {
		if j.schedule == "" {
			s.log.Info("job not scheduled", zap.String("job", j.name))
			continue
		}
		if _, err := cron.ParseStandard(j.schedule); err != nil {
			return fmt.Errorf("invalid cron schedule %q for %s: %w", j.schedule, j.name, err)
		}
		j := j
		if _, err := s.cron.AddFunc(j.schedule, func() { s.runJob(ctx, j) }); err != nil {
			return fmt.Errorf("schedule %s: %w", j.name, err)
		}
		s.log.Info("job scheduled", zap.String("job", j.name), zap.String("schedule", j.schedule))
	}

	s.cron.Start()
	s.running = true
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.log.Info("scheduler stopped")
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runJob(ctx context.Context, j job) {
	started := time.Now()
	s.log.Debug("job started", zap.String("job", j.name))

	processed, err := j.run(ctx)
	if err != nil {
		s.log.Error("job failed",
			zap.String("job", j.name),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return
	}
	s.log.Info("job completed",
		zap.String("job", j.name),
		zap.Int("processed", processed),
		zap.Duration("elapsed", time.Since(started)),
	)
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
