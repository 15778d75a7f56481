// Package retention runs group eviction on a schedule.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/ops"
)

// Evictor is the part of the engine the scheduler drives.
type Evictor interface {
	Evict(ctx context.Context) (*ops.EvictOutput, error)
	Settings(ctx context.Context) (config.Settings, error)
}

// Scheduler runs Evict once at start and then every storageCleanupIntervalMs.
type Scheduler struct {
	evictor Evictor
	logger  *slog.Logger

	// Interval overrides the stored cleanup interval when positive.
	Interval time.Duration
}

// NewScheduler returns a scheduler for e.
func NewScheduler(e Evictor, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{evictor: e, logger: logger}
}

// Run blocks until ctx is done. Eviction failures are logged and retried on
// the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	s.RunOnce(ctx)

	timer := time.NewTimer(s.next(ctx))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("retention scheduler stopping", "reason", ctx.Err())
			return nil
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(s.next(ctx))
		}
	}
}

// RunOnce performs a single eviction pass and returns its result, or nil on failure.
func (s *Scheduler) RunOnce(ctx context.Context) *ops.EvictOutput {
	out, err := s.evictor.Evict(ctx)
	if err != nil {
		s.logger.Warn("eviction failed", "error", err)
		return nil
	}
	s.logger.Debug("eviction pass", "evicted", out.Evicted(), "remaining", out.Remaining)
	return out
}

// next reads the interval from settings so updates apply from the following tick.
func (s *Scheduler) next(ctx context.Context) time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	settings, err := s.evictor.Settings(ctx)
	if err != nil {
		s.logger.Warn("read cleanup interval", "error", err)
		settings = config.DefaultSettings()
	}
	return settings.CleanupInterval()
}
