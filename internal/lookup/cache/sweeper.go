package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the sweep every five minutes.
const DefaultSweepSchedule = "@every 5m"

// Sweeper periodically removes expired entries from a store.
type Sweeper struct {
	store  Sweepable
	cron   *cron.Cron
	logger *slog.Logger
}

// NewSweeper schedules store.Sweep on spec, a cron expression or descriptor
// such as "@every 5m".
func NewSweeper(store Sweepable, spec string, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if spec == "" {
		spec = DefaultSweepSchedule
	}
	s := &Sweeper{
		store:  store,
		cron:   cron.New(),
		logger: logger,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("schedule cache sweep %q: %w", spec, err)
	}
	return s, nil
}

// Start begins the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("cache sweeper started")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("cache sweeper stopped")
}

func (s *Sweeper) run() {
	ctx := context.Background()
	removed, err := s.store.Sweep(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "cache sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.DebugContext(ctx, "cache sweep removed expired entries", "removed", removed)
	}
}

// RunOnce performs a sweep immediately.
func (s *Sweeper) RunOnce() {
	s.run()
}
