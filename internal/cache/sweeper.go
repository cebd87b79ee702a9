package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs ClearExpired every ten minutes.
const DefaultSweepSchedule = "@every 10m"

// Sweeper periodically removes expired entries. Reads never depend on it.
type Sweeper struct {
	svc    *Service
	cron   *cron.Cron
	logger *slog.Logger
}

// NewSweeper schedules svc.ClearExpired on a cron schedule
// (standard five-field or descriptors such as "@every 10m").
func NewSweeper(svc *Service, schedule string, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	s := &Sweeper{
		svc:    svc,
		cron:   cron.New(),
		logger: logger,
	}
	if _, err := s.cron.AddFunc(schedule, func() { _, _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce sweeps immediately.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.svc.ClearExpired(ctx)
	if err != nil {
		s.logger.Warn("cache sweep failed", slog.String("error", err.Error()))
		return 0, err
	}
	s.logger.Debug("cache sweep complete", slog.Int64("removed", n))
	return n, nil
}

// Start begins the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish
// or for ctx to be done.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
