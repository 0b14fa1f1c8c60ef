package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper periodically discards finished builds older than the retention
// window so long-running servers do not accumulate file stores forever.
type Sweeper struct {
	scheduler gocron.Scheduler
	registry  *Registry
	interval  time.Duration
	retention time.Duration
}

// NewSweeper creates a sweeper over the given registry.
func NewSweeper(registry *Registry, interval, retention time.Duration) (*Sweeper, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("retention window must be positive")
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Sweeper{
		scheduler: s,
		registry:  registry,
		interval:  interval,
		retention: retention,
	}, nil
}

// Start begins the periodic sweep.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.sweep),
		gocron.WithName("build-retention-sweep"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sweep job: %w", err)
	}

	slog.Info("Starting retention sweeper",
		"interval", s.interval, "retention", s.retention)
	s.scheduler.Start()
	return nil
}

// Stop gracefully shuts down the sweeper.
func (s *Sweeper) Stop(ctx context.Context) error {
	slog.Info("Stopping retention sweeper")
	return s.scheduler.Shutdown()
}

func (s *Sweeper) sweep() {
	if n := s.registry.Sweep(s.retention); n > 0 {
		slog.Info("Retention sweep removed builds", "count", n)
	}
}
