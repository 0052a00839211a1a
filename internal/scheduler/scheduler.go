// Package scheduler provides periodic execution of full analysis
// sweeps.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/wardwatch-systems/wardwatch/internal/analyzer"
)

// Scheduler runs AnalyzeAll on a fixed cadence. The pipeline is also
// invocable on demand through the HTTP surface; the scheduler only
// decides cadence.
type Scheduler struct {
	analyzer *analyzer.Analyzer
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	stopped  chan struct{}
}

// New creates a sweep scheduler.
func New(a *analyzer.Analyzer, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		analyzer: a,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start begins the scheduler loop. This should be called in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.stopped)

	s.logger.Info("sweep scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stop:
			s.logger.Info("sweep scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("sweep scheduler context cancelled")
			return
		}
	}
}

// Stop signals the scheduler to stop and waits for it to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.stopped
}

func (s *Scheduler) runSweep(ctx context.Context) {
	result, err := s.analyzer.AnalyzeAll(ctx)
	if err != nil {
		s.logger.Error("scheduled sweep failed", "error", err)
		return
	}

	s.logger.Info("scheduled sweep complete",
		"systems", result.Systems,
		"failed", len(result.Failures),
		"alerts", len(result.Alerts),
	)
	for _, f := range result.Failures {
		s.logger.Warn("system skipped during sweep",
			"system_id", f.SystemID,
			"system_name", f.SystemName,
			"kind", f.Kind,
			"error", f.Message,
		)
	}
}
