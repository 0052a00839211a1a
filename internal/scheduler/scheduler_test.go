package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardwatch-systems/wardwatch/internal/analyzer"
	"github.com/wardwatch-systems/wardwatch/internal/ingest"
	"github.com/wardwatch-systems/wardwatch/internal/models"
	"github.com/wardwatch-systems/wardwatch/internal/registry"
	"github.com/wardwatch-systems/wardwatch/internal/repository"
	"github.com/wardwatch-systems/wardwatch/internal/rules"
)

type countingAdapter struct {
	fetches atomic.Int64
}

func (a *countingAdapter) Fetch(ctx context.Context, system *models.SystemDescriptor, opts ingest.FetchOptions) ([]models.LogRecord, error) {
	a.fetches.Add(1)
	return nil, nil
}

func newSweepAnalyzer(t *testing.T, adapter ingest.Adapter) *analyzer.Analyzer {
	t.Helper()

	reg := registry.NewInMemoryRegistry()
	require.NoError(t, reg.Register(context.Background(), &models.SystemDescriptor{
		ID:      "sys-1",
		Name:    "ECG Monitor",
		Address: "http://ecg.local",
		Status:  models.SystemStatusActive,
	}))

	return analyzer.New(analyzer.Deps{
		Adapter:   adapter,
		Evaluator: rules.NewEvaluator(rules.BuiltinRegistry(rules.DefaultConfig()), nil),
		Alerts:    repository.NewInMemoryRepository(),
		Systems:   reg,
	})
}

func TestSchedulerRunsImmediately(t *testing.T) {
	adapter := &countingAdapter{}
	s := New(newSweepAnalyzer(t, adapter), time.Hour, nil)

	go s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return adapter.fetches.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond, "the first sweep runs at startup, not after the first tick")
}

func TestSchedulerTicks(t *testing.T) {
	adapter := &countingAdapter{}
	s := New(newSweepAnalyzer(t, adapter), 20*time.Millisecond, nil)

	go s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return adapter.fetches.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerStop(t *testing.T) {
	adapter := &countingAdapter{}
	s := New(newSweepAnalyzer(t, adapter), 10*time.Millisecond, nil)

	go s.Start(context.Background())

	require.Eventually(t, func() bool {
		return adapter.fetches.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	after := adapter.fetches.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, adapter.fetches.Load(), "no sweeps after Stop returns")
}

func TestSchedulerContextCancel(t *testing.T) {
	adapter := &countingAdapter{}
	s := New(newSweepAnalyzer(t, adapter), time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not exit on context cancellation")
	}
}
