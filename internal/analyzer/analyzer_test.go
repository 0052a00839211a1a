package analyzer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardwatch-systems/wardwatch/internal/ingest"
	"github.com/wardwatch-systems/wardwatch/internal/messaging"
	"github.com/wardwatch-systems/wardwatch/internal/models"
	"github.com/wardwatch-systems/wardwatch/internal/registry"
	"github.com/wardwatch-systems/wardwatch/internal/repository"
	"github.com/wardwatch-systems/wardwatch/internal/rules"
)

type mockAdapter struct {
	fetchFunc func(ctx context.Context, system *models.SystemDescriptor, opts ingest.FetchOptions) ([]models.LogRecord, error)
}

func (m *mockAdapter) Fetch(ctx context.Context, system *models.SystemDescriptor, opts ingest.FetchOptions) ([]models.LogRecord, error) {
	return m.fetchFunc(ctx, system, opts)
}

type capturingPublisher struct {
	mu        sync.Mutex
	alerts    []*models.ThreatAlert
	summaries []*messaging.SweepSummary
}

func (p *capturingPublisher) PublishAlertCreated(ctx context.Context, alert *models.ThreatAlert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
	return nil
}

func (p *capturingPublisher) PublishSweepCompleted(ctx context.Context, summary *messaging.SweepSummary) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, summary)
	return nil
}

func (p *capturingPublisher) Close() {}

func boolPtr(b bool) *bool { return &b }

func registerSystems(t *testing.T, reg registry.Registry, names ...string) []*models.SystemDescriptor {
	t.Helper()
	systems := make([]*models.SystemDescriptor, 0, len(names))
	for i, name := range names {
		s := &models.SystemDescriptor{
			ID:      "sys-" + string(rune('a'+i)),
			Name:    name,
			Address: "http://" + name + ".local",
			Type:    "device",
			Status:  models.SystemStatusActive,
		}
		require.NoError(t, reg.Register(context.Background(), s))
		systems = append(systems, s)
	}
	return systems
}

func failedLoginRecord(id string, ts time.Time) models.LogRecord {
	return models.LogRecord{
		ID:        id,
		EventType: "login_failed",
		Timestamp: ts,
		UserID:    "u-1",
		Details:   models.RecordDetails{Success: boolPtr(false)},
	}
}

func newTestAnalyzer(adapter ingest.Adapter, alerts repository.Repository, systems registry.Registry, pub messaging.Publisher) *Analyzer {
	return New(Deps{
		Adapter:   adapter,
		Evaluator: rules.NewEvaluator(rules.BuiltinRegistry(rules.DefaultConfig()), nil),
		Alerts:    alerts,
		Systems:   systems,
		Publisher: pub,
	})
}

func TestAnalyzeSingleSystem(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	systems := registerSystems(t, reg, "ecg-monitor")
	repo := repository.NewInMemoryRepository()
	pub := &capturingPublisher{}

	ts := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	adapter := &mockAdapter{
		fetchFunc: func(ctx context.Context, system *models.SystemDescriptor, opts ingest.FetchOptions) ([]models.LogRecord, error) {
			return []models.LogRecord{failedLoginRecord("rec-1", ts)}, nil
		},
	}

	a := newTestAnalyzer(adapter, repo, reg, pub)
	alerts, err := a.Analyze(context.Background(), systems[0].ID)

	require.NoError(t, err)
	// Failed login at 03:00 trips failed-auth and off-hours.
	require.Len(t, alerts, 2)
	for _, alert := range alerts {
		assert.NotEmpty(t, alert.ID)
		assert.Equal(t, systems[0].ID, alert.SystemID)
		assert.Equal(t, "ecg-monitor", alert.SystemName)
		assert.Equal(t, "rec-1", alert.SourceRecordID)
		assert.Equal(t, ts, alert.SourceTimestamp)
		assert.False(t, alert.Resolved)
	}

	stored, err := repo.List(context.Background(), repository.Filter{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Len(t, pub.alerts, 2)

	// A successful unit marks the system healthy and synced.
	system, err := reg.Get(context.Background(), systems[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.SystemStatusActive, system.Status)
	require.NotNil(t, system.LastSyncAt)
}

func TestAnalyzeUnknownSystem(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	a := newTestAnalyzer(&mockAdapter{}, repository.NewInMemoryRepository(), reg, nil)

	_, err := a.Analyze(context.Background(), "missing")
	assert.ErrorIs(t, err, registry.ErrSystemNotFound)
}

func TestAnalyzeFetchErrorMarksSystem(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	systems := registerSystems(t, reg, "infusion-pump")
	repo := repository.NewInMemoryRepository()

	adapter := &mockAdapter{
		fetchFunc: func(ctx context.Context, system *models.SystemDescriptor, opts ingest.FetchOptions) ([]models.LogRecord, error) {
			return nil, &ingest.Error{Kind: ingest.KindUnreachable, SystemID: system.ID, Err: errors.New("connection refused")}
		},
	}

	a := newTestAnalyzer(adapter, repo, reg, nil)
	_, err := a.Analyze(context.Background(), systems[0].ID)

	require.Error(t, err)
	assert.Equal(t, ingest.KindUnreachable, ingest.KindOf(err))

	system, err := reg.Get(context.Background(), systems[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.SystemStatusError, system.Status)
	// A failed sync must not advance the last-sync marker.
	assert.Nil(t, system.LastSyncAt)
}

// One unreachable system is reported in Failures while the healthy
// systems' alerts still come back.
func TestAnalyzeAllIsolatesFailures(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	systems := registerSystems(t, reg, "alpha", "bravo", "charlie")
	repo := repository.NewInMemoryRepository()
	pub := &capturingPublisher{}

	base := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	adapter := &mockAdapter{
		fetchFunc: func(ctx context.Context, system *models.SystemDescriptor, opts ingest.FetchOptions) ([]models.LogRecord, error) {
			switch system.Name {
			case "bravo":
				return nil, &ingest.Error{Kind: ingest.KindUnreachable, SystemID: system.ID, Err: errors.New("dial tcp: timeout")}
			case "alpha":
				return []models.LogRecord{failedLoginRecord("rec-a", base.Add(time.Minute))}, nil
			default:
				return []models.LogRecord{failedLoginRecord("rec-c", base.Add(2 * time.Minute))}, nil
			}
		},
	}

	a := newTestAnalyzer(adapter, repo, reg, pub)
	result, err := a.AnalyzeAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, result.Systems)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, systems[1].ID, result.Failures[0].SystemID)
	assert.Equal(t, "bravo", result.Failures[0].SystemName)
	assert.Equal(t, ingest.KindUnreachable, result.Failures[0].Kind)

	// Two healthy systems, two findings each (failed auth + off-hours).
	assert.Len(t, result.Alerts, 4)

	require.Len(t, pub.summaries, 1)
	assert.Equal(t, 3, pub.summaries[0].SystemsTotal)
	assert.Equal(t, 1, pub.summaries[0].SystemsFailed)
	assert.Equal(t, 4, pub.summaries[0].AlertsCreated)
}

func TestAnalyzeAllMergesNewestFirst(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	registerSystems(t, reg, "alpha", "bravo")
	repo := repository.NewInMemoryRepository()

	base := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	adapter := &mockAdapter{
		fetchFunc: func(ctx context.Context, system *models.SystemDescriptor, opts ingest.FetchOptions) ([]models.LogRecord, error) {
			if system.Name == "alpha" {
				return []models.LogRecord{
					failedLoginRecord("rec-1", base),
					failedLoginRecord("rec-2", base.Add(10*time.Minute)),
				}, nil
			}
			return []models.LogRecord{failedLoginRecord("rec-3", base.Add(5 * time.Minute))}, nil
		},
	}

	a := newTestAnalyzer(adapter, repo, reg, nil)
	result, err := a.AnalyzeAll(context.Background())

	require.NoError(t, err)
	require.NotEmpty(t, result.Alerts)
	for i := 1; i < len(result.Alerts); i++ {
		assert.False(t, result.Alerts[i-1].SourceTimestamp.Before(result.Alerts[i].SourceTimestamp),
			"alerts must be ordered newest first")
	}
}

// Re-analyzing the same records must not duplicate stored alerts.
func TestAnalyzeIsIdempotent(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	systems := registerSystems(t, reg, "ecg-monitor")
	repo := repository.NewInMemoryRepository()

	ts := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	adapter := &mockAdapter{
		fetchFunc: func(ctx context.Context, system *models.SystemDescriptor, opts ingest.FetchOptions) ([]models.LogRecord, error) {
			return []models.LogRecord{failedLoginRecord("rec-1", ts)}, nil
		},
	}

	a := newTestAnalyzer(adapter, repo, reg, nil)

	_, err := a.Analyze(context.Background(), systems[0].ID)
	require.NoError(t, err)
	_, err = a.Analyze(context.Background(), systems[0].ID)
	require.NoError(t, err)

	stored, err := repo.List(context.Background(), repository.Filter{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestAnalyzeAllCancelledContext(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	registerSystems(t, reg, "alpha", "bravo", "charlie")
	repo := repository.NewInMemoryRepository()

	var fetches int
	adapter := &mockAdapter{
		fetchFunc: func(ctx context.Context, system *models.SystemDescriptor, opts ingest.FetchOptions) ([]models.LogRecord, error) {
			fetches++
			return nil, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(Deps{
		Adapter:     adapter,
		Evaluator:   rules.NewEvaluator(rules.BuiltinRegistry(rules.DefaultConfig()), nil),
		Alerts:      repo,
		Systems:     reg,
		Concurrency: 1,
	})
	result, err := a.AnalyzeAll(ctx)

	require.NoError(t, err)
	assert.Equal(t, 0, fetches, "no new units after cancellation")
	assert.Empty(t, result.Alerts)
	assert.Equal(t, 0, result.Systems, "no units launched, so none attempted")
}

// Cancellation is cooperative between systems: a unit already in
// flight finishes its fetch, its alerts are kept, and the system
// stays healthy.
func TestAnalyzeAllFinishesInFlightUnit(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	systems := registerSystems(t, reg, "alpha")
	repo := repository.NewInMemoryRepository()

	started := make(chan struct{})
	release := make(chan struct{})
	ts := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	adapter := &mockAdapter{
		fetchFunc: func(ctx context.Context, system *models.SystemDescriptor, opts ingest.FetchOptions) ([]models.LogRecord, error) {
			close(started)
			<-release
			// A context-aware source aborts on cancellation; the
			// unit's context must not be cancelled with the sweep.
			if err := ctx.Err(); err != nil {
				return nil, &ingest.Error{Kind: ingest.KindUnreachable, SystemID: system.ID, Err: err}
			}
			return []models.LogRecord{failedLoginRecord("rec-1", ts)}, nil
		},
	}

	a := New(Deps{
		Adapter:     adapter,
		Evaluator:   rules.NewEvaluator(rules.BuiltinRegistry(rules.DefaultConfig()), nil),
		Alerts:      repo,
		Systems:     reg,
		Concurrency: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	var result *SweepResult
	var sweepErr error
	done := make(chan struct{})
	go func() {
		result, sweepErr = a.AnalyzeAll(ctx)
		close(done)
	}()

	<-started
	cancel()
	close(release)
	<-done

	require.NoError(t, sweepErr)
	assert.Equal(t, 1, result.Systems)
	assert.Empty(t, result.Failures, "the in-flight unit must not be reported as failed")
	// Failed login at 03:00 trips failed-auth and off-hours.
	assert.Len(t, result.Alerts, 2)

	system, err := reg.Get(context.Background(), systems[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.SystemStatusActive, system.Status)
	require.NotNil(t, system.LastSyncAt)
}

func TestAnalyzeSaveErrorReported(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	systems := registerSystems(t, reg, "ecg-monitor")

	adapter := &mockAdapter{
		fetchFunc: func(ctx context.Context, system *models.SystemDescriptor, opts ingest.FetchOptions) ([]models.LogRecord, error) {
			return []models.LogRecord{failedLoginRecord("rec-1", time.Now().UTC())}, nil
		},
	}
	repo := &failingRepository{err: errors.New("pool exhausted")}

	a := newTestAnalyzer(adapter, repo, reg, nil)
	_, err := a.Analyze(context.Background(), systems[0].ID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save alerts")
	assert.Equal(t, ingest.Kind(""), ingest.KindOf(err))

	system, getErr := reg.Get(context.Background(), systems[0].ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.SystemStatusError, system.Status)
}

type failingRepository struct {
	err error
}

func (r *failingRepository) Save(ctx context.Context, alerts []*models.ThreatAlert) (int, error) {
	return 0, r.err
}

func (r *failingRepository) List(ctx context.Context, filter repository.Filter) ([]*models.ThreatAlert, error) {
	return nil, r.err
}

func (r *failingRepository) Resolve(ctx context.Context, id string) error {
	return r.err
}

func (r *failingRepository) Close() error { return nil }
