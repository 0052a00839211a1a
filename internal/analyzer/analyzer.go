// Package analyzer orchestrates the pipeline: it pulls log pages from
// registered systems, runs the rule registry over each record, and
// persists the resulting threat alerts.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wardwatch-systems/wardwatch/internal/archive"
	"github.com/wardwatch-systems/wardwatch/internal/cursor"
	"github.com/wardwatch-systems/wardwatch/internal/ingest"
	"github.com/wardwatch-systems/wardwatch/internal/messaging"
	"github.com/wardwatch-systems/wardwatch/internal/metrics"
	"github.com/wardwatch-systems/wardwatch/internal/models"
	"github.com/wardwatch-systems/wardwatch/internal/registry"
	"github.com/wardwatch-systems/wardwatch/internal/repository"
	"github.com/wardwatch-systems/wardwatch/internal/rules"
)

// Deps carries the analyzer's collaborators. Adapter, Evaluator,
// Alerts, and Systems are required; the rest default to no-ops.
type Deps struct {
	Adapter   ingest.Adapter
	Evaluator *rules.Evaluator
	Alerts    repository.Repository
	Systems   registry.Registry
	Cursors   cursor.Store
	Archiver  archive.Archiver
	Publisher messaging.Publisher
	Logger    *slog.Logger

	// PageLimit bounds each fetch; Concurrency bounds the sweep
	// worker pool.
	PageLimit   int
	Concurrency int
}

// Analyzer runs per-system analysis units and multi-system sweeps.
type Analyzer struct {
	adapter     ingest.Adapter
	evaluator   *rules.Evaluator
	alerts      repository.Repository
	systems     registry.Registry
	cursors     cursor.Store
	archiver    archive.Archiver
	publisher   messaging.Publisher
	logger      *slog.Logger
	pageLimit   int
	concurrency int
}

// New creates an analyzer, filling optional dependencies with no-ops.
func New(deps Deps) *Analyzer {
	if deps.Cursors == nil {
		deps.Cursors = cursor.NoopStore{}
	}
	if deps.Publisher == nil {
		deps.Publisher = messaging.NoopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.PageLimit <= 0 {
		deps.PageLimit = ingest.DefaultPageLimit
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = 4
	}
	return &Analyzer{
		adapter:     deps.Adapter,
		evaluator:   deps.Evaluator,
		alerts:      deps.Alerts,
		systems:     deps.Systems,
		cursors:     deps.Cursors,
		archiver:    deps.Archiver,
		publisher:   deps.Publisher,
		logger:      deps.Logger,
		pageLimit:   deps.PageLimit,
		concurrency: deps.Concurrency,
	}
}

// SystemFailure describes one skipped system in a sweep.
type SystemFailure struct {
	SystemID   string      `json:"system_id"`
	SystemName string      `json:"system_name"`
	Kind       ingest.Kind `json:"kind,omitempty"`
	Message    string      `json:"message"`
}

// SweepResult is the outcome of a multi-system sweep: the merged
// alert list (newest first) plus a report of skipped systems.
// Systems counts the units actually launched; a cancelled sweep
// launches fewer units than there are registered systems.
type SweepResult struct {
	Alerts   []*models.ThreatAlert `json:"alerts"`
	Failures []SystemFailure       `json:"failures"`
	Systems  int                   `json:"systems"`
}

// Analyze fetches and analyzes one registered system. The returned
// alerts preserve record-retrieval order and, within a record,
// rule-registration order.
func (a *Analyzer) Analyze(ctx context.Context, systemID string) ([]*models.ThreatAlert, error) {
	system, err := a.systems.Get(ctx, systemID)
	if err != nil {
		return nil, err
	}
	return a.analyzeSystem(ctx, system)
}

// AnalyzeAll sweeps every registered system with a bounded worker
// pool. A failure in one system is recorded and never aborts the
// sweep; cancellation is cooperative between systems, so units
// already running finish and their alerts are kept.
func (a *Analyzer) AnalyzeAll(ctx context.Context) (*SweepResult, error) {
	systems, err := a.systems.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list systems: %w", err)
	}

	metrics.SweepsTotal.Inc()
	startedAt := time.Now().UTC()

	var mu sync.Mutex
	result := &SweepResult{
		Alerts:   []*models.ThreatAlert{},
		Failures: []SystemFailure{},
	}

	g := &errgroup.Group{}
	g.SetLimit(a.concurrency)

	// Launched units run detached from the sweep context: cancelling
	// a sweep stops launching new units but never aborts one
	// mid-fetch.
	unitCtx := context.WithoutCancel(ctx)

	launched := 0
	for i, system := range systems {
		// Cooperative cancellation: stop launching new units, let
		// the ones in flight finish.
		if ctx.Err() != nil {
			a.logger.Warn("sweep cancelled before completion", "remaining", len(systems)-i)
			break
		}
		launched++

		g.Go(func() error {
			alerts, err := a.analyzeSystem(unitCtx, system)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures = append(result.Failures, SystemFailure{
					SystemID:   system.ID,
					SystemName: system.Name,
					Kind:       ingest.KindOf(err),
					Message:    err.Error(),
				})
				return nil
			}
			result.Alerts = append(result.Alerts, alerts...)
			return nil
		})
	}

	// Units never return errors; Wait only synchronizes.
	_ = g.Wait()

	result.Systems = launched

	sort.SliceStable(result.Alerts, func(i, j int) bool {
		return result.Alerts[i].SourceTimestamp.After(result.Alerts[j].SourceTimestamp)
	})

	summary := &messaging.SweepSummary{
		SweptAt:       startedAt,
		SystemsTotal:  launched,
		SystemsFailed: len(result.Failures),
		AlertsCreated: len(result.Alerts),
	}
	if err := a.publisher.PublishSweepCompleted(context.WithoutCancel(ctx), summary); err != nil {
		a.logger.Warn("failed to publish sweep summary", "error", err)
	}

	return result, nil
}

// analyzeSystem runs one fetch+evaluate+persist unit and records the
// sync outcome on the descriptor.
func (a *Analyzer) analyzeSystem(ctx context.Context, system *models.SystemDescriptor) ([]*models.ThreatAlert, error) {
	since, err := a.cursors.Get(ctx, system.ID)
	if err != nil {
		// A broken cursor only costs a wider fetch window.
		a.logger.Warn("failed to read sync cursor", "system_id", system.ID, "error", err)
		since = time.Time{}
	}

	records, err := a.adapter.Fetch(ctx, system, ingest.FetchOptions{
		Limit: a.pageLimit,
		Since: since,
	})
	if err != nil {
		metrics.FetchErrorsTotal.WithLabelValues(string(ingest.KindOf(err))).Inc()
		metrics.SystemsAnalyzedTotal.WithLabelValues("error").Inc()
		a.recordSync(ctx, system.ID, models.SystemStatusError)
		return nil, err
	}
	metrics.RecordsFetchedTotal.Add(float64(len(records)))

	evalStart := time.Now()
	alerts := a.evaluateBatch(records, system)
	metrics.EvaluationDuration.Observe(time.Since(evalStart).Seconds())

	saved, err := a.alerts.Save(ctx, alerts)
	if err != nil {
		metrics.StoreErrorsTotal.Inc()
		metrics.SystemsAnalyzedTotal.WithLabelValues("error").Inc()
		a.recordSync(ctx, system.ID, models.SystemStatusError)
		// Rows already written survive in the store; the caller may
		// retry the remainder on the next sweep.
		return nil, fmt.Errorf("failed to save alerts for system %s (persisted %d of %d): %w", system.ID, saved, len(alerts), err)
	}

	for _, alert := range alerts {
		metrics.AlertsEmittedTotal.WithLabelValues(alert.Severity).Inc()
		if err := a.publisher.PublishAlertCreated(ctx, alert); err != nil {
			a.logger.Warn("failed to publish alert", "alert_id", alert.ID, "error", err)
		}
	}

	if a.archiver != nil {
		if err := a.archiver.ArchiveRecords(ctx, records); err != nil {
			a.logger.Warn("failed to archive records", "system_id", system.ID, "error", err)
		}
	}

	if len(records) > 0 {
		if err := a.cursors.Set(ctx, system.ID, newestTimestamp(records)); err != nil {
			a.logger.Warn("failed to advance sync cursor", "system_id", system.ID, "error", err)
		}
	}

	metrics.SystemsAnalyzedTotal.WithLabelValues("ok").Inc()
	a.recordSync(ctx, system.ID, models.SystemStatusActive)

	a.logger.Info("system analyzed",
		"system_id", system.ID,
		"system_name", system.Name,
		"records", len(records),
		"alerts", len(alerts),
		"persisted", saved,
	)

	return alerts, nil
}

// evaluateBatch maps every finding for every record into a threat
// alert, preserving record order and rule order.
func (a *Analyzer) evaluateBatch(records []models.LogRecord, system *models.SystemDescriptor) []*models.ThreatAlert {
	now := time.Now().UTC()
	alerts := []*models.ThreatAlert{}
	for i := range records {
		rec := &records[i]
		for _, finding := range a.evaluator.Evaluate(rec, system) {
			alerts = append(alerts, &models.ThreatAlert{
				ID:              newAlertID(),
				SystemID:        system.ID,
				SystemName:      system.Name,
				Category:        finding.Category,
				Severity:        finding.Severity,
				Description:     finding.Description,
				SourceRecordID:  rec.ID,
				SourceTimestamp: rec.Timestamp,
				Resolved:        false,
				DedupKey:        repository.DedupKey(system.ID, rec.ID, finding.Category),
				CreatedAt:       now,
			})
		}
	}
	return alerts
}

// recordSync updates descriptor health after a unit completes. Status
// bookkeeping must not mask the unit's own result, so failures here
// are only logged.
func (a *Analyzer) recordSync(ctx context.Context, systemID, status string) {
	if err := a.systems.RecordSync(context.WithoutCancel(ctx), systemID, status, time.Now().UTC()); err != nil {
		a.logger.Warn("failed to record sync status", "system_id", systemID, "status", status, "error", err)
	}
}

func newestTimestamp(records []models.LogRecord) time.Time {
	newest := records[0].Timestamp
	for _, rec := range records[1:] {
		if rec.Timestamp.After(newest) {
			newest = rec.Timestamp
		}
	}
	return newest
}

func newAlertID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
