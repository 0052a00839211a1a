package rules

import (
	"log/slog"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

// Evaluator runs every registered rule against a record. Rule panics
// are recovered and treated as "no finding" for that rule, so one
// misbehaving heuristic never aborts the rest of the registry.
type Evaluator struct {
	registry *Registry
	logger   *slog.Logger
}

// NewEvaluator creates an evaluator over the given registry.
func NewEvaluator(registry *Registry, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{registry: registry, logger: logger}
}

// Evaluate returns all findings for one record, in registration
// order. The result is deterministic for a given record and system:
// rules are pure, so repeated evaluation yields identical findings.
func (e *Evaluator) Evaluate(rec *models.LogRecord, system *models.SystemDescriptor) []models.Finding {
	findings := make([]models.Finding, 0, 2)
	for _, rule := range e.registry.Rules() {
		if f := e.evaluateOne(rule, rec, system); f != nil {
			findings = append(findings, *f)
		}
	}
	return findings
}

func (e *Evaluator) evaluateOne(rule Rule, rec *models.LogRecord, system *models.SystemDescriptor) (finding *models.Finding) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("rule evaluation panicked",
				"rule", rule.Name(),
				"record_id", rec.ID,
				"system_id", system.ID,
				"panic", r,
			)
			finding = nil
		}
	}()
	return rule.Evaluate(rec, system)
}
