// Package repository persists threat alerts and serves historical
// queries over them.
package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

var (
	ErrAlertNotFound = errors.New("alert not found")
)

// Filter narrows a historical alert query. Zero values mean "no
// constraint"; Limit <= 0 uses the store default.
type Filter struct {
	Severity string
	SystemID string
	Since    time.Time
	Limit    int
}

// Repository is the alert store. Save is append-safe: a partially
// failed bulk save keeps the rows already written, and the returned
// count reflects rows actually inserted (duplicates insert nothing).
type Repository interface {
	Save(ctx context.Context, alerts []*models.ThreatAlert) (int, error)
	List(ctx context.Context, filter Filter) ([]*models.ThreatAlert, error)
	Resolve(ctx context.Context, id string) error
	Close() error
}

// DedupKey derives the natural identity of an alert: the owning
// system, the triggering source record, and the rule category. Two
// sweeps over overlapping log windows derive the same key for the
// same underlying event.
func DedupKey(systemID, sourceRecordID, category string) string {
	h := sha256.Sum256([]byte(systemID + "|" + sourceRecordID + "|" + category))
	return hex.EncodeToString(h[:])
}
