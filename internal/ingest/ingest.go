// Package ingest pulls activity-log pages from registered external
// systems and normalizes them into LogRecords.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

// Kind classifies adapter failures so callers can tell configuration
// problems from transient ones.
type Kind string

const (
	KindUnreachable   Kind = "unreachable"
	KindAuthFailed    Kind = "auth_failed"
	KindSchemaMissing Kind = "schema_missing"
)

// Error is a typed fetch failure for one external system.
type Error struct {
	Kind     Kind
	SystemID string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingest %s (system %s): %v", e.Kind, e.SystemID, e.Err)
	}
	return fmt.Sprintf("ingest %s (system %s)", e.Kind, e.SystemID)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the ingest error kind, or "" if err is not an
// ingest error.
func KindOf(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

// FetchOptions bounds one page fetch. Limit caps the page size;
// Since, when non-zero, asks the source for records after that
// timestamp only.
type FetchOptions struct {
	Limit int
	Since time.Time
}

// Adapter fetches one bounded page of log records from an external
// system. Implementations must not retry internally and must not
// mutate the descriptor; retry and status policy belong to the
// caller.
type Adapter interface {
	Fetch(ctx context.Context, system *models.SystemDescriptor, opts FetchOptions) ([]models.LogRecord, error)
}
