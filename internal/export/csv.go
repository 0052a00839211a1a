// Package export renders alert sets and raw log batches into CSV for
// dashboard downloads. Pure transformation: no storage or network
// side effects.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

// AlertHeader is the fixed column order for alert exports.
var AlertHeader = []string{"Timestamp", "Event Type", "Severity", "System", "Description"}

// RecordHeader is the fixed column order for raw log exports.
var RecordHeader = []string{"Timestamp", "Event Type", "User ID", "System", "Details"}

// Alerts writes one CSV row per alert in the given order (callers
// pass newest-first lists). Embedded delimiters and quotes survive a
// round-trip: encoding/csv doubles quotes and wraps the field.
func Alerts(w io.Writer, alerts []*models.ThreatAlert) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(AlertHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, a := range alerts {
		row := []string{
			a.SourceTimestamp.UTC().Format(time.RFC3339),
			a.Category,
			a.Severity,
			a.SystemName,
			a.Description,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write alert row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Records writes one CSV row per log record, with the detail payload
// flattened into a single deterministic string.
func Records(w io.Writer, systemName string, records []models.LogRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(RecordHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.Timestamp.UTC().Format(time.RFC3339),
			rec.EventType,
			rec.UserID,
			systemName,
			FlattenDetails(rec.Details),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write record row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FlattenDetails serializes a detail payload as space-joined k=v
// pairs in a stable order: typed fields first, extras sorted by key.
func FlattenDetails(d models.RecordDetails) string {
	parts := []string{}
	if d.Success != nil {
		parts = append(parts, fmt.Sprintf("success=%t", *d.Success))
	}
	if d.OriginIP != "" {
		parts = append(parts, "ip_address="+d.OriginIP)
	}
	if d.ClientSignature != "" {
		parts = append(parts, "user_agent="+d.ClientSignature)
	}

	keys := make([]string, 0, len(d.Extra))
	for k := range d.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+d.Extra[k])
	}

	return strings.Join(parts, " ")
}
