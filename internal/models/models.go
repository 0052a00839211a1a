// Package models defines the shared data types for the WardWatch
// ingestion and detection pipeline.
package models

import "time"

// Severity levels for threat alerts.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// System health statuses.
const (
	SystemStatusActive   = "active"
	SystemStatusInactive = "inactive"
	SystemStatusError    = "error"
)

// SystemDescriptor identifies one registered external log source,
// e.g. a medical device's backing service or a lab system.
type SystemDescriptor struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	Credential string     `json:"-"`
	Type       string     `json:"type"` // medical_device, lab_system, ...
	Status     string     `json:"status"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// LogRecord is one normalized activity event pulled from an external
// system. Records are read-only after ingestion and are not required
// to be persisted; analysis may consume them transiently.
type LogRecord struct {
	ID        string        `json:"id"`
	SystemID  string        `json:"system_id"`
	EventType string        `json:"event_type"`
	Timestamp time.Time     `json:"timestamp"`
	UserID    string        `json:"user_id,omitempty"`
	Details   RecordDetails `json:"details"`
}

// RecordDetails is the structured detail payload of a log record,
// decoded once at ingestion so detection rules consume typed fields
// instead of probing an untyped map.
type RecordDetails struct {
	// Success reports whether the logged action succeeded. Nil when
	// the source did not include an outcome.
	Success *bool `json:"success,omitempty"`

	// OriginIP is the network origin of the action, if reported.
	OriginIP string `json:"ip_address,omitempty"`

	// ClientSignature is the client identifier (user agent or tool
	// name) attached to the action, if reported.
	ClientSignature string `json:"user_agent,omitempty"`

	// Extra holds any remaining source-specific fields verbatim.
	Extra map[string]string `json:"extra,omitempty"`
}

// Finding is a candidate detection result produced by one rule for
// one record. Findings are not persisted; the analyzer promotes them
// into ThreatAlerts.
type Finding struct {
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// ThreatAlert is a persisted, severity-classified security alert.
// Every alert traces to exactly one rule + record pair; DedupKey is
// derived from that pair so re-analyzing an overlapping log window
// never duplicates a row.
type ThreatAlert struct {
	ID              string    `json:"id"`
	SystemID        string    `json:"system_id"`
	SystemName      string    `json:"system_name"`
	Category        string    `json:"category"`
	Severity        string    `json:"severity"`
	Description     string    `json:"description"`
	SourceRecordID  string    `json:"source_record_id"`
	SourceTimestamp time.Time `json:"source_timestamp"`
	Resolved        bool      `json:"resolved"`
	DedupKey        string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsValidSeverity reports whether s is one of the four alert levels.
func IsValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// IsValidSystemStatus reports whether s is a known health status.
func IsValidSystemStatus(s string) bool {
	switch s {
	case SystemStatusActive, SystemStatusInactive, SystemStatusError:
		return true
	}
	return false
}
