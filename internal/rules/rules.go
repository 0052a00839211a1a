// Package rules holds the closed set of detection heuristics applied
// to every ingested log record.
package rules

import (
	"fmt"
	"time"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

// Rule is one pure detection heuristic. Evaluate returns nil when the
// record does not match; a rule never emits more than one finding per
// record and must not mutate its inputs.
type Rule interface {
	Name() string
	Evaluate(rec *models.LogRecord, system *models.SystemDescriptor) *models.Finding
}

// Config holds the tunable knobs shared by the built-in rules.
type Config struct {
	// TrustedOriginPrefixes is the allow-list of network-origin
	// prefixes considered on-site.
	TrustedOriginPrefixes []string

	// BusinessHoursStart/End bound the expected activity window as
	// local hours in ReferenceZone; the window is [start, end).
	BusinessHoursStart int
	BusinessHoursEnd   int

	// AutomationSignatures are substrings that mark a client
	// identifier as automated tooling.
	AutomationSignatures []string

	// ReferenceZone is the IANA zone the record timestamp is
	// converted to before the business-hours comparison.
	ReferenceZone *time.Location
}

// DefaultConfig returns the rule knobs used when nothing is
// configured: loopback and RFC 1918 origins trusted, a 06:00-22:00
// business window in UTC, and the stock automation keywords.
func DefaultConfig() Config {
	return Config{
		TrustedOriginPrefixes: []string{"127.", "10.", "172.16.", "192.168."},
		BusinessHoursStart:    6,
		BusinessHoursEnd:      22,
		AutomationSignatures:  []string{"bot", "crawler", "script"},
		ReferenceZone:         time.UTC,
	}
}

// Validate checks the window and zone are usable.
func (c Config) Validate() error {
	if c.BusinessHoursStart < 0 || c.BusinessHoursStart > 23 {
		return fmt.Errorf("business hours start out of range: %d", c.BusinessHoursStart)
	}
	if c.BusinessHoursEnd < 0 || c.BusinessHoursEnd > 24 {
		return fmt.Errorf("business hours end out of range: %d", c.BusinessHoursEnd)
	}
	if c.BusinessHoursStart >= c.BusinessHoursEnd {
		return fmt.Errorf("business hours window is empty: %d-%d", c.BusinessHoursStart, c.BusinessHoursEnd)
	}
	if c.ReferenceZone == nil {
		return fmt.Errorf("reference zone is nil")
	}
	return nil
}

// Registry is an ordered, closed set of rules. Rules evaluate
// independently and in registration order; every match is kept.
type Registry struct {
	rules []Rule
}

// NewRegistry returns a registry holding the given rules in order.
func NewRegistry(rules ...Rule) *Registry {
	return &Registry{rules: rules}
}

// BuiltinRegistry returns the standard five-rule set configured with
// cfg, in the fixed evaluation order.
func BuiltinRegistry(cfg Config) *Registry {
	return NewRegistry(
		&FailedAuthRule{},
		&UnusualOriginRule{TrustedPrefixes: cfg.TrustedOriginPrefixes},
		&PrivilegeEscalationRule{},
		&AutomatedAccessRule{Signatures: cfg.AutomationSignatures},
		&OffHoursRule{Start: cfg.BusinessHoursStart, End: cfg.BusinessHoursEnd, Zone: cfg.ReferenceZone},
	)
}

// Rules returns the registered rules in evaluation order.
func (r *Registry) Rules() []Rule {
	return r.rules
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(r.rules)
}
