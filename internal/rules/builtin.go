package rules

import (
	"strings"
	"time"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

// Category labels for the built-in rules. These are stable: the alert
// dedup key includes the category.
const (
	CategorySuspiciousLogin     = "Suspicious Login Attempt"
	CategoryUnusualLocation     = "Unusual Access Location"
	CategoryPrivilegeEscalation = "Privilege Escalation Attempt"
	CategoryAutomatedAccess     = "Automated Data Access"
	CategoryOffHours            = "Off-Hours Access"
)

func isLoginEvent(eventType string) bool {
	et := strings.ToLower(eventType)
	return strings.Contains(et, "login") || strings.Contains(et, "signin")
}

func isDataAccessEvent(eventType string) bool {
	et := strings.ToLower(eventType)
	return strings.Contains(et, "data_read") || strings.Contains(et, "data_export") ||
		strings.Contains(et, "export") || strings.Contains(et, "read")
}

// FailedAuthRule flags login attempts whose detail payload marks them
// unsuccessful.
type FailedAuthRule struct{}

func (r *FailedAuthRule) Name() string { return "failed_auth" }

func (r *FailedAuthRule) Evaluate(rec *models.LogRecord, system *models.SystemDescriptor) *models.Finding {
	if !isLoginEvent(rec.EventType) {
		return nil
	}
	if rec.Details.Success == nil || *rec.Details.Success {
		return nil
	}
	return &models.Finding{
		Category:    CategorySuspiciousLogin,
		Severity:    models.SeverityHigh,
		Description: "Failed authentication attempt on " + system.Name,
	}
}

// UnusualOriginRule flags logins whose network origin is outside the
// trusted-prefix allow-list. Records without an origin are skipped.
type UnusualOriginRule struct {
	TrustedPrefixes []string
}

func (r *UnusualOriginRule) Name() string { return "unusual_origin" }

func (r *UnusualOriginRule) Evaluate(rec *models.LogRecord, system *models.SystemDescriptor) *models.Finding {
	if !isLoginEvent(rec.EventType) {
		return nil
	}
	origin := rec.Details.OriginIP
	if origin == "" {
		return nil
	}
	for _, prefix := range r.TrustedPrefixes {
		if strings.HasPrefix(origin, prefix) {
			return nil
		}
	}
	return &models.Finding{
		Category:    CategoryUnusualLocation,
		Severity:    models.SeverityMedium,
		Description: "Login to " + system.Name + " from untrusted origin " + origin,
	}
}

// PrivilegeEscalationRule flags events whose type carries an
// administrative or role-change marker.
type PrivilegeEscalationRule struct{}

func (r *PrivilegeEscalationRule) Name() string { return "privilege_escalation" }

var privilegeMarkers = []string{"admin", "role", "privilege", "permission"}

func (r *PrivilegeEscalationRule) Evaluate(rec *models.LogRecord, system *models.SystemDescriptor) *models.Finding {
	et := strings.ToLower(rec.EventType)
	for _, marker := range privilegeMarkers {
		if strings.Contains(et, marker) {
			return &models.Finding{
				Category:    CategoryPrivilegeEscalation,
				Severity:    models.SeverityCritical,
				Description: "Administrative action '" + rec.EventType + "' on " + system.Name,
			}
		}
	}
	return nil
}

// AutomatedAccessRule flags data reads or exports performed by a
// client whose signature matches an automation keyword.
type AutomatedAccessRule struct {
	Signatures []string
}

func (r *AutomatedAccessRule) Name() string { return "automated_access" }

func (r *AutomatedAccessRule) Evaluate(rec *models.LogRecord, system *models.SystemDescriptor) *models.Finding {
	if !isDataAccessEvent(rec.EventType) {
		return nil
	}
	sig := strings.ToLower(rec.Details.ClientSignature)
	if sig == "" {
		return nil
	}
	for _, keyword := range r.Signatures {
		if strings.Contains(sig, strings.ToLower(keyword)) {
			return &models.Finding{
				Category:    CategoryAutomatedAccess,
				Severity:    models.SeverityMedium,
				Description: "Automated client '" + rec.Details.ClientSignature + "' accessed data on " + system.Name,
			}
		}
	}
	return nil
}

// OffHoursRule flags activity whose local hour falls outside the
// business window [Start, End). The record's own timestamp is
// converted to Zone; evaluation wall-clock never enters the check.
type OffHoursRule struct {
	Start int
	End   int
	Zone  *time.Location
}

func (r *OffHoursRule) Name() string { return "off_hours" }

func (r *OffHoursRule) Evaluate(rec *models.LogRecord, system *models.SystemDescriptor) *models.Finding {
	hour := rec.Timestamp.In(r.Zone).Hour()
	if hour >= r.Start && hour < r.End {
		return nil
	}
	return &models.Finding{
		Category:    CategoryOffHours,
		Severity:    models.SeverityLow,
		Description: "Activity on " + system.Name + " outside business hours",
	}
}
