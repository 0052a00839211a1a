// Package messaging publishes pipeline lifecycle events for the
// dashboard and chat collaborators.
package messaging

// Subject constants for the WardWatch message bus.
// Follow the pattern: {domain}.{action}.{resource}
const (
	// SubjectAlertsCreated carries every newly persisted threat alert.
	SubjectAlertsCreated = "wardwatch.alerts.created"

	// SubjectSweepCompleted carries a summary after each full sweep.
	SubjectSweepCompleted = "wardwatch.sweeps.completed"
)
