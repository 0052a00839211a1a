package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

// Publisher pushes pipeline events onto the message bus.
type Publisher interface {
	PublishAlertCreated(ctx context.Context, alert *models.ThreatAlert) error
	PublishSweepCompleted(ctx context.Context, summary *SweepSummary) error
	Close()
}

// SweepSummary is the message published after each full sweep.
type SweepSummary struct {
	SweptAt       time.Time `json:"swept_at"`
	SystemsTotal  int       `json:"systems_total"`
	SystemsFailed int       `json:"systems_failed"`
	AlertsCreated int       `json:"alerts_created"`
}

// NATSPublisher implements Publisher over a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// Connect establishes a NATS connection with reconnect handling.
func Connect(url, name string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// PublishAlertCreated publishes a newly persisted alert.
func (p *NATSPublisher) PublishAlertCreated(ctx context.Context, alert *models.ThreatAlert) error {
	return p.publish(ctx, SubjectAlertsCreated, alert)
}

// PublishSweepCompleted publishes a sweep summary.
func (p *NATSPublisher) PublishSweepCompleted(ctx context.Context, summary *SweepSummary) error {
	return p.publish(ctx, SubjectSweepCompleted, summary)
}

// publish marshals data to JSON and publishes to the subject.
func (p *NATSPublisher) publish(ctx context.Context, subject string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return p.conn.Publish(subject, bytes)
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	p.conn.Close()
}

// NoopPublisher is a Publisher that discards everything. Used when
// NATS is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishAlertCreated(ctx context.Context, alert *models.ThreatAlert) error {
	return nil
}

func (NoopPublisher) PublishSweepCompleted(ctx context.Context, summary *SweepSummary) error {
	return nil
}

func (NoopPublisher) Close() {}
