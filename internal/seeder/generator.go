// Package seeder generates synthetic hospital-device activity logs
// and serves them through a demo source endpoint, for local
// development and end-to-end testing without real devices.
package seeder

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// WireRecord is the raw log shape served by the demo source,
// matching the inbound log source contract.
type WireRecord struct {
	ID        string                 `json:"id"`
	EventType string                 `json:"event_type"`
	CreatedAt string                 `json:"created_at"`
	UserID    string                 `json:"user_id,omitempty"`
	Details   map[string]interface{} `json:"details"`
}

var eventTypes = []string{
	"login", "login_failed", "logout",
	"data_read", "data_export",
	"config_change", "admin_role_change",
	"vitals_recorded", "calibration",
}

var automationAgents = []string{
	"curl-bot/1.0", "export-script/2.3", "data-crawler/0.9",
}

var interactiveAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0)", "WardView/4.2", "Mozilla/5.0 (Macintosh)",
}

// GenerateRecords produces count records spread backwards over
// timeSpread from now, oldest first.
func GenerateRecords(count int, timeSpread time.Duration) []WireRecord {
	now := time.Now().UTC()
	records := make([]WireRecord, 0, count)

	for i := 0; i < count; i++ {
		var ts time.Time
		if timeSpread > 0 && count > 1 {
			offset := time.Duration(float64(timeSpread) * float64(i) / float64(count-1))
			ts = now.Add(-timeSpread + offset)
		} else {
			ts = now
		}
		records = append(records, GenerateRecord(ts))
	}

	return records
}

// GenerateRecord produces one record at the given timestamp.
func GenerateRecord(ts time.Time) WireRecord {
	eventType := eventTypes[rand.Intn(len(eventTypes))]

	details := map[string]interface{}{
		"ip_address": randomOrigin(),
		"user_agent": randomAgent(eventType),
	}
	switch eventType {
	case "login":
		details["success"] = true
	case "login_failed":
		details["success"] = false
	case "data_export":
		details["row_count"] = rand.Intn(5000)
	case "vitals_recorded":
		details["heart_rate"] = 50 + rand.Intn(80)
	}

	return WireRecord{
		ID:        fmt.Sprintf("evt-%d-%04d", ts.UnixNano(), rand.Intn(10000)),
		EventType: eventType,
		CreatedAt: ts.Format(time.RFC3339),
		UserID:    gofakeit.Username(),
		Details:   details,
	}
}

// randomOrigin mixes trusted on-site origins with a minority of
// public addresses so the unusual-origin rule has something to find.
func randomOrigin() string {
	if rand.Float64() < 0.7 {
		return fmt.Sprintf("10.%d.%d.%d", rand.Intn(256), rand.Intn(256), 1+rand.Intn(254))
	}
	return gofakeit.IPv4Address()
}

func randomAgent(eventType string) string {
	if eventType == "data_read" || eventType == "data_export" {
		if rand.Float64() < 0.3 {
			return automationAgents[rand.Intn(len(automationAgents))]
		}
	}
	return interactiveAgents[rand.Intn(len(interactiveAgents))]
}
