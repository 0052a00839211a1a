package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

func boolPtr(b bool) *bool { return &b }

func TestAlertsHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Alerts(&buf, nil))

	assert.Equal(t, "Timestamp,Event Type,Severity,System,Description\n", buf.String())
}

func TestAlertsRows(t *testing.T) {
	ts := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	alerts := []*models.ThreatAlert{
		{
			Category:        "Suspicious Login Attempt",
			Severity:        models.SeverityHigh,
			SystemName:      "ECG Monitor",
			Description:     "Failed authentication attempt on ECG Monitor",
			SourceTimestamp: ts,
		},
		{
			Category:        "Off-Hours Access",
			Severity:        models.SeverityLow,
			SystemName:      "Lab Gateway",
			Description:     "Activity on Lab Gateway outside business hours",
			SourceTimestamp: ts.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Alerts(&buf, alerts))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, AlertHeader, rows[0])
	assert.Equal(t, []string{
		"2026-03-10T03:00:00Z",
		"Suspicious Login Attempt",
		"high",
		"ECG Monitor",
		"Failed authentication attempt on ECG Monitor",
	}, rows[1])
	assert.Equal(t, "2026-03-10T02:00:00Z", rows[2][0])
}

// Fields carrying commas, quotes, and newlines must survive a CSV
// round-trip intact.
func TestAlertsQuoting(t *testing.T) {
	alerts := []*models.ThreatAlert{
		{
			Category:        "Unusual Access Location",
			Severity:        models.SeverityMedium,
			SystemName:      `Ward "B", Floor 3`,
			Description:     "Login from 203.0.113.5,\nsecond line",
			SourceTimestamp: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Alerts(&buf, alerts))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, `Ward "B", Floor 3`, rows[1][3])
	assert.Equal(t, "Login from 203.0.113.5,\nsecond line", rows[1][4])
}

func TestAlertsTimestampsRenderedInUTC(t *testing.T) {
	oslo, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)

	alerts := []*models.ThreatAlert{
		{
			Category:        "Off-Hours Access",
			Severity:        models.SeverityLow,
			SystemName:      "ECG Monitor",
			Description:     "off hours",
			SourceTimestamp: time.Date(2026, 3, 10, 13, 0, 0, 0, oslo),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Alerts(&buf, alerts))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10T12:00:00Z", rows[1][0])
}

func TestRecords(t *testing.T) {
	records := []models.LogRecord{
		{
			ID:        "rec-1",
			EventType: "data_export",
			Timestamp: time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
			UserID:    "svc-backup",
			Details: models.RecordDetails{
				OriginIP:        "10.0.4.12",
				ClientSignature: "curl-bot/1.0",
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Records(&buf, "Lab Gateway", records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, RecordHeader, rows[0])
	assert.Equal(t, []string{
		"2026-03-10T14:30:00Z",
		"data_export",
		"svc-backup",
		"Lab Gateway",
		"ip_address=10.0.4.12 user_agent=curl-bot/1.0",
	}, rows[1])
}

func TestFlattenDetails(t *testing.T) {
	tests := []struct {
		name    string
		details models.RecordDetails
		want    string
	}{
		{"empty payload", models.RecordDetails{}, ""},
		{
			"typed fields in fixed order",
			models.RecordDetails{
				Success:         boolPtr(false),
				OriginIP:        "203.0.113.5",
				ClientSignature: "WardView/4.2",
			},
			"success=false ip_address=203.0.113.5 user_agent=WardView/4.2",
		},
		{
			"extras sorted after typed fields",
			models.RecordDetails{
				OriginIP: "10.0.0.1",
				Extra:    map[string]string{"zone": "icu", "bed": "12"},
			},
			"ip_address=10.0.0.1 bed=12 zone=icu",
		},
		{
			"extras only",
			models.RecordDetails{Extra: map[string]string{"b": "2", "a": "1", "c": "3"}},
			"a=1 b=2 c=3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlattenDetails(tt.details))
		})
	}
}

// FlattenDetails output is stable across calls despite map iteration.
func TestFlattenDetailsDeterministic(t *testing.T) {
	details := models.RecordDetails{
		Extra: map[string]string{"k1": "v1", "k2": "v2", "k3": "v3", "k4": "v4"},
	}

	first := FlattenDetails(details)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, FlattenDetails(details))
	}
	assert.False(t, strings.Contains(first, ","))
}
