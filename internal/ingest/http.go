package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

// DefaultPageLimit caps a fetch when the caller passes no limit.
const DefaultPageLimit = 100

// HTTPAdapter implements Adapter against the log source contract:
// GET {address}/api/v1/logs?limit=N with a bearer credential.
type HTTPAdapter struct {
	client   *http.Client
	maxLimit int
}

// NewHTTPAdapter creates an adapter with the given request timeout
// and page-size ceiling. maxLimit <= 0 falls back to DefaultPageLimit.
func NewHTTPAdapter(timeout time.Duration, maxLimit int) *HTTPAdapter {
	if maxLimit <= 0 {
		maxLimit = DefaultPageLimit
	}
	return &HTTPAdapter{
		client:   &http.Client{Timeout: timeout},
		maxLimit: maxLimit,
	}
}

// wireRecord is the raw shape served by conforming sources. Some
// devices report the event time as created_at, others as timestamp.
type wireRecord struct {
	ID        string                 `json:"id"`
	EventType string                 `json:"event_type"`
	CreatedAt string                 `json:"created_at"`
	Timestamp string                 `json:"timestamp"`
	UserID    string                 `json:"user_id"`
	Details   map[string]interface{} `json:"details"`
}

type wirePage struct {
	Logs *[]wireRecord `json:"logs"`
}

// Fetch retrieves one page of records from the system. Failures are
// returned as *Error with a Kind of unreachable, auth_failed, or
// schema_missing.
func (a *HTTPAdapter) Fetch(ctx context.Context, system *models.SystemDescriptor, opts FetchOptions) ([]models.LogRecord, error) {
	limit := opts.Limit
	if limit <= 0 || limit > a.maxLimit {
		limit = a.maxLimit
	}

	endpoint := strings.TrimRight(system.Address, "/") + "/api/v1/logs"
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if !opts.Since.IsZero() {
		q.Set("since", opts.Since.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, SystemID: system.ID, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if system.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+system.Credential)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, SystemID: system.ID, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{Kind: KindAuthFailed, SystemID: system.ID,
			Err: fmt.Errorf("source rejected credential with status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &Error{Kind: KindSchemaMissing, SystemID: system.ID,
			Err: fmt.Errorf("log endpoint not found at %s", endpoint)}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &Error{Kind: KindUnreachable, SystemID: system.ID,
			Err: fmt.Errorf("source returned status %d: %s", resp.StatusCode, string(body))}
	}

	var page wirePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &Error{Kind: KindSchemaMissing, SystemID: system.ID,
			Err: fmt.Errorf("response is not valid JSON: %w", err)}
	}
	if page.Logs == nil {
		return nil, &Error{Kind: KindSchemaMissing, SystemID: system.ID,
			Err: fmt.Errorf("response has no logs field")}
	}

	records := make([]models.LogRecord, 0, len(*page.Logs))
	for i, wr := range *page.Logs {
		rec, err := normalize(system.ID, wr)
		if err != nil {
			return nil, &Error{Kind: KindSchemaMissing, SystemID: system.ID,
				Err: fmt.Errorf("record %d: %w", i, err)}
		}
		records = append(records, rec)
	}

	return records, nil
}

// normalize validates one wire record against the required schema and
// decodes its detail payload into typed fields.
func normalize(systemID string, wr wireRecord) (models.LogRecord, error) {
	if wr.ID == "" {
		return models.LogRecord{}, fmt.Errorf("missing id")
	}
	if wr.EventType == "" {
		return models.LogRecord{}, fmt.Errorf("missing event_type")
	}
	if wr.Details == nil {
		return models.LogRecord{}, fmt.Errorf("missing details")
	}

	raw := wr.CreatedAt
	if raw == "" {
		raw = wr.Timestamp
	}
	if raw == "" {
		return models.LogRecord{}, fmt.Errorf("missing created_at/timestamp")
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return models.LogRecord{}, fmt.Errorf("bad timestamp %q: %w", raw, err)
	}

	return models.LogRecord{
		ID:        wr.ID,
		SystemID:  systemID,
		EventType: wr.EventType,
		Timestamp: ts,
		UserID:    wr.UserID,
		Details:   decodeDetails(wr.Details),
	}, nil
}

// decodeDetails lifts the well-known detail fields into typed
// accessors once, so rules never probe the raw map.
func decodeDetails(raw map[string]interface{}) models.RecordDetails {
	var d models.RecordDetails
	for k, v := range raw {
		switch k {
		case "success":
			if b, ok := v.(bool); ok {
				d.Success = &b
				continue
			}
		case "ip_address":
			if s, ok := v.(string); ok {
				d.OriginIP = s
				continue
			}
		case "user_agent":
			if s, ok := v.(string); ok {
				d.ClientSignature = s
				continue
			}
		}
		if d.Extra == nil {
			d.Extra = make(map[string]string)
		}
		d.Extra[k] = fmt.Sprintf("%v", v)
	}
	return d
}
