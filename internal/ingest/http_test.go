package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

func testDescriptor(address string) *models.SystemDescriptor {
	return &models.SystemDescriptor{
		ID:         "sys-1",
		Name:       "ECG Monitor",
		Address:    address,
		Credential: "secret-token",
		Type:       "device",
	}
}

func TestFetchNormalizesRecords(t *testing.T) {
	var gotAuth, gotLimit, gotSince string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotLimit = r.URL.Query().Get("limit")
		gotSince = r.URL.Query().Get("since")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"logs": [
			{"id": "rec-1", "event_type": "login_failed", "created_at": "2026-03-10T03:00:00Z",
			 "user_id": "nurse-7",
			 "details": {"success": false, "ip_address": "203.0.113.5", "user_agent": "WardView/4.2", "ward": "icu"}},
			{"id": "rec-2", "event_type": "vitals_recorded", "timestamp": "2026-03-10T03:05:00Z", "details": {}}
		]}`))
	}))
	defer srv.Close()

	adapter := NewHTTPAdapter(5*time.Second, 100)
	since := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	records, err := adapter.Fetch(context.Background(), testDescriptor(srv.URL), FetchOptions{Limit: 50, Since: since})

	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "50", gotLimit)
	assert.Equal(t, "2026-03-09T00:00:00Z", gotSince)

	require.Len(t, records, 2)
	rec := records[0]
	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, "sys-1", rec.SystemID)
	assert.Equal(t, "login_failed", rec.EventType)
	assert.Equal(t, time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC), rec.Timestamp)
	assert.Equal(t, "nurse-7", rec.UserID)
	require.NotNil(t, rec.Details.Success)
	assert.False(t, *rec.Details.Success)
	assert.Equal(t, "203.0.113.5", rec.Details.OriginIP)
	assert.Equal(t, "WardView/4.2", rec.Details.ClientSignature)
	assert.Equal(t, map[string]string{"ward": "icu"}, rec.Details.Extra)

	// The timestamp field is accepted when created_at is absent.
	assert.Equal(t, time.Date(2026, 3, 10, 3, 5, 0, 0, time.UTC), records[1].Timestamp)
}

func TestFetchClampsLimit(t *testing.T) {
	var gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		w.Write([]byte(`{"logs": []}`))
	}))
	defer srv.Close()

	adapter := NewHTTPAdapter(5*time.Second, 100)

	tests := []struct {
		name  string
		limit int
		want  string
	}{
		{"zero uses ceiling", 0, "100"},
		{"negative uses ceiling", -5, "100"},
		{"within ceiling passes through", 25, "25"},
		{"above ceiling is clamped", 5000, "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := adapter.Fetch(context.Background(), testDescriptor(srv.URL), FetchOptions{Limit: tt.limit})
			require.NoError(t, err)
			assert.Equal(t, tt.want, gotLimit)
		})
	}
}

func TestFetchOmitsZeroSince(t *testing.T) {
	var hasSince bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasSince = r.URL.Query().Has("since")
		w.Write([]byte(`{"logs": []}`))
	}))
	defer srv.Close()

	adapter := NewHTTPAdapter(5*time.Second, 100)
	_, err := adapter.Fetch(context.Background(), testDescriptor(srv.URL), FetchOptions{})

	require.NoError(t, err)
	assert.False(t, hasSince)
}

func TestFetchErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind Kind
	}{
		{
			"401 is auth failure",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
			KindAuthFailed,
		},
		{
			"403 is auth failure",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			KindAuthFailed,
		},
		{
			"404 means the log endpoint is missing",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			KindSchemaMissing,
		},
		{
			"500 counts as unreachable",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			KindUnreachable,
		},
		{
			"non-JSON body",
			func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>not json</html>")) },
			KindSchemaMissing,
		},
		{
			"missing logs field",
			func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"entries": []}`)) },
			KindSchemaMissing,
		},
		{
			"record without id",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"logs": [{"event_type": "login", "created_at": "2026-03-10T03:00:00Z"}]}`))
			},
			KindSchemaMissing,
		},
		{
			"record without timestamp",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"logs": [{"id": "rec-1", "event_type": "login", "details": {}}]}`))
			},
			KindSchemaMissing,
		},
		{
			"unparseable timestamp",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"logs": [{"id": "rec-1", "event_type": "login", "created_at": "yesterday", "details": {}}]}`))
			},
			KindSchemaMissing,
		},
		{
			"record without details",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"logs": [{"id": "rec-1", "event_type": "login", "created_at": "2026-03-10T03:00:00Z"}]}`))
			},
			KindSchemaMissing,
		},
	}

	adapter := NewHTTPAdapter(5*time.Second, 100)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			records, err := adapter.Fetch(context.Background(), testDescriptor(srv.URL), FetchOptions{})
			require.Error(t, err)
			assert.Nil(t, records)
			assert.Equal(t, tt.wantKind, KindOf(err))

			var ie *Error
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, "sys-1", ie.SystemID)
		})
	}
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // shut down before fetching

	adapter := NewHTTPAdapter(time.Second, 100)
	_, err := adapter.Fetch(context.Background(), testDescriptor(srv.URL), FetchOptions{})

	require.Error(t, err)
	assert.Equal(t, KindUnreachable, KindOf(err))
}

func TestFetchEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"logs": []}`))
	}))
	defer srv.Close()

	adapter := NewHTTPAdapter(5*time.Second, 100)
	records, err := adapter.Fetch(context.Background(), testDescriptor(srv.URL), FetchOptions{})

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchNoCredentialOmitsHeader(t *testing.T) {
	var gotAuth string
	var hasAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, hasAuth = r.Header["Authorization"]
		w.Write([]byte(`{"logs": []}`))
	}))
	defer srv.Close()

	system := testDescriptor(srv.URL)
	system.Credential = ""

	adapter := NewHTTPAdapter(5*time.Second, 100)
	_, err := adapter.Fetch(context.Background(), system, FetchOptions{})

	require.NoError(t, err)
	assert.False(t, hasAuth)
	assert.Empty(t, gotAuth)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindAuthFailed, KindOf(&Error{Kind: KindAuthFailed, SystemID: "s"}))
	assert.Equal(t, Kind(""), KindOf(context.Canceled))
	assert.Equal(t, Kind(""), KindOf(nil))
}
