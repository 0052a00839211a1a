package seeder

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SourceServer is an HTTP server that speaks the log source contract,
// backed by generated records. It validates the same bearer
// credential scheme the adapter sends, so a full pipeline can run
// against it locally.
type SourceServer struct {
	credential string
	logger     *slog.Logger

	mu      sync.RWMutex
	records []WireRecord
}

// NewSourceServer creates a demo source preloaded with records.
func NewSourceServer(credential string, records []WireRecord, logger *slog.Logger) *SourceServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceServer{
		credential: credential,
		logger:     logger,
		records:    records,
	}
}

// Append adds more records to the served window.
func (s *SourceServer) Append(records ...WireRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// Handler returns the HTTP handler for the demo source.
func (s *SourceServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/logs", s.handleLogs)
	return mux
}

func (s *SourceServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.credential != "" {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.credential {
			http.Error(w, "invalid credential", http.StatusUnauthorized)
			return
		}
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		since = t
	}

	s.mu.RLock()
	page := make([]WireRecord, 0, limit)
	for _, rec := range s.records {
		if !since.IsZero() {
			ts, err := time.Parse(time.RFC3339, rec.CreatedAt)
			if err != nil || !ts.After(since) {
				continue
			}
		}
		page = append(page, rec)
	}
	s.mu.RUnlock()

	sort.SliceStable(page, func(i, j int) bool {
		return page[i].CreatedAt < page[j].CreatedAt
	})
	if len(page) > limit {
		page = page[:limit]
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"logs": page}); err != nil {
		s.logger.Error("failed to encode log page", "error", err)
	}
}
