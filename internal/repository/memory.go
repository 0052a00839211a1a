package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

// InMemoryRepository is a Repository for tests and local development.
// It mirrors the Postgres semantics: conflict-ignoring inserts keyed
// by dedup key, newest-first listing.
type InMemoryRepository struct {
	mu      sync.RWMutex
	alerts  map[string]*models.ThreatAlert // by ID
	byDedup map[string]string              // dedup key -> ID
}

// NewInMemoryRepository creates an empty in-memory alert store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		alerts:  make(map[string]*models.ThreatAlert),
		byDedup: make(map[string]string),
	}
}

func (r *InMemoryRepository) Save(ctx context.Context, alerts []*models.ThreatAlert) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved := 0
	for _, a := range alerts {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		if _, exists := r.byDedup[a.DedupKey]; exists {
			continue
		}
		cp := *a
		r.alerts[a.ID] = &cp
		r.byDedup[a.DedupKey] = a.ID
		saved++
	}
	return saved, nil
}

func (r *InMemoryRepository) List(ctx context.Context, filter Filter) ([]*models.ThreatAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := []*models.ThreatAlert{}
	for _, a := range r.alerts {
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.SystemID != "" && a.SystemID != filter.SystemID {
			continue
		}
		if !filter.Since.IsZero() && a.SourceTimestamp.Before(filter.Since) {
			continue
		}
		cp := *a
		results = append(results, &cp)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].SourceTimestamp.After(results[j].SourceTimestamp)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func (r *InMemoryRepository) Resolve(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, exists := r.alerts[id]
	if !exists {
		return ErrAlertNotFound
	}
	a.Resolved = true
	return nil
}

func (r *InMemoryRepository) Close() error {
	return nil
}
