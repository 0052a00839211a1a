package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

// InMemoryRegistry is a Registry for tests and local development.
type InMemoryRegistry struct {
	mu      sync.RWMutex
	systems map[string]*models.SystemDescriptor
}

// NewInMemoryRegistry creates an empty in-memory registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		systems: make(map[string]*models.SystemDescriptor),
	}
}

func (r *InMemoryRegistry) Register(ctx context.Context, system *models.SystemDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.systems[system.ID]; exists {
		return ErrSystemExists
	}
	cp := *system
	r.systems[system.ID] = &cp
	return nil
}

func (r *InMemoryRegistry) Get(ctx context.Context, id string) (*models.SystemDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.systems[id]
	if !exists {
		return nil, ErrSystemNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *InMemoryRegistry) List(ctx context.Context) ([]*models.SystemDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	systems := make([]*models.SystemDescriptor, 0, len(r.systems))
	for _, s := range r.systems {
		cp := *s
		systems = append(systems, &cp)
	}
	sort.Slice(systems, func(i, j int) bool {
		return systems[i].CreatedAt.Before(systems[j].CreatedAt)
	})
	return systems, nil
}

func (r *InMemoryRegistry) RecordSync(ctx context.Context, id string, status string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.systems[id]
	if !exists {
		return ErrSystemNotFound
	}
	s.Status = status
	if status == models.SystemStatusActive {
		t := at
		s.LastSyncAt = &t
	}
	return nil
}

func (r *InMemoryRegistry) Close() error {
	return nil
}
