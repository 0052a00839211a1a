// Package registry stores the descriptors of registered external log
// sources and tracks their sync health.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

var (
	ErrSystemNotFound = errors.New("system not found")
	ErrSystemExists   = errors.New("system already registered")
)

// Registry is the descriptor store. Systems are registered by an
// operator and mutated only through RecordSync; they are never
// deleted automatically.
type Registry interface {
	Register(ctx context.Context, system *models.SystemDescriptor) error
	Get(ctx context.Context, id string) (*models.SystemDescriptor, error)
	List(ctx context.Context) ([]*models.SystemDescriptor, error)

	// RecordSync updates the health status and, when the attempt
	// succeeded, the last-successful-sync time.
	RecordSync(ctx context.Context, id string, status string, at time.Time) error

	Close() error
}
