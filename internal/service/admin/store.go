package admin

import (
	"context"

	"github.com/oklog/ulid/v2"

	"thakii-backend/internal/domain"
)

// Store persists admin records. Implementations never hard-delete.
type Store interface {
	// Create inserts rec, assigning rec.ID when empty, and returns the id.
	Create(ctx context.Context, rec *domain.AdminRecord) (string, error)
	// Get returns ErrRecordNotFound when id is unknown.
	Get(ctx context.Context, id string) (*domain.AdminRecord, error)
	// Update merges patch into the record and returns the result.
	Update(ctx context.Context, id string, patch domain.AdminPatch) (*domain.AdminRecord, error)
	// List returns every record in any order.
	List(ctx context.Context) ([]*domain.AdminRecord, error)
	// Health reports whether the backing storage is reachable.
	Health(ctx context.Context) error
	// Name identifies the backend in health output.
	Name() string
}

// NewID returns a new lexicographically sortable record id.
func NewID() string {
	return ulid.Make().String()
}
