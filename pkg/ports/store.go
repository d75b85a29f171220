package ports

import (
	"context"

	"github.com/aretw0/maquette/pkg/domain"
)

// SessionStore defines the interface for persisting sessions. Terminated
// sessions are kept, not dropped: the archive is what lets a caller explain
// every attempt after the fact. Deletion is always explicit.
type SessionStore interface {
	// Save persists the session under its ID, overwriting any previous value.
	Save(ctx context.Context, session *domain.Session) error

	// Load retrieves a session by ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, id string) (*domain.Session, error)

	// Delete removes a session by ID. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored sessions, terminated ones included.
	List(ctx context.Context) ([]string, error)
}
