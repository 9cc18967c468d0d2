package session

import "context"

// Repository defines storage operations for sessions.
type Repository interface {
	// Create stores a new session.
	Create(ctx context.Context, s *Session) error

	// GetByID returns shared.ErrSessionNotFound when absent.
	GetByID(ctx context.Context, id string) (*Session, error)

	// List returns every session; ordering is left to the caller.
	List(ctx context.Context) ([]Session, error)

	// Update replaces the session with the same ID.
	// Returns shared.ErrSessionNotFound when absent.
	Update(ctx context.Context, s *Session) error

	// Delete removes the session.
	// Returns shared.ErrSessionNotFound when absent.
	Delete(ctx context.Context, id string) error
}
