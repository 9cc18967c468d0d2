package mentor

import "context"

// Repository defines storage operations for the mentor directory.
type Repository interface {
	// List returns the whole directory in seed order.
	List(ctx context.Context) ([]Mentor, error)

	// GetByID returns shared.ErrMentorNotFound when absent.
	GetByID(ctx context.Context, id string) (*Mentor, error)

	// Update replaces the mentor with the same ID.
	// Returns shared.ErrMentorNotFound when absent.
	Update(ctx context.Context, m *Mentor) error

	// Seed inserts or replaces the given mentors.
	Seed(ctx context.Context, mentors []Mentor) error
}
