package user

import "context"

// Repository defines storage operations for users.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Create stores a new user.
	// Returns shared.ErrPhoneTaken if the phone is already registered.
	Create(ctx context.Context, u *User) error

	// GetByID returns shared.ErrUserNotFound when absent.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByPhone returns shared.ErrPhoneNotFound when absent.
	GetByPhone(ctx context.Context, phone string) (*User, error)

	// List returns every user in registration order.
	List(ctx context.Context) ([]*User, error)

	// Update replaces the stored user with the same ID.
	// Returns shared.ErrUserNotFound when absent.
	Update(ctx context.Context, u *User) error
}
