// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"

	"github.com/voicementor/voicementor/internal/domain/user"
)

// UserQueries reads the user repository.
type UserQueries struct {
	users user.Repository
}

func NewUserQueries(users user.Repository) *UserQueries {
	return &UserQueries{users: users}
}

// List returns every user in registration order.
func (q *UserQueries) List(ctx context.Context) ([]*user.User, error) {
	return q.users.List(ctx)
}

// Get returns shared.ErrUserNotFound when absent.
func (q *UserQueries) Get(ctx context.Context, id string) (*user.User, error) {
	return q.users.GetByID(ctx, id)
}
