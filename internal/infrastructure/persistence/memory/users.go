// Package memory provides map-backed repositories. They are the API server's
// default storage and the fixtures for handler tests.
package memory

import (
	"context"
	"sync"

	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/internal/domain/user"
)

// UserRepository keeps users in registration order.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*user.User
	order   []string
	byPhone map[string]string
}

// NewUserRepository creates an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*user.User),
		byPhone: make(map[string]string),
	}
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byPhone[u.Phone]; taken {
		return shared.ErrPhoneTaken
	}
	if _, exists := r.byID[u.ID]; exists {
		return shared.NewError("user.Create", shared.ErrAlreadyExists, "User already exists")
	}
	r.byID[u.ID] = u.Clone()
	r.byPhone[u.Phone] = u.ID
	r.order = append(r.order, u.ID)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (r *UserRepository) GetByPhone(_ context.Context, phone string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPhone[phone]
	if !ok {
		return nil, shared.ErrPhoneNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *UserRepository) List(_ context.Context) ([]*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*user.User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	return out, nil
}

// Update replaces the user. A changed phone must not belong to someone else.
func (r *UserRepository) Update(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[u.ID]
	if !ok {
		return shared.ErrUserNotFound
	}
	if u.Phone != old.Phone {
		if owner, taken := r.byPhone[u.Phone]; taken && owner != u.ID {
			return shared.ErrPhoneTaken
		}
		delete(r.byPhone, old.Phone)
		r.byPhone[u.Phone] = u.ID
	}
	r.byID[u.ID] = u.Clone()
	return nil
}
