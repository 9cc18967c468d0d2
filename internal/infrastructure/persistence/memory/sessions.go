package memory

import (
	"context"
	"sync"

	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/shared"
)

// SessionRepository keeps sessions in creation order.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions []session.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

var _ session.Repository = (*SessionRepository)(nil)

func (r *SessionRepository) Create(_ context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index(s.ID) >= 0 {
		return shared.NewError("session.Create", shared.ErrAlreadyExists, "Session already exists")
	}
	r.sessions = append(r.sessions, s.Clone())
	return nil
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.index(id); i >= 0 {
		s := r.sessions[i].Clone()
		return &s, nil
	}
	return nil, shared.ErrSessionNotFound
}

func (r *SessionRepository) List(_ context.Context) ([]session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]session.Session, len(r.sessions))
	for i, s := range r.sessions {
		out[i] = s.Clone()
	}
	return out, nil
}

func (r *SessionRepository) Update(_ context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(s.ID)
	if i < 0 {
		return shared.ErrSessionNotFound
	}
	r.sessions[i] = s.Clone()
	return nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return shared.ErrSessionNotFound
	}
	r.sessions = append(r.sessions[:i:i], r.sessions[i+1:]...)
	return nil
}

func (r *SessionRepository) index(id string) int {
	for i := range r.sessions {
		if r.sessions[i].ID == id {
			return i
		}
	}
	return -1
}
