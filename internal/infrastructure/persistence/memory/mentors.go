package memory

import (
	"context"
	"sync"

	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/shared"
)

// MentorRepository keeps the directory in seed order.
type MentorRepository struct {
	mu      sync.RWMutex
	mentors []mentor.Mentor
}

func NewMentorRepository() *MentorRepository {
	return &MentorRepository{}
}

var _ mentor.Repository = (*MentorRepository)(nil)

func (r *MentorRepository) List(_ context.Context) ([]mentor.Mentor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]mentor.Mentor, len(r.mentors))
	for i, m := range r.mentors {
		out[i] = m.Clone()
	}
	return out, nil
}

func (r *MentorRepository) GetByID(_ context.Context, id string) (*mentor.Mentor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.index(id); i >= 0 {
		m := r.mentors[i].Clone()
		return &m, nil
	}
	return nil, shared.ErrMentorNotFound
}

func (r *MentorRepository) Update(_ context.Context, m *mentor.Mentor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(m.ID)
	if i < 0 {
		return shared.ErrMentorNotFound
	}
	r.mentors[i] = m.Clone()
	return nil
}

// Seed replaces mentors with matching ids in place and appends the rest.
func (r *MentorRepository) Seed(_ context.Context, mentors []mentor.Mentor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range mentors {
		if i := r.index(m.ID); i >= 0 {
			r.mentors[i] = m.Clone()
			continue
		}
		r.mentors = append(r.mentors, m.Clone())
	}
	return nil
}

func (r *MentorRepository) index(id string) int {
	for i := range r.mentors {
		if r.mentors[i].ID == id {
			return i
		}
	}
	return -1
}
