package query

import (
	"context"
	"sort"
	"time"

	"github.com/voicementor/voicementor/internal/domain/session"
)

// SessionQueries reads the session repository.
type SessionQueries struct {
	sessions session.Repository
}

func NewSessionQueries(sessions session.Repository) *SessionQueries {
	return &SessionQueries{sessions: sessions}
}

// List returns the sessions matching f, earliest scheduled first.
// Sessions scheduled at the same instant keep their stored order.
func (q *SessionQueries) List(ctx context.Context, f session.Filter) ([]session.Session, error) {
	all, err := q.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]session.Session, 0, len(all))
	for _, s := range all {
		if f.Matches(s) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledTime.Before(out[j].ScheduledTime)
	})
	return out, nil
}

// Get returns shared.ErrSessionNotFound when absent.
func (q *SessionQueries) Get(ctx context.Context, id string) (*session.Session, error) {
	return q.sessions.GetByID(ctx, id)
}

// Upcoming returns scheduled sessions whose start falls in [from, to).
func (q *SessionQueries) Upcoming(ctx context.Context, from, to time.Time) ([]session.Session, error) {
	list, err := q.List(ctx, session.Filter{Status: session.StatusScheduled})
	if err != nil {
		return nil, err
	}
	out := list[:0]
	for _, s := range list {
		if !s.ScheduledTime.Before(from) && s.ScheduledTime.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}
