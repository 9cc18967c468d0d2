package command

import (
	"context"
	"time"

	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/pkg/logger"
)

// SessionHandler groups the session lifecycle commands. They share the
// repositories and all end by publishing a session event.
type SessionHandler struct {
	sessions session.Repository
	mentors  mentor.Repository
	deps     Deps
}

// NewSessionHandler creates the handler. mentors may be nil; it is only used
// to fill in a missing mentor name and skill.
func NewSessionHandler(sessions session.Repository, mentors mentor.Repository, deps Deps) *SessionHandler {
	return &SessionHandler{sessions: sessions, mentors: mentors, deps: deps.withDefaults()}
}

// ──────────────────────────────────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────────────────────────────────

// CreateSessionCommand books a session. ID is generated when empty and
// Status defaults to scheduled.
type CreateSessionCommand struct {
	ID            string
	MentorID      string
	MentorName    string
	UserID        string
	Skill         string
	ScheduledTime time.Time
	Duration      int
	Status        session.Status
	Type          session.Kind
	Notes         string
	Rating        *float64
}

func (h *SessionHandler) Create(ctx context.Context, cmd CreateSessionCommand) (*session.Session, error) {
	s := &session.Session{
		ID:            cmd.ID,
		MentorID:      cmd.MentorID,
		MentorName:    cmd.MentorName,
		UserID:        cmd.UserID,
		Skill:         cmd.Skill,
		ScheduledTime: cmd.ScheduledTime,
		Duration:      cmd.Duration,
		Status:        cmd.Status,
		Type:          cmd.Type,
		Notes:         cmd.Notes,
		Rating:        cmd.Rating,
		CreatedAt:     h.deps.Clock.Now().UTC(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.ID == "" {
		s.ID = h.deps.NewID()
	}
	if s.Status == "" {
		s.Status = session.StatusScheduled
	}
	if s.Type == "" {
		s.Type = session.KindVoice
	}
	if (s.MentorName == "" || s.Skill == "") && h.mentors != nil {
		if m, err := h.mentors.GetByID(ctx, s.MentorID); err == nil {
			if s.MentorName == "" {
				s.MentorName = m.Name
			}
			if s.Skill == "" {
				s.Skill = m.Skill
			}
		}
	}

	if err := h.sessions.Create(ctx, s); err != nil {
		return nil, err
	}
	h.deps.Logger.Info("session scheduled", logger.SessionID(s.ID), logger.MentorID(s.MentorID), logger.UserID(s.UserID))
	h.publish(shared.EventSessionScheduled, *s)
	return s, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Update / Delete
// ──────────────────────────────────────────────────────────────────────────────

// Update shallow-merges patch into the session.
func (h *SessionHandler) Update(ctx context.Context, id string, patch session.Patch) (*session.Session, error) {
	return h.patch(ctx, id, patch, "")
}

// Delete removes the session and returns it as it was.
func (h *SessionHandler) Delete(ctx context.Context, id string) (*session.Session, error) {
	s, err := h.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := h.sessions.Delete(ctx, id); err != nil {
		return nil, err
	}
	h.publish(shared.EventSessionCancelled, *s)
	return s, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Join / End
// ──────────────────────────────────────────────────────────────────────────────

// Join moves the session to ongoing.
func (h *SessionHandler) Join(ctx context.Context, id string) (*session.Session, error) {
	return h.patch(ctx, id, session.JoinPatch(), shared.EventSessionStarted)
}

// EndSessionCommand completes a session with the learner's feedback.
type EndSessionCommand struct {
	ID     string
	Rating *float64
	Notes  string
}

// End moves the session to completed and attaches rating and notes. The
// rating is stored as given.
func (h *SessionHandler) End(ctx context.Context, cmd EndSessionCommand) (*session.Session, error) {
	return h.patch(ctx, cmd.ID, session.EndPatch(cmd.Rating, cmd.Notes), shared.EventSessionCompleted)
}

func (h *SessionHandler) patch(ctx context.Context, id string, p session.Patch, event shared.EventType) (*session.Session, error) {
	current, err := h.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := current.Apply(p)
	if err := h.sessions.Update(ctx, &updated); err != nil {
		return nil, err
	}
	if event != "" {
		h.publish(event, updated)
	}
	return &updated, nil
}

func (h *SessionHandler) publish(t shared.EventType, s session.Session) {
	ev := shared.NewSessionEvent(t, s.ID, s.MentorID, s.MentorName, s.UserID, s.ScheduledTime)
	ev.Timestamp = h.deps.Clock.Now().UTC()
	h.deps.publish(ev)
}
