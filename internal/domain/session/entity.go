// Package session contains the mentorship session model and its lifecycle.
package session

import (
	"time"

	"github.com/voicementor/voicementor/internal/domain/shared"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Kind is the medium of a session.
type Kind string

const (
	KindVoice Kind = "voice"
	KindVideo Kind = "video"
	KindChat  Kind = "chat"
)

// Session is a scheduled or active engagement between a user and a mentor.
type Session struct {
	ID            string    `json:"id"`
	MentorID      string    `json:"mentorId"`
	MentorName    string    `json:"mentorName"`
	UserID        string    `json:"userId"`
	Skill         string    `json:"skill"`
	ScheduledTime time.Time `json:"scheduledTime"`
	Duration      int       `json:"duration"`
	Status        Status    `json:"status"`
	Type          Kind      `json:"type"`
	Notes         string    `json:"notes,omitempty"`
	Rating        *float64  `json:"rating,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Validate checks the presence of the fields required to book a session.
func (s *Session) Validate() error {
	if s.MentorID == "" || s.UserID == "" || s.ScheduledTime.IsZero() {
		return shared.ErrSessionFieldsMissing
	}
	return nil
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	if s.Rating != nil {
		r := *s.Rating
		s.Rating = &r
	}
	return s
}

// Patch holds optional updates; nil means "don't change".
type Patch struct {
	MentorID      *string    `json:"mentorId,omitempty"`
	UserID        *string    `json:"userId,omitempty"`
	MentorName    *string    `json:"mentorName,omitempty"`
	Skill         *string    `json:"skill,omitempty"`
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
	Duration      *int       `json:"duration,omitempty"`
	Status        *Status    `json:"status,omitempty"`
	Type          *Kind      `json:"type,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	Rating        *float64   `json:"rating,omitempty"`
}

// Apply returns a copy of s with every non-nil patch field applied.
func (s Session) Apply(p Patch) Session {
	c := s.Clone()
	if p.MentorID != nil {
		c.MentorID = *p.MentorID
	}
	if p.UserID != nil {
		c.UserID = *p.UserID
	}
	if p.MentorName != nil {
		c.MentorName = *p.MentorName
	}
	if p.Skill != nil {
		c.Skill = *p.Skill
	}
	if p.ScheduledTime != nil {
		c.ScheduledTime = *p.ScheduledTime
	}
	if p.Duration != nil {
		c.Duration = *p.Duration
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	if p.Rating != nil {
		r := *p.Rating
		c.Rating = &r
	}
	return c
}

// Join returns the patch that starts s. Only a scheduled session can start.
func (s Session) Join() (Patch, error) {
	if s.Status != StatusScheduled {
		return Patch{}, shared.ErrSessionNotScheduled
	}
	return JoinPatch(), nil
}

// End returns the patch that completes s. Only an ongoing session can end.
func (s Session) End(rating *float64, notes string) (Patch, error) {
	if s.Status != StatusOngoing {
		return Patch{}, shared.ErrSessionNotOngoing
	}
	return EndPatch(rating, notes), nil
}

// JoinPatch moves a session to ongoing. The server applies it without a
// status check.
func JoinPatch() Patch {
	st := StatusOngoing
	return Patch{Status: &st}
}

// EndPatch completes a session and attaches the learner's rating and notes.
func EndPatch(rating *float64, notes string) Patch {
	st := StatusCompleted
	return Patch{Status: &st, Rating: rating, Notes: &notes}
}

// ══════════════════════════════════════════════════════════════════════════════
// FILTERING
// ══════════════════════════════════════════════════════════════════════════════

// Filter narrows a session listing by exact match. Empty fields match everything.
type Filter struct {
	UserID   string
	MentorID string
	Status   Status
}

// Matches reports whether s passes every active criterion.
func (f Filter) Matches(s Session) bool {
	if f.UserID != "" && s.UserID != f.UserID {
		return false
	}
	if f.MentorID != "" && s.MentorID != f.MentorID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return true
}
