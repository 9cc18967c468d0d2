// Package appstate holds the client's application state: identity, the mentor
// directory, sessions, recordings, search filters and notifications.
//
// The state only changes through Reduce. Reduce is pure and never mutates its input.
package appstate

import (
	"time"

	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/user"
)

// Recording is a captured voice note. Only metadata is kept, no audio.
type Recording struct {
	ID            string    `json:"id"`
	Duration      int       `json:"duration"`
	Timestamp     time.Time `json:"timestamp"`
	Transcription string    `json:"transcription,omitempty"`
}

// Filters are the active mentor search criteria.
type Filters struct {
	Query    string `json:"query"`
	Skill    string `json:"skill"`
	Language string `json:"language"`
}

// MentorFilter converts the search criteria into a directory filter.
func (f Filters) MentorFilter() mentor.Filter {
	return mentor.Filter{Search: f.Query, Skill: f.Skill, Language: f.Language}
}

// NotificationKind is the severity of a notification.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyInfo    NotificationKind = "info"
	NotifyWarning NotificationKind = "warning"
)

// Notification is a dismissable message shown to the user.
type Notification struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
}

// State is the whole application slice.
type State struct {
	Identity        *user.User
	IsAuthenticated bool
	Mentors         []mentor.Mentor
	Sessions        []session.Session
	Recordings      []Recording
	IsRecording     bool
	Filters         Filters
	Notifications   []Notification
	Loading         bool
	Error           string
}

// Initial returns the empty state a client starts from.
func Initial() State {
	return State{
		Mentors:       []mentor.Mentor{},
		Sessions:      []session.Session{},
		Recordings:    []Recording{},
		Notifications: []Notification{},
	}
}

// FindMentor returns the directory entry with the given id.
func (s State) FindMentor(id string) (mentor.Mentor, bool) {
	for _, m := range s.Mentors {
		if m.ID == id {
			return m, true
		}
	}
	return mentor.Mentor{}, false
}

// FindSession returns the session with the given id.
func (s State) FindSession(id string) (session.Session, bool) {
	for _, ss := range s.Sessions {
		if ss.ID == id {
			return ss, true
		}
	}
	return session.Session{}, false
}

// VisibleMentors applies the active search filters to the directory.
func (s State) VisibleMentors() []mentor.Mentor {
	return s.Filters.MentorFilter().Apply(s.Mentors)
}

// CompletedSessions counts sessions in the completed state.
func (s State) CompletedSessions() int {
	n := 0
	for _, ss := range s.Sessions {
		if ss.Status == session.StatusCompleted {
			n++
		}
	}
	return n
}
