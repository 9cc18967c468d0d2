package appstate

import (
	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/user"
)

// Action is the closed set of application state transitions.
// Only types in this package implement it.
type Action interface {
	appAction()
}

type (
	// SetIdentity signs a user in.
	SetIdentity struct{ User *user.User }

	// ClearIdentity signs the user out and drops their sessions and recordings.
	ClearIdentity struct{}

	// SetMentorDirectory replaces the directory.
	SetMentorDirectory struct{ Mentors []mentor.Mentor }

	// PatchMentor shallow-merges into the mentor with a matching id.
	PatchMentor struct {
		ID    string
		Patch mentor.Patch
	}

	// AddSession appends a session.
	AddSession struct{ Session session.Session }

	// PatchSession shallow-merges into the session with a matching id.
	PatchSession struct {
		ID    string
		Patch session.Patch
	}

	// RemoveSession drops the session with a matching id.
	RemoveSession struct{ ID string }

	// AddRecording appends a voice recording.
	AddRecording struct{ Recording Recording }

	// SetRecordingFlag marks capture as running or stopped.
	SetRecordingFlag struct{ Recording bool }

	// SetSearchFilters sets the supplied filters. Nil fields keep their value.
	SetSearchFilters struct {
		Query    *string
		Skill    *string
		Language *string
	}

	// AddNotification appends a notification.
	AddNotification struct{ Notification Notification }

	// RemoveNotification drops the notification with a matching id.
	RemoveNotification struct{ ID string }

	// SetLoading toggles the loading flag.
	SetLoading struct{ Loading bool }

	// SetError sets the error message. An empty message clears it.
	SetError struct{ Message string }

	// AddAchievement appends to the signed-in user's achievements.
	AddAchievement struct{ Achievement user.Achievement }

	// SetProgress sets the signed-in user's progress, clamped to 0..100.
	SetProgress struct{ Progress int }
)

func (SetIdentity) appAction()        {}
func (ClearIdentity) appAction()      {}
func (SetMentorDirectory) appAction() {}
func (PatchMentor) appAction()        {}
func (AddSession) appAction()         {}
func (PatchSession) appAction()       {}
func (RemoveSession) appAction()      {}
func (AddRecording) appAction()       {}
func (SetRecordingFlag) appAction()   {}
func (SetSearchFilters) appAction()   {}
func (AddNotification) appAction()    {}
func (RemoveNotification) appAction() {}
func (SetLoading) appAction()         {}
func (SetError) appAction()           {}
func (AddAchievement) appAction()     {}
func (SetProgress) appAction()        {}
