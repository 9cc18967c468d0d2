package interactive

import (
	"time"

	"github.com/voicementor/voicementor/internal/domain/gamification"
)

// Action is the closed set of interactive state transitions.
type Action interface {
	interactiveAction()
}

type (
	AddChatMessage  struct{ Message ChatMessage }
	MarkMessageRead struct{ ID string }

	// SetTypingIndicator is keyed by the counterpart's id. Last write wins.
	SetTypingIndicator struct {
		UserID string
		Typing bool
	}

	// AddPoints awards a non-negative delta. Negative deltas are ignored.
	AddPoints struct{ Delta int }

	// UpdateStreak sets the streak to an externally computed value.
	// At stamps the activity date; zero means now.
	UpdateStreak struct {
		Streak int
		At     time.Time
	}

	// UnlockBadge awards a badge once.
	UnlockBadge struct{ Badge gamification.Badge }

	// LevelUp is accepted but has no effect: the level follows the points.
	LevelUp struct{ Level int }

	AddLiveEvent          struct{ Event LiveEvent }
	SetActiveChat         struct{ ID string }
	SetVoiceVisualization struct{ Active bool }
	UpdateAudioLevel      struct{ Level float64 }
	AddCelebration        struct{ Celebration Celebration }
	RemoveCelebration     struct{ ID string }
	SetTutorialStep       struct{ Step int }
	SetTutorialActive     struct{ Active bool }
	UpdateMousePosition   struct{ Position Point }
	UpdateLastInteraction struct{ At time.Time }
)

func (AddChatMessage) interactiveAction()        {}
func (MarkMessageRead) interactiveAction()       {}
func (SetTypingIndicator) interactiveAction()    {}
func (AddPoints) interactiveAction()             {}
func (UpdateStreak) interactiveAction()          {}
func (UnlockBadge) interactiveAction()           {}
func (LevelUp) interactiveAction()               {}
func (AddLiveEvent) interactiveAction()          {}
func (SetActiveChat) interactiveAction()         {}
func (SetVoiceVisualization) interactiveAction() {}
func (UpdateAudioLevel) interactiveAction()      {}
func (AddCelebration) interactiveAction()        {}
func (RemoveCelebration) interactiveAction()     {}
func (SetTutorialStep) interactiveAction()       {}
func (SetTutorialActive) interactiveAction()     {}
func (UpdateMousePosition) interactiveAction()   {}
func (UpdateLastInteraction) interactiveAction() {}
