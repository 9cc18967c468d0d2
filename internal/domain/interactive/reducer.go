package interactive

import (
	"fmt"
	"time"

	"github.com/voicementor/voicementor/internal/domain/gamification"
	"github.com/voicementor/voicementor/internal/domain/shared"
)

// Celebration display durations in milliseconds.
const (
	celebrationMs      = 3000
	badgeCelebrationMs = 4000
)

// Reducer applies interactive actions. NewID and Now are the only sources of
// nondeterminism and are injected so tests can pin them.
type Reducer struct {
	NewID func() string
	Now   func() time.Time
}

// NewReducer returns a reducer backed by UUIDs and the wall clock.
func NewReducer() Reducer {
	return Reducer{NewID: shared.NewID, Now: time.Now}
}

// Reduce applies a to s and returns the next state. Unknown or nil actions
// return s unchanged. The input state is never modified.
func (r Reducer) Reduce(s State, a Action) State {
	switch act := a.(type) {
	case AddChatMessage:
		s.ChatMessages = appendCopy(s.ChatMessages, act.Message)
		return s

	case MarkMessageRead:
		for i, m := range s.ChatMessages {
			if m.ID != act.ID || m.IsRead {
				continue
			}
			msgs := append([]ChatMessage(nil), s.ChatMessages...)
			msgs[i].IsRead = true
			s.ChatMessages = msgs
			return s
		}
		return s

	case SetTypingIndicator:
		indicators := make(map[string]bool, len(s.TypingIndicators)+1)
		for k, v := range s.TypingIndicators {
			indicators[k] = v
		}
		indicators[act.UserID] = act.Typing
		s.TypingIndicators = indicators
		return s

	case AddPoints:
		return r.addPoints(s, act.Delta)

	case UpdateStreak:
		return r.updateStreak(s, act.Streak, act.At)

	case UnlockBadge:
		return r.unlockBadge(s, act.Badge)

	case LevelUp:
		return s

	case AddLiveEvent:
		events := make([]LiveEvent, 0, LiveEventCap)
		events = append(events, act.Event)
		for _, e := range s.LiveEvents {
			if len(events) == LiveEventCap {
				break
			}
			events = append(events, e)
		}
		s.LiveEvents = events
		return s

	case SetActiveChat:
		s.ActiveChatID = act.ID
		return s

	case SetVoiceVisualization:
		s.VoiceVisualization = act.Active
		return s

	case UpdateAudioLevel:
		s.AudioLevel = act.Level
		return s

	case AddCelebration:
		s.Celebrations = appendCopy(s.Celebrations, act.Celebration)
		return s

	case RemoveCelebration:
		out := make([]Celebration, 0, len(s.Celebrations))
		for _, c := range s.Celebrations {
			if c.ID != act.ID {
				out = append(out, c)
			}
		}
		if len(out) == len(s.Celebrations) {
			return s
		}
		s.Celebrations = out
		return s

	case SetTutorialStep:
		s.TutorialStep = act.Step
		return s

	case SetTutorialActive:
		s.TutorialActive = act.Active
		return s

	case UpdateMousePosition:
		s.MousePosition = act.Position
		return s

	case UpdateLastInteraction:
		s.LastInteraction = act.At
		return s

	default:
		return s
	}
}

// addPoints updates points and level and, when a level boundary is crossed,
// appends the level_up celebration in the same step.
func (r Reducer) addPoints(s State, delta int) State {
	if delta < 0 {
		return s
	}
	stats := s.Gamification
	prevLevel := stats.Level
	stats.Points += delta
	stats.Level = gamification.LevelFor(stats.Points)
	s.Gamification = stats

	if stats.Level > prevLevel {
		s.Celebrations = appendCopy(s.Celebrations, r.celebration(
			CelebrateLevelUp,
			"Level Up!",
			fmt.Sprintf("You've reached level %d!", stats.Level),
			celebrationMs,
		))
	}
	return s
}

// updateStreak sets the streak and celebrates every increase onto a multiple of 7.
func (r Reducer) updateStreak(s State, streak int, at time.Time) State {
	if streak < 0 {
		return s
	}
	stats := s.Gamification
	increased := streak > stats.Streak
	stats.Streak = streak
	if at.IsZero() {
		at = r.Now()
	}
	stats.LastActivityDate = at
	s.Gamification = stats

	if increased && streak%7 == 0 {
		s.Celebrations = appendCopy(s.Celebrations, r.celebration(
			CelebrateStreak,
			"Streak Milestone!",
			fmt.Sprintf("%d days in a row! 🔥", streak),
			celebrationMs,
		))
	}
	return s
}

// unlockBadge appends a badge not yet held together with its celebration.
func (r Reducer) unlockBadge(s State, b gamification.Badge) State {
	if s.Gamification.HasBadge(b.ID) {
		return s
	}
	stats := s.Gamification
	stats.Badges = appendCopy(stats.Badges, b)
	s.Gamification = stats
	s.Celebrations = appendCopy(s.Celebrations, r.celebration(
		CelebrateAchievement,
		"Badge Unlocked!",
		b.Name,
		badgeCelebrationMs,
	))
	return s
}

func (r Reducer) celebration(kind CelebrationType, title, message string, durationMs int) Celebration {
	return Celebration{
		ID:         r.NewID(),
		Type:       kind,
		Title:      title,
		Message:    message,
		DurationMs: durationMs,
		Timestamp:  r.Now(),
	}
}

// NewMessage builds an unread chat message with a fresh id.
func (r Reducer) NewMessage(senderID, senderName, receiverID, text string, kind MessageType) ChatMessage {
	if kind == "" {
		kind = MessageText
	}
	return ChatMessage{
		ID:         r.NewID(),
		SenderID:   senderID,
		SenderName: senderName,
		ReceiverID: receiverID,
		Message:    text,
		Timestamp:  r.Now(),
		Type:       kind,
	}
}

// ChallengeCompleted builds the celebration shown when a daily challenge is done.
func (r Reducer) ChallengeCompleted(c gamification.Challenge) Celebration {
	return r.celebration(
		CelebrateAchievement,
		"Challenge Complete!",
		fmt.Sprintf("+%d points earned!", c.Points),
		celebrationMs,
	)
}

func appendCopy[T any](list []T, v T) []T {
	out := make([]T, len(list), len(list)+1)
	copy(out, list)
	return append(out, v)
}
