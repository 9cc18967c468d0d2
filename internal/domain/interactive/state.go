// Package interactive holds the engagement side of the client: chat, gamification
// stats, the live event feed, celebrations and UI interaction flags.
package interactive

import (
	"time"

	"github.com/voicementor/voicementor/internal/domain/gamification"
)

// LiveEventCap bounds the live feed. Older entries are evicted by position.
const LiveEventCap = 10

// ══════════════════════════════════════════════════════════════════════════════
// CHAT
// ══════════════════════════════════════════════════════════════════════════════

// MessageType classifies a chat message.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageVoice  MessageType = "voice"
	MessageEmoji  MessageType = "emoji"
	MessageSystem MessageType = "system"
)

// ChatMessage is immutable after creation except for IsRead.
type ChatMessage struct {
	ID         string      `json:"id"`
	SenderID   string      `json:"senderId"`
	SenderName string      `json:"senderName"`
	ReceiverID string      `json:"receiverId"`
	Message    string      `json:"message"`
	Timestamp  time.Time   `json:"timestamp"`
	Type       MessageType `json:"type"`
	IsRead     bool        `json:"isRead"`
}

// ══════════════════════════════════════════════════════════════════════════════
// LIVE FEED
// ══════════════════════════════════════════════════════════════════════════════

// LiveEventType classifies a feed entry.
type LiveEventType string

const (
	EventMentorOnline        LiveEventType = "mentor_online"
	EventSessionStarting     LiveEventType = "session_starting"
	EventAchievementUnlocked LiveEventType = "achievement_unlocked"
	EventNewMessage          LiveEventType = "new_message"
	EventStreakMilestone     LiveEventType = "streak_milestone"
)

// LiveEvent is a real-time feed entry, whatever its source.
type LiveEvent struct {
	ID          string         `json:"id"`
	Type        LiveEventType  `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	Data        map[string]any `json:"data,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CELEBRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// CelebrationType classifies a celebration.
type CelebrationType string

const (
	CelebrateAchievement     CelebrationType = "achievement"
	CelebrateLevelUp         CelebrationType = "level_up"
	CelebrateStreak          CelebrationType = "streak"
	CelebrateSessionComplete CelebrationType = "session_complete"
)

// Celebration is a transient notice. DurationMs <= 0 means it stays until dismissed.
type Celebration struct {
	ID         string          `json:"id"`
	Type       CelebrationType `json:"type"`
	Title      string          `json:"title"`
	Message    string          `json:"message"`
	DurationMs int             `json:"duration"`
	Timestamp  time.Time       `json:"timestamp"`
}

// TTL returns how long the celebration stays visible, or 0 if it never expires.
func (c Celebration) TTL() time.Duration {
	if c.DurationMs <= 0 {
		return 0
	}
	return time.Duration(c.DurationMs) * time.Millisecond
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE
// ══════════════════════════════════════════════════════════════════════════════

// Point is a screen position.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// State is the interactive slice.
type State struct {
	ChatMessages       []ChatMessage
	Gamification       gamification.Stats
	LiveEvents         []LiveEvent
	ActiveChatID       string
	TypingIndicators   map[string]bool
	VoiceVisualization bool
	AudioLevel         float64
	Celebrations       []Celebration
	TutorialStep       int
	TutorialActive     bool
	MousePosition      Point
	LastInteraction    time.Time
}

// Initial returns the starting state stamped with now.
func Initial(now time.Time) State {
	return State{
		ChatMessages:     []ChatMessage{},
		Gamification:     gamification.DefaultStats(),
		LiveEvents:       []LiveEvent{},
		TypingIndicators: map[string]bool{},
		Celebrations:     []Celebration{},
		LastInteraction:  now,
	}
}

// IsTyping reports whether the counterpart is currently typing.
func (s State) IsTyping(userID string) bool {
	return s.TypingIndicators[userID]
}

// LastMessage returns the most recent chat message.
func (s State) LastMessage() (ChatMessage, bool) {
	if len(s.ChatMessages) == 0 {
		return ChatMessage{}, false
	}
	return s.ChatMessages[len(s.ChatMessages)-1], true
}

// Conversation returns the messages exchanged between two parties, oldest first.
func (s State) Conversation(a, b string) []ChatMessage {
	out := make([]ChatMessage, 0)
	for _, m := range s.ChatMessages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	return out
}

// UnreadFrom counts unread messages sent by senderID.
func (s State) UnreadFrom(senderID string) int {
	n := 0
	for _, m := range s.ChatMessages {
		if m.SenderID == senderID && !m.IsRead {
			n++
		}
	}
	return n
}

// FindCelebration returns the celebration with the given id.
func (s State) FindCelebration(id string) (Celebration, bool) {
	for _, c := range s.Celebrations {
		if c.ID == id {
			return c, true
		}
	}
	return Celebration{}, false
}
