package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types published by the API server.
const (
	// User events
	EventUserRegistered EventType = "user.registered"
	EventUserLoggedIn   EventType = "user.logged_in"

	// Mentor events
	EventMentorWentOnline  EventType = "mentor.went_online"
	EventMentorWentOffline EventType = "mentor.went_offline"

	// Session events
	EventSessionScheduled EventType = "session.scheduled"
	EventSessionStarted   EventType = "session.started"
	EventSessionCompleted EventType = "session.completed"
	EventSessionCancelled EventType = "session.cancelled"
	EventSessionReminder  EventType = "session.reminder"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes one event.
type EventHandler func(event Event) error

// EventBus publishes events to subscribed handlers.
type EventBus interface {
	Publish(event Event) error
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
	Close() error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType returns the event type.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the aggregate ID.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped with the current time.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// USER EVENTS
// ──────────────────────────────────────────────────────────────────────────────

// UserRegisteredEvent is published when a new user signs up.
type UserRegisteredEvent struct {
	BaseEvent
	Name string
	Role string
}

// Payload returns the event data.
func (e UserRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.AggregateId,
		"name":    e.Name,
		"role":    e.Role,
	}
}

// NewUserRegisteredEvent creates a UserRegisteredEvent.
func NewUserRegisteredEvent(userID, name, role string) UserRegisteredEvent {
	return UserRegisteredEvent{
		BaseEvent: NewBaseEvent(EventUserRegistered, userID),
		Name:      name,
		Role:      role,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// MENTOR EVENTS
// ──────────────────────────────────────────────────────────────────────────────

// MentorStatusChangedEvent is published when a mentor toggles their online flag.
type MentorStatusChangedEvent struct {
	BaseEvent
	MentorName   string
	Online       bool
	Availability string
}

// Payload returns the event data.
func (e MentorStatusChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"mentor_id":    e.AggregateId,
		"mentor_name":  e.MentorName,
		"online":       e.Online,
		"availability": e.Availability,
	}
}

// NewMentorStatusChangedEvent creates the online or offline variant depending on online.
func NewMentorStatusChangedEvent(mentorID, name string, online bool, availability string) MentorStatusChangedEvent {
	t := EventMentorWentOffline
	if online {
		t = EventMentorWentOnline
	}
	return MentorStatusChangedEvent{
		BaseEvent:    NewBaseEvent(t, mentorID),
		MentorName:   name,
		Online:       online,
		Availability: availability,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// SESSION EVENTS
// ──────────────────────────────────────────────────────────────────────────────

// SessionEvent covers the session lifecycle transitions.
type SessionEvent struct {
	BaseEvent
	MentorID   string
	MentorName string
	UserID     string
	Scheduled  time.Time
}

// Payload returns the event data.
func (e SessionEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":     e.AggregateId,
		"mentor_id":      e.MentorID,
		"mentor_name":    e.MentorName,
		"user_id":        e.UserID,
		"scheduled_time": e.Scheduled,
	}
}

// NewSessionEvent creates a session lifecycle event of the given type.
func NewSessionEvent(t EventType, sessionID, mentorID, mentorName, userID string, scheduled time.Time) SessionEvent {
	return SessionEvent{
		BaseEvent:  NewBaseEvent(t, sessionID),
		MentorID:   mentorID,
		MentorName: mentorName,
		UserID:     userID,
		Scheduled:  scheduled,
	}
}
