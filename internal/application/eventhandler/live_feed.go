// Package eventhandler contains domain event handlers.
// They react to committed changes and run side effects such as pushing
// entries onto the websocket live feed.
package eventhandler

import (
	"fmt"
	"time"

	"github.com/facebookgo/clock"

	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/pkg/logger"
)

// Broadcaster fans a live event out to connected clients.
type Broadcaster interface {
	Broadcast(ev interactive.LiveEvent)
}

// LiveFeedConfig holds the handler's collaborators. Zero values get defaults.
type LiveFeedConfig struct {
	Clock  clock.Clock
	NewID  shared.IDGenerator
	Logger *logger.Logger
}

// base carries what both live-feed handlers share.
type base struct {
	out   Broadcaster
	clock clock.Clock
	newID shared.IDGenerator
	log   *logger.Logger
}

func newBase(out Broadcaster, cfg LiveFeedConfig, name string) base {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.NewID == nil {
		cfg.NewID = shared.NewID
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return base{
		out:   out,
		clock: cfg.Clock,
		newID: cfg.NewID,
		log:   cfg.Logger.With(logger.Component("eventhandler"), logger.String("handler", name)),
	}
}

func (b base) emit(t interactive.LiveEventType, title, desc string, data map[string]any) {
	b.out.Broadcast(interactive.LiveEvent{
		ID:          b.newID(),
		Type:        t,
		Title:       title,
		Description: desc,
		Timestamp:   b.clock.Now().UTC(),
		Data:        data,
	})
}

// payloadString reads a string field from an event payload. Events that came
// over Redis carry their payload as decoded JSON, so only strings are trusted.
func payloadString(e shared.Event, key string) string {
	if v, ok := e.Payload()[key].(string); ok {
		return v
	}
	return ""
}

// payloadTime accepts both local time.Time values and RFC 3339 strings from Redis.
func payloadTime(e shared.Event, key string) (time.Time, bool) {
	switch v := e.Payload()[key].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		return t, err == nil
	default:
		return time.Time{}, false
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ON MENTOR ONLINE
// ═══════════════════════════════════════════════════════════════════════════

// OnMentorOnlineHandler turns mentor.went_online into a mentor_online entry.
type OnMentorOnlineHandler struct {
	base
}

func NewOnMentorOnlineHandler(out Broadcaster, cfg LiveFeedConfig) *OnMentorOnlineHandler {
	return &OnMentorOnlineHandler{base: newBase(out, cfg, "on_mentor_online")}
}

// Handle implements shared.EventHandler.
func (h *OnMentorOnlineHandler) Handle(event shared.Event) error {
	if event.EventType() != shared.EventMentorWentOnline {
		return nil
	}
	name := payloadString(event, "mentor_name")
	if name == "" {
		name = "A mentor"
	}

	h.log.Debug("mentor online", logger.MentorID(event.AggregateID()))
	h.emit(interactive.EventMentorOnline,
		"Mentor Online",
		fmt.Sprintf("%s is now available for sessions", name),
		map[string]any{"mentorId": event.AggregateID()},
	)
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// ON SESSION STARTED
// ═══════════════════════════════════════════════════════════════════════════

// OnSessionStartedHandler turns session.started and session.reminder into
// session_starting entries.
type OnSessionStartedHandler struct {
	base
}

func NewOnSessionStartedHandler(out Broadcaster, cfg LiveFeedConfig) *OnSessionStartedHandler {
	return &OnSessionStartedHandler{base: newBase(out, cfg, "on_session_started")}
}

// Handle implements shared.EventHandler.
func (h *OnSessionStartedHandler) Handle(event shared.Event) error {
	t := event.EventType()
	if t != shared.EventSessionStarted && t != shared.EventSessionReminder {
		return nil
	}
	name := payloadString(event, "mentor_name")
	at, hasTime := payloadTime(event, "scheduled_time")

	data := map[string]any{"sessionId": event.AggregateID()}
	if id := payloadString(event, "mentor_id"); id != "" {
		data["mentorId"] = id
	}
	if hasTime {
		data["scheduledTime"] = at.UTC().Format(time.RFC3339)
	}

	desc := "Your session is starting now"
	if name != "" {
		desc = fmt.Sprintf("Your session with %s is starting now", name)
	}
	if t == shared.EventSessionReminder && hasTime {
		mins := int(at.Sub(h.clock.Now()).Round(time.Minute) / time.Minute)
		if mins > 0 {
			with := ""
			if name != "" {
				with = " with " + name
			}
			desc = fmt.Sprintf("Your session%s starts in %d minutes", with, mins)
		}
	}

	h.log.Debug("session starting", logger.SessionID(event.AggregateID()), logger.String("event_type", string(t)))
	h.emit(interactive.EventSessionStarting, "Session Reminder", desc, data)
	return nil
}
