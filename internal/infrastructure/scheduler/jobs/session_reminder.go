// Package jobs contains the server's scheduled jobs.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/facebookgo/clock"

	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REMINDER JOB
// ══════════════════════════════════════════════════════════════════════════════

// UpcomingSessions lists scheduled sessions starting in [from, to).
type UpcomingSessions interface {
	Upcoming(ctx context.Context, from, to time.Time) ([]session.Session, error)
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event shared.Event) error
}

// SessionReminderConfig contains configuration for the reminder job.
type SessionReminderConfig struct {
	// Window is how far ahead a session gets its reminder.
	Window time.Duration

	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultSessionReminderConfig returns sensible defaults.
func DefaultSessionReminderConfig() SessionReminderConfig {
	return SessionReminderConfig{
		Window:  15 * time.Minute,
		Timeout: 30 * time.Second,
	}
}

// SessionReminderStats contains statistics from one run.
type SessionReminderStats struct {
	StartedAt     time.Time
	Duration      time.Duration
	Upcoming      int
	RemindersSent int
	AlreadySent   int
	Failed        int
}

// SessionReminderJob publishes session.reminder once per session as its
// start enters the reminder window.
type SessionReminderJob struct {
	sessions  UpcomingSessions
	publisher EventPublisher
	clock     clock.Clock
	logger    *logger.Logger
	config    SessionReminderConfig

	mu       sync.Mutex
	reminded map[string]time.Time // session id -> scheduled time it was reminded for

	lastRunStats atomic.Value // SessionReminderStats
}

// NewSessionReminderJob creates the job. A nil clock uses the wall clock.
func NewSessionReminderJob(sessions UpcomingSessions, publisher EventPublisher, clk clock.Clock, log *logger.Logger, config SessionReminderConfig) *SessionReminderJob {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	if config.Window <= 0 {
		config.Window = DefaultSessionReminderConfig().Window
	}
	return &SessionReminderJob{
		sessions:  sessions,
		publisher: publisher,
		clock:     clk,
		logger:    log.With(logger.Component("job"), logger.String("job", "session_reminder")),
		config:    config,
		reminded:  make(map[string]time.Time),
	}
}

func (j *SessionReminderJob) Name() string {
	return "session_reminder"
}

func (j *SessionReminderJob) Description() string {
	return "Reminds users of sessions that are about to start"
}

// Run implements scheduler.Job.
func (j *SessionReminderJob) Run(ctx context.Context) error {
	now := j.clock.Now()
	stats := SessionReminderStats{StartedAt: now}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	upcoming, err := j.sessions.Upcoming(ctx, now, now.Add(j.config.Window))
	if err != nil {
		return fmt.Errorf("failed to list upcoming sessions: %w", err)
	}
	stats.Upcoming = len(upcoming)

	j.mu.Lock()
	defer j.mu.Unlock()

	for _, s := range upcoming {
		// a rescheduled session gets a fresh reminder
		if at, ok := j.reminded[s.ID]; ok && at.Equal(s.ScheduledTime) {
			stats.AlreadySent++
			continue
		}
		event := shared.NewSessionEvent(shared.EventSessionReminder, s.ID, s.MentorID, s.MentorName, s.UserID, s.ScheduledTime)
		if err := j.publisher.Publish(event); err != nil {
			stats.Failed++
			j.logger.Warn("failed to publish reminder", logger.SessionID(s.ID), logger.Err(err))
			continue
		}
		j.reminded[s.ID] = s.ScheduledTime
		stats.RemindersSent++
	}

	// forget sessions whose start has passed
	for id, at := range j.reminded {
		if at.Before(now) {
			delete(j.reminded, id)
		}
	}

	stats.Duration = j.clock.Now().Sub(now)
	j.lastRunStats.Store(stats)

	if stats.RemindersSent > 0 || stats.Failed > 0 {
		j.logger.Info("session reminders sent",
			logger.Int("sent", stats.RemindersSent),
			logger.Int("failed", stats.Failed),
			logger.Int("upcoming", stats.Upcoming),
		)
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d reminders failed", stats.Failed, stats.Upcoming)
	}
	return nil
}

// LastRunStats returns the statistics from the last run.
func (j *SessionReminderJob) LastRunStats() (SessionReminderStats, bool) {
	s, ok := j.lastRunStats.Load().(SessionReminderStats)
	return s, ok
}
