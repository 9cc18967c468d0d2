package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/shared"
)

type fakeSessions struct {
	list []session.Session
}

func (f *fakeSessions) Upcoming(_ context.Context, from, to time.Time) ([]session.Session, error) {
	var out []session.Session
	for _, s := range f.list {
		if !s.ScheduledTime.Before(from) && s.ScheduledTime.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

type recorder struct {
	events []shared.Event
	err    error
}

func (r *recorder) Publish(e shared.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func TestSessionReminder_OncePerSession(t *testing.T) {
	mock := clock.NewMock()
	now := mock.Now()
	sessions := &fakeSessions{list: []session.Session{
		{ID: "soon", MentorID: "1", MentorName: "Priya Singh", UserID: "u1", ScheduledTime: now.Add(10 * time.Minute)},
		{ID: "later", MentorID: "2", UserID: "u1", ScheduledTime: now.Add(time.Hour)},
	}}
	pub := &recorder{}
	job := NewSessionReminderJob(sessions, pub, mock, nil, DefaultSessionReminderConfig())

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, pub.events, 1)
	assert.Equal(t, shared.EventSessionReminder, pub.events[0].EventType())
	assert.Equal(t, "soon", pub.events[0].AggregateID())

	// second run inside the window does not repeat
	mock.Add(time.Minute)
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, pub.events, 1)
	stats, ok := job.LastRunStats()
	require.True(t, ok)
	assert.Equal(t, 1, stats.AlreadySent)

	// "later" enters the window
	mock.Add(45 * time.Minute)
	require.NoError(t, job.Run(context.Background()))
	require.Len(t, pub.events, 2)
	assert.Equal(t, "later", pub.events[1].AggregateID())
}

func TestSessionReminder_RescheduleRemindsAgain(t *testing.T) {
	mock := clock.NewMock()
	sessions := &fakeSessions{list: []session.Session{{ID: "s", ScheduledTime: mock.Now().Add(5 * time.Minute)}}}
	pub := &recorder{}
	job := NewSessionReminderJob(sessions, pub, mock, nil, DefaultSessionReminderConfig())

	require.NoError(t, job.Run(context.Background()))
	sessions.list[0].ScheduledTime = mock.Now().Add(12 * time.Minute)
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, pub.events, 2)
}

func TestSessionReminder_PublishFailure(t *testing.T) {
	mock := clock.NewMock()
	sessions := &fakeSessions{list: []session.Session{{ID: "s", ScheduledTime: mock.Now().Add(time.Minute)}}}
	pub := &recorder{err: errors.New("bus down")}
	job := NewSessionReminderJob(sessions, pub, mock, nil, DefaultSessionReminderConfig())

	assert.Error(t, job.Run(context.Background()))

	// retried on the next run once the bus recovers
	pub.err = nil
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, pub.events, 1)
}
