package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicementor/voicementor/internal/domain/shared"
)

func TestValidate_PresenceOnly(t *testing.T) {
	s := Session{MentorID: "1", UserID: "u1", ScheduledTime: time.Now()}
	assert.NoError(t, s.Validate())

	r := 9.0
	s.Rating = &r
	assert.NoError(t, s.Validate())

	s.UserID = ""
	assert.ErrorIs(t, s.Validate(), shared.ErrSessionFieldsMissing)
}

func TestLifecycleTransitions(t *testing.T) {
	s := Session{ID: "s1", Status: StatusScheduled}

	_, err := s.End(nil, "")
	assert.ErrorIs(t, err, shared.ErrSessionNotOngoing)

	p, err := s.Join()
	require.NoError(t, err)
	s = s.Apply(p)
	assert.Equal(t, StatusOngoing, s.Status)

	_, err = s.Join()
	assert.ErrorIs(t, err, shared.ErrSessionNotScheduled)
	assert.ErrorIs(t, err, shared.ErrStateTransition)

	r := 4.0
	p, err = s.End(&r, "good")
	require.NoError(t, err)
	s = s.Apply(p)
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, "good", s.Notes)

	_, err = s.End(&r, "again")
	assert.ErrorIs(t, err, shared.ErrSessionNotOngoing)
	_, err = s.Join()
	assert.ErrorIs(t, err, shared.ErrSessionNotScheduled)
}

func TestApply_OwnerFields(t *testing.T) {
	s := Session{ID: "s1", MentorID: "1", UserID: "u1"}
	m, u := "3", "u9"
	got := s.Apply(Patch{MentorID: &m, UserID: &u})
	assert.Equal(t, "3", got.MentorID)
	assert.Equal(t, "u9", got.UserID)
	assert.Equal(t, "1", s.MentorID)
}
