package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/infrastructure/persistence/memory"
)

func TestMentorQueries(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMentorRepository()
	require.NoError(t, repo.Seed(ctx, mentor.DefaultDirectory()))
	q := NewMentorQueries(repo)

	all, err := q.List(ctx, ListMentorsQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 6)

	online, err := q.List(ctx, ListMentorsQuery{OnlineOnly: true})
	require.NoError(t, err)
	for _, m := range online {
		assert.True(t, m.IsOnline, m.Name)
	}
	assert.Less(t, len(online), len(all))

	web, err := q.List(ctx, ListMentorsQuery{Skill: "web"})
	require.NoError(t, err)
	require.Len(t, web, 1)
	assert.Equal(t, "Priya Singh", web[0].Name)

	skills, err := q.Skills(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Web Development", skills[0])
	assert.Len(t, skills, 6)

	langs, err := q.Languages(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, langs)
	seen := map[string]bool{}
	for _, l := range langs {
		assert.False(t, seen[l], "duplicate %s", l)
		seen[l] = true
	}
}

func TestSessionQueries_FilterAndSort(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSessionRepository()
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	for _, s := range []session.Session{
		{ID: "late", MentorID: "1", UserID: "u1", ScheduledTime: base.Add(2 * time.Hour), Status: session.StatusScheduled},
		{ID: "early", MentorID: "2", UserID: "u1", ScheduledTime: base, Status: session.StatusScheduled},
		{ID: "other", MentorID: "1", UserID: "u2", ScheduledTime: base.Add(time.Hour), Status: session.StatusCompleted},
	} {
		s := s
		require.NoError(t, repo.Create(ctx, &s))
	}
	q := NewSessionQueries(repo)

	all, err := q.List(ctx, session.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "other", "late"}, ids(all))

	mine, err := q.List(ctx, session.Filter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late"}, ids(mine))

	done, err := q.List(ctx, session.Filter{MentorID: "1", Status: session.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, ids(done))

	soon, err := q.Upcoming(ctx, base.Add(time.Minute), base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, ids(soon))
}

func ids(list []session.Session) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.ID)
	}
	return out
}
