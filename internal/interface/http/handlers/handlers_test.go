package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReport_RequiredAndWatched(t *testing.T) {
	r := NewReport("test", time.Second)
	st := r.Check(context.Background())
	assert.True(t, st.Healthy)
	assert.True(t, st.Ready)
	assert.Equal(t, "test", st.Version)

	r.Require("mentors", NewListCheck(func(context.Context) ([]string, error) { return []string{"1"}, nil }))
	st = r.Check(context.Background())
	assert.True(t, st.Healthy)
	assert.Equal(t, "All checks passed", st.Message)
	assert.True(t, st.Checks["mentors"].Required)

	r.Watch("redis", func(context.Context) error { return errors.New("down") })
	st = r.Check(context.Background())
	assert.False(t, st.Healthy)
	assert.True(t, st.Ready)
	assert.Equal(t, "Degraded: redis", st.Message)
	assert.Equal(t, "down", st.Checks["redis"].Message)

	r.Require("postgres", func(context.Context) error { return errors.New("refused") })
	st = r.Check(context.Background())
	assert.False(t, st.Healthy)
	assert.False(t, st.Ready)
	assert.Equal(t, "Unavailable: postgres, redis", st.Message)
	assert.Len(t, st.Checks, 3)
}

func TestReport_TimeoutBoundsEachCheck(t *testing.T) {
	r := NewReport("test", 20*time.Millisecond)
	r.Require("stuck", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	st := r.Check(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, st.Ready)
	assert.Equal(t, context.DeadlineExceeded.Error(), st.Checks["stuck"].Message)

	assert.Equal(t, 3*time.Second, NewReport("", 0).timeout)
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(1, 2)
	at := time.Unix(1000, 0)
	l.now = func() time.Time { return at }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	at = at.Add(time.Second)
	assert.True(t, l.Allow("a"))

	at = at.Add(10 * time.Minute)
	assert.True(t, l.Allow("c"))
	assert.Equal(t, 1, l.Len())
}
