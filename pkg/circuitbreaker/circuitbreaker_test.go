package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("down")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func TestBreaker_OpensAfterThresholdAndRecovers(t *testing.T) {
	mock := clock.NewMock()
	var transitions []State
	b := New("api",
		WithClock(mock),
		WithThreshold(3),
		WithCooldown(10*time.Second),
		WithOnStateChange(func(_ string, _, to State) { transitions = append(transitions, to) }),
	)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Execute(ctx, fail), errDown)
	}
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	mock.Add(10 * time.Second)
	require.NoError(t, b.Execute(ctx, ok))
	assert.Equal(t, StateClosed, b.State())

	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestBreaker_SuccessResetsFailureRun(t *testing.T) {
	b := New("api", WithThreshold(2))
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, ok)
	_ = b.Execute(ctx, fail)
	assert.Equal(t, StateClosed, b.State())
	_ = b.Execute(ctx, fail)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	mock := clock.NewMock()
	b := New("api", WithClock(mock), WithThreshold(1), WithCooldown(time.Second))
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	mock.Add(time.Second)
	_ = b.Execute(ctx, fail)
	assert.Equal(t, StateOpen, b.State())

	assert.ErrorIs(t, b.Execute(ctx, ok), ErrCircuitOpen)
}

func TestBreaker_OneTrialAtATime(t *testing.T) {
	mock := clock.NewMock()
	b := New("api", WithClock(mock), WithThreshold(1), WithCooldown(time.Second))
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	mock.Add(time.Second)

	var nested error
	require.NoError(t, b.Execute(ctx, func(ctx context.Context) error {
		nested = b.Execute(ctx, ok)
		return nil
	}))
	assert.ErrorIs(t, nested, ErrCircuitOpen)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_IgnoredErrors(t *testing.T) {
	notFound := errors.New("not found")
	b := New("api", WithThreshold(1), WithIsFailure(func(err error) bool { return !errors.Is(err, notFound) }))
	ctx := context.Background()

	_ = b.Execute(ctx, func(context.Context) error { return notFound })
	_ = b.Execute(ctx, func(context.Context) error { return context.Canceled })
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}

func TestServerBreaker_Defaults(t *testing.T) {
	var opened string
	b := ServerBreaker(func(name string, _, to State) {
		if to == StateOpen {
			opened = name
		}
	})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, fail)
	}
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, "voicementor-api", opened)
}
