package messaging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/pkg/logger"
	"github.com/voicementor/voicementor/pkg/retry"
)

type countingRecorder struct {
	mu        sync.Mutex
	published map[string]int
	observed  int
	failures  int
}

func (r *countingRecorder) EventPublished(t string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.published == nil {
		r.published = map[string]int{}
	}
	r.published[t]++
}

func (r *countingRecorder) HandlerObserved(_, _ string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observed++
	if err != nil {
		r.failures++
	}
}

func online(id string) shared.Event {
	return shared.NewMentorStatusChangedEvent(id, "Priya Singh", true, "Available now")
}

func fastRetry(attempts int) []retry.Option {
	return []retry.Option{
		retry.WithMaxAttempts(attempts),
		retry.WithInitialDelay(time.Millisecond),
		retry.WithMaxDelay(time.Millisecond),
		retry.WithJitter(0),
	}
}

func TestLocalBus_Inline(t *testing.T) {
	rec := &countingRecorder{}
	bus := NewLocalBus(LocalBusOptions{Recorder: rec})

	var typed, all []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventMentorWentOnline, func(e shared.Event) error {
		typed = append(typed, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return errors.New("logged, not returned")
	}))

	require.NoError(t, bus.Publish(online("1")))
	require.NoError(t, bus.Publish(shared.NewUserRegisteredEvent("u1", "Asha", "learner")))

	assert.Equal(t, []shared.EventType{shared.EventMentorWentOnline}, typed)
	assert.Equal(t, []shared.EventType{shared.EventMentorWentOnline, shared.EventUserRegistered}, all)
	assert.Equal(t, 1, rec.published[string(shared.EventUserRegistered)])

	assert.ErrorIs(t, bus.Subscribe(shared.EventUserLoggedIn, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(online("1")), ErrBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrBusClosed)
}

func TestLocalBus_CloseDrainsQueue(t *testing.T) {
	bus := NewLocalBus(LocalBusOptions{Workers: 2, QueueSize: 8})

	release := make(chan struct{})
	var handled atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		<-release
		handled.Add(1)
		return nil
	}))
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, bus.Publish(online(id)))
	}

	closed := make(chan struct{})
	go func() {
		_ = bus.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned with deliveries still queued")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-closed
	assert.EqualValues(t, 3, handled.Load())
}

func TestDispatcher_RetriesWithoutBlockingOthers(t *testing.T) {
	bus := NewLocalBus(LocalBusOptions{})
	rec := &countingRecorder{}
	d := NewDispatcher(DispatcherConfig{Bus: bus, Retry: fastRetry(3), Recorder: rec})
	d.Use(RecoveryMiddleware(logger.Nop()))
	require.NoError(t, d.Start())
	defer d.Stop()

	var order []string
	flaky := 0
	require.NoError(t, d.Register(shared.EventMentorWentOnline, "flaky", func(shared.Event) error {
		order = append(order, "flaky")
		flaky++
		if flaky < 2 {
			return errors.New("try again")
		}
		return nil
	}))
	require.NoError(t, d.Register(shared.EventMentorWentOnline, "steady", func(shared.Event) error {
		order = append(order, "steady")
		return nil
	}))
	require.NoError(t, d.Register(shared.EventMentorWentOnline, "panics", func(shared.Event) error { panic("boom") }))
	require.NoError(t, d.Register(shared.EventSessionStarted, "other", func(shared.Event) error {
		order = append(order, "other")
		return nil
	}))

	err := d.Dispatch(online("1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panics: handler panic: boom")
	assert.Equal(t, []string{"flaky", "flaky", "steady"}, order)

	// 2 for flaky, 1 for steady, 3 for panics
	assert.Equal(t, 6, rec.observed)
	assert.Equal(t, 4, rec.failures)

	// the bus path swallows the error but runs the same handlers
	order = nil
	require.NoError(t, bus.Publish(online("2")))
	assert.Equal(t, []string{"flaky", "steady"}, order)
}

func TestDispatcher_Registration(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	defer d.Stop()

	assert.Error(t, d.Start())
	assert.ErrorIs(t, d.Register(shared.EventSessionStarted, "nil", nil), ErrNilHandler)
	assert.Error(t, d.Register(shared.EventSessionStarted, "", func(shared.Event) error { return nil }))
	assert.NoError(t, d.Dispatch(online("1")))
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Output: &buf, Level: logger.LevelDebug, Format: "json"})

	d := NewDispatcher(DispatcherConfig{Retry: fastRetry(2), Logger: log})
	d.Use(LoggingMiddleware(log))
	defer d.Stop()

	require.NoError(t, d.Register(shared.EventMentorWentOnline, "ok", func(shared.Event) error { return nil }))
	require.NoError(t, d.Register(shared.EventMentorWentOnline, "down", func(shared.Event) error { return errors.New("socket gone") }))
	require.Error(t, d.Dispatch(online("7")))
	require.NoError(t, log.Sync())

	counts := map[string]int{}
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		counts[entry["message"].(string)]++
		if entry["message"] == "event handled" {
			assert.Equal(t, "7", entry["aggregate_id"])
		}
	}
	assert.Equal(t, 1, counts["event handled"])
	assert.Equal(t, 2, counts["event handler attempt failed"])
	assert.Equal(t, 1, counts["event handler gave up"])
}

func TestWireEvent(t *testing.T) {
	ev := online("4")
	data, err := encodeWire("node-a", ev)
	require.NoError(t, err)

	origin, got, err := decodeWire(data)
	require.NoError(t, err)
	assert.Equal(t, "node-a", origin)
	assert.Equal(t, ev.EventType(), got.EventType())
	assert.Equal(t, "4", got.AggregateID())
	assert.True(t, ev.OccurredAt().Equal(got.OccurredAt()))
	assert.Equal(t, "Priya Singh", got.Payload()["mentor_name"])

	_, _, err = decodeWire([]byte("{"))
	assert.Error(t, err)
	_, _, err = decodeWire([]byte(`{"origin":"node-b"}`))
	assert.Error(t, err)
}
