// Package messaging moves domain events from the command handlers that raise
// them to the live feed that pushes them over websocket. LocalBus serves one
// instance. RedisBus relays through a Redis channel so every instance's
// live feed sees every event.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/pkg/logger"
)

var (
	ErrBusClosed  = errors.New("event bus is closed")
	ErrNilHandler = errors.New("handler cannot be nil")
	ErrNilEvent   = errors.New("event cannot be nil")
)

// Recorder receives bus and dispatcher measurements.
type Recorder interface {
	EventPublished(eventType string)
	HandlerObserved(eventType, handler string, d time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) EventPublished(string)                                {}
func (nopRecorder) HandlerObserved(string, string, time.Duration, error) {}

// LocalBusOptions configures a LocalBus.
type LocalBusOptions struct {
	// Workers drain the delivery queue. Zero runs handlers inline in Publish.
	Workers int

	// QueueSize bounds deliveries waiting for a worker. Publish blocks when
	// it is full. Defaults to 256.
	QueueSize int

	Logger   *logger.Logger
	Recorder Recorder
}

type delivery struct {
	event   shared.Event
	handler shared.EventHandler
}

// LocalBus delivers events to handlers in this process. With workers,
// Publish only enqueues, so a slow websocket push never stalls the request
// that raised the event.
type LocalBus struct {
	log      *logger.Logger
	recorder Recorder

	mu       sync.RWMutex
	byType   map[shared.EventType][]shared.EventHandler
	catchAll []shared.EventHandler
	closed   bool

	queue   chan delivery
	workers sync.WaitGroup
}

// NewLocalBus starts the workers, if any.
func NewLocalBus(opts LocalBusOptions) *LocalBus {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	b := &LocalBus{
		log:      opts.Logger.With(logger.Component("eventbus")),
		recorder: opts.Recorder,
		byType:   make(map[shared.EventType][]shared.EventHandler),
	}
	if opts.Workers > 0 {
		if opts.QueueSize <= 0 {
			opts.QueueSize = 256
		}
		b.queue = make(chan delivery, opts.QueueSize)
		for range opts.Workers {
			b.workers.Add(1)
			go b.work()
		}
	}
	return b
}

func (b *LocalBus) work() {
	defer b.workers.Done()
	for d := range b.queue {
		b.deliver(d)
	}
}

func (b *LocalBus) deliver(d delivery) {
	if err := d.handler(d.event); err != nil {
		b.log.Error("event handler failed",
			logger.String("event_type", string(d.event.EventType())),
			logger.String("aggregate_id", d.event.AggregateID()),
			logger.Err(err),
		)
	}
}

func (b *LocalBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.subscribe(handler, func() { b.byType[eventType] = append(b.byType[eventType], handler) })
}

func (b *LocalBus) SubscribeAll(handler shared.EventHandler) error {
	return b.subscribe(handler, func() { b.catchAll = append(b.catchAll, handler) })
}

func (b *LocalBus) subscribe(handler shared.EventHandler, add func()) error {
	if handler == nil {
		return ErrNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	add()
	return nil
}

// Publish hands the event to its type's handlers, then to the catch-all ones.
// Handler errors are logged, never returned.
func (b *LocalBus) Publish(event shared.Event) error {
	if event == nil {
		return ErrNilEvent
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	targets := append(append([]shared.EventHandler(nil), b.byType[event.EventType()]...), b.catchAll...)
	if b.queue != nil {
		// enqueue under the read lock so Close cannot close the queue mid-send
		for _, h := range targets {
			b.queue <- delivery{event, h}
		}
	}
	b.mu.RUnlock()

	b.recorder.EventPublished(string(event.EventType()))
	if b.queue == nil {
		for _, h := range targets {
			b.deliver(delivery{event, h})
		}
	}
	return nil
}

// Close refuses new events and waits for the queued ones to be handled.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	if b.queue != nil {
		close(b.queue)
	}
	b.mu.Unlock()

	b.workers.Wait()
	b.log.Info("event bus closed")
	return nil
}

// RedisBusOptions configures a RedisBus.
type RedisBusOptions struct {
	Client redis.UniversalClient

	// Channel defaults to "voicementor:events".
	Channel string

	// Origin tags this instance's messages so it skips its own echoes.
	// Defaults to a random id.
	Origin string

	// PublishTimeout bounds the Redis publish. Defaults to 2s.
	PublishTimeout time.Duration

	Local  LocalBusOptions
	Logger *logger.Logger
}

// RedisBus is a LocalBus whose events also travel through a Redis channel.
// Events from other instances are delivered locally exactly once. A Redis
// outage only costs the cross-instance copy.
type RedisBus struct {
	*LocalBus

	client  redis.UniversalClient
	pubsub  *redis.PubSub
	channel string
	origin  string
	timeout time.Duration
	log     *logger.Logger

	relayDone chan struct{}
	closeOnce sync.Once
}

// NewRedisBus subscribes to the channel and starts relaying.
func NewRedisBus(ctx context.Context, opts RedisBusOptions) (*RedisBus, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if opts.Channel == "" {
		opts.Channel = "voicementor:events"
	}
	if opts.Origin == "" {
		opts.Origin = shared.NewID()
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Local.Logger == nil {
		opts.Local.Logger = opts.Logger
	}

	pubsub := opts.Client.Subscribe(ctx, opts.Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", opts.Channel, err)
	}

	b := &RedisBus{
		LocalBus:  NewLocalBus(opts.Local),
		client:    opts.Client,
		pubsub:    pubsub,
		channel:   opts.Channel,
		origin:    opts.Origin,
		timeout:   opts.PublishTimeout,
		log:       opts.Logger.With(logger.Component("redis_eventbus")),
		relayDone: make(chan struct{}),
	}
	go b.relay(pubsub.Channel())
	return b, nil
}

// Publish sends the event to the other instances, then delivers it here.
func (b *RedisBus) Publish(event shared.Event) error {
	if event == nil {
		return ErrNilEvent
	}
	data, err := encodeWire(b.origin, event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.log.Warn("redis publish failed, delivering locally only",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}
	return b.LocalBus.Publish(event)
}

// relay ends when Close closes the subscription, which closes messages.
func (b *RedisBus) relay(messages <-chan *redis.Message) {
	defer close(b.relayDone)
	for msg := range messages {
		origin, event, err := decodeWire([]byte(msg.Payload))
		if err != nil {
			b.log.Error("dropping malformed event", logger.Err(err))
			continue
		}
		if origin == b.origin {
			continue
		}
		if err := b.LocalBus.Publish(event); err != nil && !errors.Is(err, ErrBusClosed) {
			b.log.Error("remote event not delivered", logger.Err(err))
		}
	}
}

// Close stops relaying, then drains the local bus.
func (b *RedisBus) Close() error {
	b.closeOnce.Do(func() {
		if err := b.pubsub.Close(); err != nil {
			b.log.Warn("failed to close subscription", logger.Err(err))
		}
		<-b.relayDone
	})
	return b.LocalBus.Close()
}

// Ping reports whether the relay can reach Redis.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// wireEvent is the JSON carried on the Redis channel.
type wireEvent struct {
	Origin    string           `json:"origin"`
	Type      shared.EventType `json:"type"`
	Aggregate string           `json:"aggregate"`
	At        time.Time        `json:"at"`
	Data      map[string]any   `json:"data,omitempty"`
}

func encodeWire(origin string, e shared.Event) ([]byte, error) {
	data, err := json.Marshal(wireEvent{
		Origin:    origin,
		Type:      e.EventType(),
		Aggregate: e.AggregateID(),
		At:        e.OccurredAt(),
		Data:      e.Payload(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.EventType(), err)
	}
	return data, nil
}

func decodeWire(data []byte) (string, shared.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return "", nil, fmt.Errorf("decode event: %w", err)
	}
	if w.Type == "" {
		return "", nil, errors.New("decode event: missing type")
	}
	return w.Origin, &RemoteEvent{
		BaseEvent: shared.BaseEvent{Type: w.Type, Timestamp: w.At, AggregateId: w.Aggregate},
		Data:      w.Data,
	}, nil
}

// RemoteEvent is an event relayed from another instance. Only its payload
// map survives the trip.
type RemoteEvent struct {
	shared.BaseEvent
	Data map[string]any
}

func (e *RemoteEvent) Payload() map[string]any { return e.Data }
