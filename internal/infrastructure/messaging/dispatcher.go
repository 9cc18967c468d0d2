package messaging

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/pkg/logger"
	"github.com/voicementor/voicementor/pkg/retry"
)

// Middleware wraps every handler the dispatcher runs.
type Middleware func(shared.EventHandler) shared.EventHandler

type route struct {
	name    string
	handler shared.EventHandler
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Bus shared.EventBus

	// Retry shapes the attempts for a failing handler. Defaults to three
	// attempts between 100ms and 2s apart.
	Retry []retry.Option

	Recorder Recorder
	Logger   *logger.Logger
}

// Dispatcher subscribes to every event on the bus and runs the named handlers
// registered for its type, in registration order. A failing handler is
// retried. Once its attempts are spent the event is logged and dropped for
// that handler; the others still run.
type Dispatcher struct {
	bus      shared.EventBus
	retry    []retry.Option
	recorder Recorder
	log      *logger.Logger

	mu     sync.RWMutex
	routes map[shared.EventType][]route
	chain  []Middleware

	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if len(cfg.Retry) == 0 {
		cfg.Retry = []retry.Option{
			retry.WithMaxAttempts(3),
			retry.WithInitialDelay(100 * time.Millisecond),
			retry.WithMaxDelay(2 * time.Second),
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		bus:      cfg.Bus,
		retry:    cfg.Retry,
		recorder: cfg.Recorder,
		log:      cfg.Logger.With(logger.Component("dispatcher")),
		routes:   make(map[shared.EventType][]route),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register adds a named handler for one event type. The name labels logs
// and handler metrics.
func (d *Dispatcher) Register(eventType shared.EventType, name string, handler shared.EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}
	if name == "" {
		return fmt.Errorf("handler for %s needs a name", eventType)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[eventType] = append(d.routes[eventType], route{name, handler})
	return nil
}

// Use appends a middleware. The first one added runs outermost.
func (d *Dispatcher) Use(mw Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chain = append(d.chain, mw)
}

// Start subscribes the dispatcher to the bus.
func (d *Dispatcher) Start() error {
	if d.bus == nil {
		return errors.New("dispatcher has no event bus")
	}
	return d.bus.SubscribeAll(d.Dispatch)
}

// Stop abandons pending retries.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.log.Info("dispatcher stopped")
}

// Dispatch runs every handler registered for the event's type.
func (d *Dispatcher) Dispatch(event shared.Event) error {
	d.mu.RLock()
	routes := d.routes[event.EventType()]
	chain := d.chain
	d.mu.RUnlock()

	var errs []error
	for _, r := range routes {
		h := r.handler
		for i := len(chain) - 1; i >= 0; i-- {
			h = chain[i](h)
		}
		if err := d.run(event, r.name, h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) run(event shared.Event, name string, h shared.EventHandler) error {
	eventType := string(event.EventType())
	attempts := 0
	err := retry.Do(d.ctx, func(context.Context) error {
		attempts++
		start := time.Now()
		err := h(event)
		d.recorder.HandlerObserved(eventType, name, time.Since(start), err)
		return err
	}, d.retry...)
	if err == nil {
		return nil
	}
	d.log.Error("event handler gave up",
		logger.String("handler", name),
		logger.String("event_type", eventType),
		logger.String("aggregate_id", event.AggregateID()),
		logger.Int("attempts", attempts),
		logger.Err(err),
	)
	return fmt.Errorf("%s: %w", name, err)
}

// RecoveryMiddleware turns a handler panic into an error.
func RecoveryMiddleware(log *logger.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("event handler panicked",
						logger.String("event_type", string(event.EventType())),
						logger.Any("panic", r),
						logger.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs each attempt at debug level, and failures at warn.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			fields := []logger.Field{
				logger.String("event_type", string(event.EventType())),
				logger.String("aggregate_id", event.AggregateID()),
				logger.Latency(time.Since(start)),
			}
			if err != nil {
				log.Warn("event handler attempt failed", append(fields, logger.Err(err))...)
				return err
			}
			log.Debug("event handled", fields...)
			return nil
		}
	}
}
