// Package circuitbreaker fails calls to the VoiceMentor server fast while it
// is down. After a run of consecutive failures the breaker opens. Once the
// cool-down has passed a single trial call goes through, and its outcome
// closes or reopens the breaker.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling the server.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type settings struct {
	threshold int
	cooldown  time.Duration
	isFailure func(error) bool
	onChange  func(name string, from, to State)
	clock     clock.Clock
}

// Option tunes a Breaker.
type Option func(*settings)

// WithThreshold sets how many consecutive failures open the breaker.
func WithThreshold(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// WithCooldown sets how long the breaker stays open before a trial call.
func WithCooldown(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithIsFailure decides which errors count against the server. Client
// mistakes such as a 404 or a 409 should not.
func WithIsFailure(fn func(error) bool) Option {
	return func(s *settings) { s.isFailure = fn }
}

func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(s *settings) { s.onChange = fn }
}

func WithClock(c clock.Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// Breaker guards one remote dependency.
type Breaker struct {
	name string
	cfg  settings

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trial    bool
}

// New creates a closed breaker. Defaults: 5 failures, 30s cool-down.
func New(name string, opts ...Option) *Breaker {
	cfg := settings{threshold: 5, cooldown: 30 * time.Second, clock: clock.New()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Breaker{name: name, cfg: cfg}
}

// ServerBreaker is the breaker in front of the VoiceMentor REST API. It opens
// sooner than the default so the console falls back to local state quickly.
func ServerBreaker(onChange func(name string, from, to State), opts ...Option) *Breaker {
	base := []Option{WithThreshold(3), WithCooldown(15 * time.Second), WithOnStateChange(onChange)}
	return New("voicementor-api", append(base, opts...)...)
}

// Execute runs fn unless the breaker is open and records the outcome.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.cfg.clock.Now().Sub(b.openedAt) < b.cfg.cooldown {
			return ErrCircuitOpen
		}
		b.move(StateHalfOpen)
		b.trial = true
		return nil
	case StateHalfOpen:
		if b.trial {
			return fmt.Errorf("%w: trial call in flight", ErrCircuitOpen)
		}
		b.trial = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// a cancelled call says nothing about the server
	failed := err != nil && !errors.Is(err, context.Canceled)
	if failed && b.cfg.isFailure != nil {
		failed = b.cfg.isFailure(err)
	}

	switch b.state {
	case StateHalfOpen:
		b.trial = false
		if failed {
			b.move(StateOpen)
		} else {
			b.move(StateClosed)
		}
	case StateClosed:
		if !failed {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.threshold {
			b.move(StateOpen)
		}
	}
}

// move changes state. Caller holds mu.
func (b *Breaker) move(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.failures = 0
	if next == StateOpen {
		b.openedAt = b.cfg.clock.Now()
	}
	if b.cfg.onChange != nil {
		b.cfg.onChange(b.name, prev, next)
	}
}
