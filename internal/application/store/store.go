// Package store serializes dispatch into a pure reducer and notifies observers
// after each committed transition.
//
// Every action is reduced to completion before the next one starts. Observers
// run after commit, in commit order, one change at a time. A Dispatch issued
// from inside an observer is queued and drained by the goroutine that is already
// notifying, so observers never see changes out of order.
package store

import (
	"errors"
	"sync"

	"github.com/voicementor/voicementor/pkg/logger"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("store: closed")

// Reducer maps (state, action) to the next state.
type Reducer[S, A any] func(S, A) S

// Observer is told about every committed transition.
type Observer[S, A any] func(prev, next S, action A)

// Store owns one state value.
type Store[S, A any] struct {
	mu        sync.Mutex
	state     S
	reduce    Reducer[S, A]
	observers map[int]Observer[S, A]
	nextObsID int
	closed    bool

	// pending holds committed changes awaiting notification.
	pending    []change[S, A]
	notifying  bool
	dispatched uint64

	log *logger.Logger
}

type change[S, A any] struct {
	prev, next S
	action     A
}

// New creates a store with an initial state.
func New[S, A any](initial S, reduce Reducer[S, A], log *logger.Logger) *Store[S, A] {
	if log == nil {
		log = logger.Nop()
	}
	return &Store[S, A]{
		state:     initial,
		reduce:    reduce,
		observers: make(map[int]Observer[S, A]),
		log:       log,
	}
}

// State returns the current state.
func (s *Store[S, A]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatched returns how many actions have been reduced.
func (s *Store[S, A]) Dispatched() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatched
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store[S, A]) Subscribe(obs Observer[S, A]) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = obs

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Dispatch reduces action into the state and notifies observers.
// When called from an observer it returns as soon as the change is committed.
func (s *Store[S, A]) Dispatch(action A) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	prev := s.state
	next := s.reduce(prev, action)
	s.state = next
	s.dispatched++
	s.pending = append(s.pending, change[S, A]{prev: prev, next: next, action: action})

	if s.notifying {
		s.mu.Unlock()
		return nil
	}
	s.notifying = true
	s.mu.Unlock()

	s.drain()
	return nil
}

// drain notifies observers until no pending change is left.
func (s *Store[S, A]) drain() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.notifying = false
			s.mu.Unlock()
			return
		}
		c := s.pending[0]
		s.pending = s.pending[1:]
		observers := s.snapshotObservers()
		s.mu.Unlock()

		for _, obs := range observers {
			s.notify(obs, c)
		}
	}
}

func (s *Store[S, A]) notify(obs Observer[S, A], c change[S, A]) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("observer panicked",
				logger.Component("store"),
				logger.Any("panic", r),
			)
		}
	}()
	obs(c.prev, c.next, c.action)
}

// snapshotObservers returns observers in subscription order. Caller holds mu.
func (s *Store[S, A]) snapshotObservers() []Observer[S, A] {
	out := make([]Observer[S, A], 0, len(s.observers))
	for id := 0; id < s.nextObsID; id++ {
		if obs, ok := s.observers[id]; ok {
			out = append(out, obs)
		}
	}
	return out
}

// Close disposes the store. Pending notifications are dropped.
func (s *Store[S, A]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.pending = nil
	s.observers = make(map[int]Observer[S, A])
}

// Closed reports whether Close has been called.
func (s *Store[S, A]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
