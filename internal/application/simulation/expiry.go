package simulation

import (
	"sync"

	"github.com/facebookgo/clock"

	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/pkg/logger"
)

// Expirer removes celebrations once their duration elapses.
// A celebration removed early has its timer cancelled.
type Expirer struct {
	clock clock.Clock
	log   *logger.Logger

	mu          sync.Mutex
	timers      map[string]*clock.Timer
	unsubscribe func()
	stopped     bool
}

// NewExpirer creates an expirer. A nil clock means the wall clock.
func NewExpirer(clk clock.Clock, log *logger.Logger) *Expirer {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Expirer{
		clock:  clk,
		log:    log.With(logger.Component("celebration_expiry")),
		timers: make(map[string]*clock.Timer),
	}
}

// Attach watches ix. Celebrations already present are scheduled too.
func (e *Expirer) Attach(ix *InteractiveStore) {
	e.mu.Lock()
	e.stopped = false
	e.unsubscribe = ix.Subscribe(func(prev, next interactive.State, _ interactive.Action) {
		e.sync(ix, prev.Celebrations, next.Celebrations)
	})
	e.mu.Unlock()

	e.sync(ix, nil, ix.State().Celebrations)
}

// Scheduled reports how many expiry timers are armed.
func (e *Expirer) Scheduled() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}

// Stop cancels every timer and detaches from the store.
func (e *Expirer) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

func (e *Expirer) sync(ix *InteractiveStore, prev, next []interactive.Celebration) {
	if len(prev) == 0 && len(next) == 0 {
		return
	}

	present := make(map[string]interactive.Celebration, len(next))
	for _, c := range next {
		present[c.ID] = c
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}

	for _, c := range prev {
		if _, still := present[c.ID]; still {
			continue
		}
		if t, ok := e.timers[c.ID]; ok {
			t.Stop()
			delete(e.timers, c.ID)
		}
	}

	for _, c := range next {
		ttl := c.TTL()
		if ttl <= 0 {
			continue
		}
		if _, armed := e.timers[c.ID]; armed {
			continue
		}
		id := c.ID
		e.timers[id] = e.clock.AfterFunc(ttl, func() { e.expire(ix, id) })
	}
}

func (e *Expirer) expire(ix *InteractiveStore, id string) {
	e.mu.Lock()
	if _, ok := e.timers[id]; !ok || e.stopped {
		e.mu.Unlock()
		return
	}
	delete(e.timers, id)
	e.mu.Unlock()

	if err := ix.Dispatch(interactive.RemoveCelebration{ID: id}); err != nil {
		e.log.Debug("celebration expiry dropped", logger.String("celebration_id", id), logger.Err(err))
	}
}
