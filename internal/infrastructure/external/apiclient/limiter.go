package apiclient

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiter paces outgoing requests and honours server Retry-After hints.
type limiter struct {
	bucket *rate.Limiter

	mu         sync.Mutex
	pauseUntil time.Time
	now        func() time.Time
}

func newLimiter(perSecond float64, burst int) *limiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &limiter{bucket: rate.NewLimiter(limit, burst), now: time.Now}
}

// Wait blocks until a request may go out or ctx is done.
func (l *limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	pause := l.pauseUntil.Sub(l.now())
	l.mu.Unlock()

	if pause > 0 {
		t := time.NewTimer(pause)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return l.bucket.Wait(ctx)
}

// Pause holds every request for d, typically after a 429.
func (l *limiter) Pause(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if until := l.now().Add(d); until.After(l.pauseUntil) {
		l.pauseUntil = until
	}
}
