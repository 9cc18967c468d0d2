package apiclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/pkg/logger"
)

// liveURL maps the base URL onto the websocket scheme.
func (c *Client) liveURL() string {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/api/live"
	return u.String()
}

// Stream reads live events from one websocket connection until it drops
// or ctx is done.
func (c *Client) Stream(ctx context.Context, onEvent func(interactive.LiveEvent)) error {
	conn, _, err := websocket.Dial(ctx, c.liveURL(), &websocket.DialOptions{HTTPClient: c.http})
	if err != nil {
		return fmt.Errorf("dial live feed: %w", err)
	}
	defer conn.CloseNow()
	c.log.Info("live feed connected")

	for {
		var e interactive.LiveEvent
		if err := wsjson.Read(ctx, conn, &e); err != nil {
			if ctx.Err() != nil {
				conn.Close(websocket.StatusNormalClosure, "")
				return ctx.Err()
			}
			return fmt.Errorf("read live event: %w", err)
		}
		onEvent(e)
	}
}

// Subscribe keeps a live feed connection open, reconnecting with backoff,
// until ctx is done. It returns nil on cancellation.
func (c *Client) Subscribe(ctx context.Context, onEvent func(interactive.LiveEvent)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second

	for {
		start := time.Now()
		err := c.Stream(ctx, onEvent)
		if ctx.Err() != nil {
			return nil
		}
		// a connection that stayed up a while starts the backoff over
		if time.Since(start) > time.Minute {
			b.Reset()
		}
		delay := b.NextBackOff()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		c.log.Warn("live feed disconnected", logger.Err(err), logger.Duration("retry_in", delay))

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}
