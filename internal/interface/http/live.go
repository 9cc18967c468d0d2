package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/pkg/logger"
)

// LiveHubOptions configures a LiveHub.
type LiveHubOptions struct {
	// OriginPatterns is passed to websocket.Accept. Empty allows same-origin only.
	OriginPatterns []string

	// Buffer is the per-client queue length. Events are dropped for a client
	// whose queue is full.
	Buffer int

	WriteTimeout time.Duration

	// OnClients is told about every connect (+1) and disconnect (-1).
	OnClients func(delta int)

	Logger *logger.Logger
}

// LiveHub fans live feed events out to websocket subscribers.
type LiveHub struct {
	opts LiveHubOptions
	log  *logger.Logger

	mu      sync.Mutex
	clients map[*liveClient]struct{}
	closed  bool
}

type liveClient struct {
	events chan interactive.LiveEvent
	done   chan struct{}
	once   sync.Once
}

func (c *liveClient) stop() {
	c.once.Do(func() { close(c.done) })
}

// NewLiveHub creates a hub with no subscribers.
func NewLiveHub(opts LiveHubOptions) *LiveHub {
	if opts.Buffer <= 0 {
		opts.Buffer = 16
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &LiveHub{
		opts:    opts,
		log:     log.With(logger.Component("live_hub")),
		clients: make(map[*liveClient]struct{}),
	}
}

// Broadcast queues e for every subscriber. It never blocks.
func (h *LiveHub) Broadcast(e interactive.LiveEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.events <- e:
		default:
			h.log.Debug("live client queue full, dropping event", logger.String("event_id", e.ID))
		}
	}
}

// Clients reports the number of connected subscribers.
func (h *LiveHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and rejects new ones.
func (h *LiveHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.stop()
	}
}

func (h *LiveHub) add() (*liveClient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &liveClient{
		events: make(chan interactive.LiveEvent, h.opts.Buffer),
		done:   make(chan struct{}),
	}
	h.clients[c] = struct{}{}
	if h.opts.OnClients != nil {
		h.opts.OnClients(1)
	}
	return c, true
}

func (h *LiveHub) remove(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if h.opts.OnClients != nil {
		h.opts.OnClients(-1)
	}
}

// ServeHTTP upgrades the request and streams events as JSON text frames
// until the peer goes away or the hub closes.
func (h *LiveHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, ok := h.add()
	if !ok {
		writeMessage(w, http.StatusServiceUnavailable, false, "live feed closed")
		return
	}
	defer h.remove(c)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		h.log.Warn("websocket accept failed", logger.Err(err))
		return
	}
	defer ws.CloseNow()

	// Subscribers only listen; CloseRead handles pings and the close handshake.
	ctx := ws.CloseRead(r.Context())
	h.log.Debug("live client connected", logger.String("remote", r.RemoteAddr))

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			ws.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case e := <-c.events:
			if err := h.write(ctx, ws, e); err != nil {
				if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
					h.log.Debug("live write failed", logger.Err(err))
				}
				return
			}
		}
	}
}

func (h *LiveHub) write(ctx context.Context, ws *websocket.Conn, e interactive.LiveEvent) error {
	ctx, cancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, e)
}
