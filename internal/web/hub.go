package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/hammamikhairi/talkytime/internal/engine"
	"github.com/hammamikhairi/talkytime/internal/logger"
)

const writeTimeout = 5 * time.Second

// Frame is one websocket message: the event that caused it and the state
// after it.
type Frame struct {
	Event engine.Event `json:"event"`
	State engine.State `json:"state"`
}

// hub fans engine changes out to websocket clients. Each client holds at
// most one pending event, so a slow client skips intermediate states
// instead of blocking the engine.
type hub struct {
	eng     Engine
	log     *logger.Logger
	origins []string

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn    *websocket.Conn
	pending chan engine.Event
}

func newHub(eng Engine, log *logger.Logger) *hub {
	return &hub{eng: eng, log: log, clients: make(map[*client]struct{})}
}

// changed runs on the engine's goroutine and must not block.
func (h *hub) changed(ev engine.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.pending <- ev:
		default:
		}
	}
}

func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.log.Warn("websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	c := &client{conn: conn, pending: make(chan engine.Event, 1)}
	h.add(c)
	defer h.remove(c)

	// Clients only listen; CloseRead handles control frames and cancels
	// ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	if err := h.write(ctx, c, engine.EventControls); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.pending:
			if err := h.write(ctx, c, ev); err != nil {
				h.log.Debug("websocket write: %v", err)
				return
			}
		}
	}
}

func (h *hub) write(ctx context.Context, c *client, ev engine.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, Frame{Event: ev, State: h.eng.State()})
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("websocket client connected (%d total)", n)
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *hub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
