package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/park285/cheese-solo-chess/internal/session"
	"github.com/park285/cheese-solo-chess/pkg/solodto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	clientQueue  = 16
	writeTimeout = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan solodto.ServerMessage
}

// Hub fans session state out to websocket clients. It is the session's Board
// and an Observer; both only raise a flag, the broadcast runs on its own
// goroutine so the session lock is never held across network writes.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	kick   chan struct{}
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		kick:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		logger:  logger,
	}
}

// Start begins broadcasting the views produced by view.
func (h *Hub) Start(view func() solodto.SessionView) {
	h.wg.Add(1)
	go h.loop(view)
}

func (h *Hub) Render(string) { h.signal() }

func (h *Hub) ResetToStart() { h.signal() }

func (h *Hub) SessionEvent(context.Context, session.Event) { h.signal() }

func (h *Hub) signal() {
	select {
	case h.kick <- struct{}{}:
	default:
	}
}

func (h *Hub) loop(view func() solodto.SessionView) {
	defer h.wg.Done()
	for {
		select {
		case <-h.stopCh:
			return
		case <-h.kick:
			v := view()
			h.broadcast(solodto.ServerMessage{Type: solodto.TypeState, State: &v})
		}
	}
}

func (h *Hub) broadcast(msg solodto.ServerMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("ws_client_slow")
		}
	}
}

func (h *Hub) add(conn *websocket.Conn) (*client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &client{conn: conn, send: make(chan solodto.ServerMessage, clientQueue)}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	go h.writeLoop(c)
	return c, true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// reply queues msg for c alone.
func (h *Hub) reply(c *client, msg solodto.ServerMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("ws_client_slow")
	}
}

func (h *Hub) writeLoop(c *client) {
	defer h.wg.Done()
	for msg := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := wsjson.Write(ctx, c.conn, msg)
		cancel()
		if err != nil {
			h.logger.Debug("ws_write_failed", zap.Error(err))
			_ = c.conn.Close(websocket.StatusGoingAway, "write failed")
			// drain until the reader removes us
			for range c.send {
			}
			return
		}
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and stops broadcasting.
func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.stopCh)
		h.mu.Lock()
		h.closed = true
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
			_ = c.conn.Close(websocket.StatusGoingAway, "shutdown")
		}
		h.mu.Unlock()
		h.wg.Wait()
	})
}
