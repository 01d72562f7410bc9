package server

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// hubConn wraps a WebSocket connection with a write lock, since gorilla
// permits only one concurrent writer per connection.
type hubConn struct {
	id string
	ws *websocket.Conn

	writeMu sync.Mutex
}

func (c *hubConn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

// hub tracks connected WebSocket clients and fans messages out to them.
type hub struct {
	log *zap.SugaredLogger

	mu    sync.Mutex
	conns map[string]*hubConn
}

func newHub(log *zap.SugaredLogger) *hub {
	return &hub{
		log:   log,
		conns: make(map[string]*hubConn),
	}
}

func (h *hub) register(ws *websocket.Conn) *hubConn {
	conn := &hubConn{id: uuid.NewString(), ws: ws}
	h.mu.Lock()
	h.conns[conn.id] = conn
	count := len(h.conns)
	h.mu.Unlock()

	h.log.Debugw("client connected", "id", conn.id, "clients", count)
	return conn
}

func (h *hub) unregister(conn *hubConn) {
	h.mu.Lock()
	delete(h.conns, conn.id)
	count := len(h.conns)
	h.mu.Unlock()

	h.log.Debugw("client disconnected", "id", conn.id, "clients", count)
}

// broadcast sends v to every connected client. Write failures are logged;
// the failing client is cleaned up by its own read loop.
func (h *hub) broadcast(v any) {
	h.mu.Lock()
	conns := make([]*hubConn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.writeJSON(v); err != nil {
			h.log.Debugw("broadcast write failed", "id", c.id, "error", err)
		}
	}
}
