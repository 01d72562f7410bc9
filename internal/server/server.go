// Package server implements the monitor server: the REST API agents emit
// events to, and the WebSocket endpoint the watch client consumes.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mvidal/wfmon/internal/domain"
)

// Initial snapshot depth sent to each freshly connected WebSocket client.
const initHistoryLimit = 100

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Server) { s.log = log }
}

// WithCapacity overrides the server-side event history bound.
func WithCapacity(n int) Option {
	return func(s *Server) { s.capacity = n }
}

// Server serves the REST API and the live WebSocket stream backed by one
// in-memory event store.
type Server struct {
	log      *zap.SugaredLogger
	capacity int

	echo     *echo.Echo
	store    *eventStore
	hub      *hub
	upgrader websocket.Upgrader
}

// New creates a server with all routes registered.
func New(opts ...Option) *Server {
	s := &Server{
		log:      zap.NewNop().Sugar(),
		capacity: 1000,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.store = newEventStore(s.capacity)
	s.hub = newHub(s.log)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/health", s.handleHealth)
	e.GET("/api/events", s.handleGetEvents)
	e.POST("/api/events", s.handleCreateEvent)
	e.GET("/api/state", s.handleGetState)
	e.DELETE("/api/events", s.handleClearEvents)
	e.GET("/ws", s.handleWebSocket)

	s.echo = e
	return s
}

// Start listens on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.log.Infow("monitor server listening", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the route tree, used by tests with httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetEvents(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		limit = n
	}
	events := s.store.Events(limit)
	if events == nil {
		events = []domain.Event{}
	}
	return c.JSON(http.StatusOK, events)
}

func (s *Server) handleCreateEvent(c echo.Context) error {
	var create domain.EventCreate
	if err := c.Bind(&create); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid event"})
	}
	if create.Agent == "" || create.Action == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "agent and action are required"})
	}

	event := s.store.Add(create)
	s.hub.broadcast(domain.Envelope{Type: domain.MessageEvent, Event: &event})

	return c.JSON(http.StatusOK, event)
}

func (s *Server) handleGetState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.State())
}

func (s *Server) handleClearEvents(c echo.Context) error {
	s.store.Clear()
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "message": "Events cleared"})
}

// handleWebSocket upgrades the connection, sends the init snapshot, then
// accepts events pushed by agents over the socket until it closes.
func (s *Server) handleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Debugw("websocket upgrade failed", "error", err)
		return err
	}

	conn := s.hub.register(ws)
	defer func() {
		s.hub.unregister(conn)
		ws.Close()
	}()

	state := s.store.State()
	init := domain.Envelope{
		Type:   domain.MessageInit,
		Events: s.store.Events(initHistoryLimit),
		State:  &state,
	}
	if err := conn.writeJSON(init); err != nil {
		return nil
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debugw("websocket read error", "id", conn.id, "error", err)
			}
			return nil
		}
		s.handleInbound(conn, data)
	}
}

// handleInbound processes one agent-pushed frame: an EventCreate payload to
// store and rebroadcast. Malformed frames get a personal error notice.
func (s *Server) handleInbound(conn *hubConn, data []byte) {
	var create domain.EventCreate
	if err := json.Unmarshal(data, &create); err != nil {
		conn.writeJSON(domain.Envelope{Type: domain.MessageError, Message: "Invalid JSON"})
		return
	}
	if create.Agent == "" || create.Action == "" {
		conn.writeJSON(domain.Envelope{Type: domain.MessageError, Message: "agent and action are required"})
		return
	}

	event := s.store.Add(create)
	s.hub.broadcast(domain.Envelope{Type: domain.MessageEvent, Event: &event})
}
