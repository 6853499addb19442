package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"stockdash/internal/metrics"
	"stockdash/internal/model"
	"stockdash/internal/search"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Hub tracks connected websocket clients and fans out server notices.
type Hub struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		logger:  logger,
		metrics: m,
		clients: make(map[*Client]struct{}),
	}
}

func (h *Hub) add(c *Client) int {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSSessions.Inc()
	}
	return n
}

// remove unregisters c and closes its send queue. Callers must have closed
// the client's searcher first so no sink can enqueue afterwards.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSSessions.Dec()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends v to every client. Slow clients miss the message.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("broadcast marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("ws send queue full, notice dropped")
		}
	}
}

// NotifySessionExpired tells every open page that the session was torn
// down and a new login is required.
func (h *Hub) NotifySessionExpired() {
	h.Broadcast(NoticeMsg{Type: MsgSessionExpired, Message: "session expired, please log in again"})
}

// Close disconnects every client. Their read pumps then unregister them.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	conn.EnableWriteCompression(true)

	// Session lives until the socket closes, not until this handler returns.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &Client{
		conn:   conn,
		send:   make(chan []byte, 64),
		hub:    s.hub,
		ctx:    ctx,
		cancel: cancel,
		logger: s.logger,
	}
	c.searcher = search.New(ctx,
		func(ctx context.Context, keyword string) ([]model.SearchHit, error) {
			return s.api.Search(ctx, keyword, s.limit)
		},
		func(sg search.Suggestions) { c.enqueue(SuggestionsMsg{Type: MsgSuggestions, Suggestions: sg}) },
		search.Options{
			Debounce: s.debounce,
			History:  s.history,
			Logger:   s.logger,
			Metrics:  s.metrics,
		})

	n := s.hub.add(c)
	s.logger.Info("ws client connected", "clients", n)

	go c.writePump()
	go c.readPump()
}
