package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"stockdash/internal/search"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	maxFrame     = 4096
)

// Client is one websocket peer running its own search session.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
	searcher *search.Searcher
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger
}

// enqueue queues v without blocking. A full queue drops the message.
func (c *Client) enqueue(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("ws marshal failed", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Debug("ws send queue full, message dropped")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Coalesce queued messages into one frame, newline separated.
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.searcher.Close()
		c.cancel()
		c.hub.remove(c)
		c.conn.Close()
		c.logger.Info("ws client disconnected", "clients", c.hub.ClientCount())
	}()

	c.conn.SetReadLimit(maxFrame)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.enqueue(NoticeMsg{Type: MsgError, Message: "invalid message: " + err.Error()})
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg ClientMsg) {
	switch msg.Type {
	case MsgInput:
		c.searcher.Input(msg.Keyword)
	case MsgFocus:
		c.searcher.Focus()
	case MsgSelect:
		if msg.Code == "" {
			c.enqueue(NoticeMsg{Type: MsgError, Message: "SELECT requires a code"})
			return
		}
		if err := c.searcher.Select(c.ctx, msg.Code); err != nil {
			c.logger.Warn("search history write failed", "code", msg.Code, "error", err)
			c.enqueue(NoticeMsg{Type: MsgError, Message: "could not save history"})
		}
	case MsgPing:
		c.enqueue(PongMsg{Type: MsgPong, Ping: msg.Ping, ServerTS: time.Now().UnixMilli()})
	default:
		c.enqueue(NoticeMsg{Type: MsgError, Message: "unknown message type: " + msg.Type})
	}
}
