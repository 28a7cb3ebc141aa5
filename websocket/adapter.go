// Package websocket adapts a gorilla websocket connection to the chat
// domain, for browser clients entering through the HTTP gateway. Each
// text frame carries one JSON message; the newline delimiter of the
// TCP transport is unnecessary here and stripped on send.
package websocket

import (
	"bytes"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/preetjindal555-coder/what-sapp/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type Conn struct {
	id          string
	label       string
	connectedAt time.Time
	ws          *websocket.Conn
	send        chan []byte
	broadcaster domain.Broadcaster
	handler     domain.MessageHandler

	closeOnce sync.Once
}

func NewConn(id, label string, ws *websocket.Conn, b domain.Broadcaster, h domain.MessageHandler) *Conn {
	return &Conn{
		id:          id,
		label:       label,
		connectedAt: time.Now(),
		ws:          ws,
		send:        make(chan []byte, 256),
		broadcaster: b,
		handler:     h,
	}
}

func (c *Conn) ID() string             { return c.id }
func (c *Conn) Label() string          { return c.label }
func (c *Conn) RemoteAddr() string     { return c.ws.RemoteAddr().String() }
func (c *Conn) ConnectedAt() time.Time { return c.connectedAt }

func (c *Conn) Send(data []byte) error {
	select {
	case c.send <- bytes.TrimRight(data, "\n"):
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.ws.Close() })
	return err
}

// Start launches the read and write pumps; registration and the join
// announcement have already happened in the gateway handler.
func (c *Conn) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		if c.broadcaster.Unregister(c) {
			c.broadcaster.Broadcast(domain.LeaveMessage(c.label))
		}
		c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("read error", "clientId", c.id, "label", c.label, "error", err)
			}
			return
		}
		c.handler.Handle(c, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
