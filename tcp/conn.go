// Package tcp adapts a raw net.Conn to the chat domain. Frames are
// newline-delimited JSON; see the codec package.
package tcp

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/preetjindal555-coder/what-sapp/codec"
	"github.com/preetjindal555-coder/what-sapp/domain"
)

const (
	writeWait     = 10 * time.Second
	sendQueueSize = 256
)

// ErrSendQueueFull is returned when a peer is too slow to drain its
// outbound queue. Broadcast treats it like any other send failure.
var ErrSendQueueFull = errors.New("tcp: send queue full")

type Conn struct {
	id          string
	label       string
	connectedAt time.Time

	nc          net.Conn
	send        chan []byte
	broadcaster domain.Broadcaster
	handler     domain.MessageHandler

	closeOnce sync.Once
	done      chan struct{}
}

func NewConn(id, label string, nc net.Conn, b domain.Broadcaster, h domain.MessageHandler) *Conn {
	return &Conn{
		id:          id,
		label:       label,
		connectedAt: time.Now(),
		nc:          nc,
		send:        make(chan []byte, sendQueueSize),
		broadcaster: b,
		handler:     h,
		done:        make(chan struct{}),
	}
}

func (c *Conn) ID() string             { return c.id }
func (c *Conn) Label() string          { return c.label }
func (c *Conn) RemoteAddr() string     { return c.nc.RemoteAddr().String() }
func (c *Conn) ConnectedAt() time.Time { return c.connectedAt }

// Send queues data for the write pump. It never blocks: a full queue
// or a closing connection is an ordinary send failure.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.nc.Close()
	})
	return nil
}

// Start launches the session's read and write pumps. The caller has
// already registered the connection and announced the join.
func (c *Conn) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump is the session loop: read one frame, dispatch, repeat.
// Whatever ends the loop, the connection is deregistered and the leave
// announced exactly once.
func (c *Conn) readPump() {
	defer func() {
		if c.broadcaster.Unregister(c) {
			c.broadcaster.Broadcast(domain.LeaveMessage(c.label))
		}
		c.Close()
	}()

	dec := codec.NewDecoder(c.nc)
	for {
		frame, err := dec.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				slog.Error("read error", "clientId", c.id, "label", c.label, "error", err)
			}
			return
		}
		c.handler.Handle(c, frame)
	}
}

func (c *Conn) writePump() {
	defer c.Close()

	for {
		select {
		case data := <-c.send:
			c.nc.SetWriteDeadline(time.Now().Add(writeWait))
			if _, err := c.nc.Write(data); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
