// Package client implements the chat client: connecting, sending chat,
// running the client half of Cristian's algorithm and keeping the
// resulting clock offset for display.
package client

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/preetjindal555-coder/what-sapp/clocksync"
	"github.com/preetjindal555-coder/what-sapp/codec"
	"github.com/preetjindal555-coder/what-sapp/domain"
)

const historySize = 32

// Handlers are the presentation callbacks. Any nil handler is skipped.
// They are invoked from the client's read goroutine.
type Handlers struct {
	OnBroadcast  func(msg domain.Message)
	OnUserJoin   func(msg domain.Message)
	OnUserLeave  func(msg domain.Message)
	OnSyncResult func(res clocksync.Result)

	// OnDisconnect fires once when the session ends; err is nil on a
	// deliberate Close.
	OnDisconnect func(err error)
}

type Client struct {
	conn     net.Conn
	clock    clockwork.Clock
	drift    *clocksync.DriftSimulator
	handlers Handlers

	writeMu sync.Mutex

	mu           sync.Mutex
	offsetMs     float64
	confidenceMs float64
	synced       bool
	history      []clocksync.Result

	closeOnce sync.Once
	done      chan struct{}
}

// Option tweaks a Client before its loops start.
type Option func(*Client)

// WithClock substitutes the wall clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithDriftSimulation makes the client read a deliberately drifting
// local clock, so sync corrections become visible in a demo.
func WithDriftSimulation(maxDriftMs int64) Option {
	return func(c *Client) {
		c.drift = clocksync.NewDriftSimulator(maxDriftMs, c.clock)
	}
}

// Dial connects to the server and starts the read loop plus, when
// syncInterval is positive, a ticker that resyncs the clock.
func Dial(addr string, syncInterval time.Duration, handlers Handlers, opts ...Option) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	c := &Client{
		conn:     conn,
		clock:    clockwork.NewRealClock(),
		handlers: handlers,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()
	if syncInterval > 0 {
		go c.resyncLoop(syncInterval)
	}
	return c, nil
}

// SendChat sends one chat line stamped with the local clock.
func (c *Client) SendChat(content string) error {
	return c.write(&domain.Message{
		Type:            domain.TypeChat,
		Content:         content,
		ClientTimestamp: domain.Millis(c.LocalNow()),
	})
}

// RequestSync starts one synchronization exchange. The response is
// matched through the echoed client_time_before, so overlapping
// requests stay unambiguous.
func (c *Client) RequestSync() error {
	return c.write(&domain.Message{
		Type:             domain.TypeClockSyncRequest,
		ClientTimeBefore: domain.Millis(c.LocalNow()),
	})
}

// Offset returns the last measured offset and confidence in
// milliseconds, and whether any sync has completed yet.
func (c *Client) Offset() (offsetMs, confidenceMs float64, synced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offsetMs, c.confidenceMs, c.synced
}

// History returns the most recent sync results, oldest first.
func (c *Client) History() []clocksync.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]clocksync.Result, len(c.history))
	copy(out, c.history)
	return out
}

// LocalNow is the client's local clock in milliseconds, drifted when
// drift simulation is on.
func (c *Client) LocalNow() int64 {
	if c.drift != nil {
		return c.drift.DriftedNow()
	}
	return c.clock.Now().UnixMilli()
}

// SyncedNow is the local clock corrected by the measured offset, an
// approximation of current server time.
func (c *Client) SyncedNow() int64 {
	c.mu.Lock()
	offset := c.offsetMs
	c.mu.Unlock()
	return c.LocalNow() + int64(offset)
}

func (c *Client) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Client) write(msg *domain.Message) error {
	data, err := codec.Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

func (c *Client) readLoop() {
	dec := codec.NewDecoder(c.conn)
	for {
		frame, err := dec.Next()
		if err != nil {
			c.shutdown(err)
			return
		}

		msg, err := codec.Decode(frame)
		if err != nil {
			slog.Warn("dropping malformed server message", "error", err)
			continue
		}

		switch msg.Type {
		case domain.TypeBroadcast:
			if c.handlers.OnBroadcast != nil {
				c.handlers.OnBroadcast(*msg)
			}
		case domain.TypeUserJoin:
			if c.handlers.OnUserJoin != nil {
				c.handlers.OnUserJoin(*msg)
			}
		case domain.TypeUserLeave:
			if c.handlers.OnUserLeave != nil {
				c.handlers.OnUserLeave(*msg)
			}
		case domain.TypeClockSyncResponse:
			c.handleSyncResponse(msg)
		}
	}
}

func (c *Client) handleSyncResponse(msg *domain.Message) {
	clientTimeAfter := c.LocalNow()
	if msg.ClientTimeBefore == nil || msg.ServerTime == nil {
		slog.Warn("dropping incomplete sync response")
		return
	}

	res := clocksync.Estimate(*msg.ClientTimeBefore, *msg.ServerTime, clientTimeAfter)

	c.mu.Lock()
	c.offsetMs = res.OffsetMs
	c.confidenceMs = res.ConfidenceMs
	c.synced = true
	c.history = append(c.history, res)
	if len(c.history) > historySize {
		c.history = c.history[len(c.history)-historySize:]
	}
	c.mu.Unlock()

	if c.drift != nil {
		c.drift.ApplyCorrection(res.OffsetMs)
	}

	if c.handlers.OnSyncResult != nil {
		c.handlers.OnSyncResult(res)
	}
}

func (c *Client) resyncLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.RequestSync(); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
		if c.handlers.OnDisconnect != nil {
			c.handlers.OnDisconnect(err)
		}
	})
}
