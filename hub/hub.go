// Package hub holds the registry of live connections and fans
// messages out to them.
package hub

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/preetjindal555-coder/what-sapp/codec"
	"github.com/preetjindal555-coder/what-sapp/domain"
)

// Hub is the single chat room. One mutex guards the connection map;
// it is never held across network I/O.
type Hub struct {
	clock clockwork.Clock

	mu      sync.Mutex
	clients map[string]domain.Connection

	labels atomic.Uint64
}

func New(clock clockwork.Clock) *Hub {
	return &Hub{
		clock:   clock,
		clients: make(map[string]domain.Connection),
	}
}

// NextLabel issues a display id for a new client. The counter only
// grows, so a label is never reused after its client leaves.
func (h *Hub) NextLabel() string {
	return fmt.Sprintf("Client_%d", h.labels.Add(1))
}

func (h *Hub) Register(conn domain.Connection) {
	h.mu.Lock()
	h.clients[conn.ID()] = conn
	count := len(h.clients)
	h.mu.Unlock()

	slog.Info("client connected",
		"clientId", conn.ID(), "label", conn.Label(),
		"remote", conn.RemoteAddr(), "clients", count)
}

// Unregister removes conn and reports whether it was still registered,
// so disconnect handling runs exactly once per connection.
func (h *Hub) Unregister(conn domain.Connection) bool {
	h.mu.Lock()
	_, ok := h.clients[conn.ID()]
	delete(h.clients, conn.ID())
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		slog.Info("client disconnected",
			"clientId", conn.ID(), "label", conn.Label(), "clients", count)
	}
	return ok
}

// Snapshot copies the current connection set under lock and releases
// the lock before the caller touches the network.
func (h *Hub) Snapshot() []domain.Connection {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := make([]domain.Connection, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c)
	}
	return conns
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast stamps the server timestamp if absent, encodes once and
// sends to every registered connection, the sender included. A failed
// send skips that recipient only; the failing connection's own read
// loop notices the breakage and deregisters it.
func (h *Hub) Broadcast(msg *domain.Message) {
	if msg.ServerTimestamp == nil {
		msg.ServerTimestamp = domain.Millis(h.clock.Now().UnixMilli())
	}

	data, err := codec.Encode(msg)
	if err != nil {
		slog.Warn("broadcast encode error", "type", msg.Type, "error", err)
		return
	}

	for _, conn := range h.Snapshot() {
		if err := conn.Send(data); err != nil {
			slog.Debug("broadcast send failed",
				"clientId", conn.ID(), "label", conn.Label(), "error", err)
		}
	}
}

// CloseAll closes every registered connection, failing each session's
// pending read so its loop exits. Used at shutdown.
func (h *Hub) CloseAll() {
	for _, conn := range h.Snapshot() {
		conn.Close()
	}
}
