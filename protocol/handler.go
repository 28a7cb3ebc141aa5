// Package protocol dispatches decoded client messages.
package protocol

import (
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/preetjindal555-coder/what-sapp/codec"
	"github.com/preetjindal555-coder/what-sapp/domain"
)

type Handler struct {
	broadcaster domain.Broadcaster
	clock       clockwork.Clock
}

func NewHandler(b domain.Broadcaster, clock clockwork.Clock) *Handler {
	return &Handler{broadcaster: b, clock: clock}
}

// Handle processes one frame from conn. Malformed frames are dropped
// and unknown kinds ignored; neither ends the session.
func (h *Handler) Handle(conn domain.Connection, data []byte) {
	msg, err := codec.Decode(data)
	if err != nil {
		slog.Warn("invalid message", "clientId", conn.ID(), "error", err)
		return
	}

	switch msg.Type {
	case domain.TypeClockSyncRequest:
		h.handleSyncRequest(conn, msg)
	case domain.TypeChat:
		h.handleChat(conn, msg)
	}
}

// handleSyncRequest replies directly on conn with the server clock and
// the echoed client timestamp. The offset math runs client side; the
// reply deliberately carries no server_timestamp beyond server_time.
func (h *Handler) handleSyncRequest(conn domain.Connection, msg *domain.Message) {
	serverTime := h.clock.Now().UnixMilli()

	resp := &domain.Message{
		Type:             domain.TypeClockSyncResponse,
		ServerTime:       domain.Millis(serverTime),
		ClientTimeBefore: msg.ClientTimeBefore,
	}

	data, err := codec.Encode(resp)
	if err != nil {
		slog.Warn("sync response encode error", "clientId", conn.ID(), "error", err)
		return
	}
	if err := conn.Send(data); err != nil {
		slog.Debug("sync response send failed", "clientId", conn.ID(), "error", err)
		return
	}
	slog.Debug("clock sync response sent", "label", conn.Label(), "serverTime", serverTime)
}

func (h *Handler) handleChat(conn domain.Connection, msg *domain.Message) {
	slog.Info("chat", "label", conn.Label(), "content", msg.Content)

	h.broadcaster.Broadcast(&domain.Message{
		Type:            domain.TypeBroadcast,
		UserID:          conn.Label(),
		Text:            msg.Content,
		ClientTimestamp: msg.ClientTimestamp,
	})
}
