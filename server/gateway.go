package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/preetjindal555-coder/what-sapp/domain"
	ws "github.com/preetjindal555-coder/what-sapp/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// GatewayHandler serves the HTTP side entrance: /ws upgrades browser
// clients into the same hub the TCP clients share, /health and /stats
// expose liveness and the active client count.
func (s *Server) GatewayHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	return cors.Default().Handler(mux)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrade error", "error", err)
		return
	}

	label := s.hub.NextLabel()
	wsConn := ws.NewConn(uuid.NewString(), label, conn, s.hub, s.handler)
	s.hub.Register(wsConn)
	s.hub.Broadcast(domain.JoinMessage(label))
	wsConn.Start()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type sessionInfo struct {
	Label         string `json:"label"`
	Remote        string `json:"remote"`
	ConnectedAtMs int64  `json:"connected_at_ms"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	conns := s.hub.Snapshot()
	sessions := make([]sessionInfo, 0, len(conns))
	for _, c := range conns {
		sessions = append(sessions, sessionInfo{
			Label:         c.Label(),
			Remote:        c.RemoteAddr(),
			ConnectedAtMs: c.ConnectedAt().UnixMilli(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"clients":  len(sessions),
		"sessions": sessions,
	})
}
