package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preetjindal555-coder/what-sapp/codec"
	"github.com/preetjindal555-coder/what-sapp/domain"
	"github.com/preetjindal555-coder/what-sapp/hub"
	"github.com/preetjindal555-coder/what-sapp/protocol"
)

func startGateway(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	clock := clockwork.NewRealClock()
	h := hub.New(clock)
	srv := New("127.0.0.1:0", h, protocol.NewHandler(h, clock))

	ts := httptest.NewServer(srv.GatewayHandler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func wsNext(t *testing.T, conn *websocket.Conn, wantType string) *domain.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", wantType)
		msg, err := codec.Decode(data)
		require.NoError(t, err)
		if msg.Type == wantType {
			return msg
		}
	}
}

func TestGateway_WebsocketChat(t *testing.T) {
	_, ts := startGateway(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	join := wsNext(t, conn, domain.TypeUserJoin)
	assert.Equal(t, "Client_1", join.UserID)

	chat, err := codec.Encode(&domain.Message{
		Type:            domain.TypeChat,
		Content:         "over ws",
		ClientTimestamp: domain.Millis(42),
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, chat))

	out := wsNext(t, conn, domain.TypeBroadcast)
	assert.Equal(t, "Client_1", out.UserID)
	assert.Equal(t, "over ws", out.Text)
	require.NotNil(t, out.ServerTimestamp)
}

func TestGateway_WebsocketClockSync(t *testing.T) {
	_, ts := startGateway(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	wsNext(t, conn, domain.TypeUserJoin)

	req, err := codec.Encode(&domain.Message{
		Type:             domain.TypeClockSyncRequest,
		ClientTimeBefore: domain.Millis(5000),
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, req))

	resp := wsNext(t, conn, domain.TypeClockSyncResponse)
	require.NotNil(t, resp.ClientTimeBefore)
	assert.Equal(t, int64(5000), *resp.ClientTimeBefore)
	require.NotNil(t, resp.ServerTime)
}

func TestGateway_Health(t *testing.T) {
	_, ts := startGateway(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestGateway_Stats(t *testing.T) {
	_, ts := startGateway(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()
	wsNext(t, conn, domain.TypeUserJoin)

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Clients  int `json:"clients"`
		Sessions []struct {
			Label  string `json:"label"`
			Remote string `json:"remote"`
		} `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Clients)
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, "Client_1", body.Sessions[0].Label)
	assert.NotEmpty(t, body.Sessions[0].Remote)
}
