package tcp

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preetjindal555-coder/what-sapp/codec"
	"github.com/preetjindal555-coder/what-sapp/domain"
)

type mockBroadcaster struct {
	mu         sync.Mutex
	registered map[string]bool
	broadcasts []*domain.Message
	removals   int
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{registered: make(map[string]bool)}
}

func (m *mockBroadcaster) Register(conn domain.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered[conn.ID()] = true
}

func (m *mockBroadcaster) Unregister(conn domain.Connection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removals++
	if !m.registered[conn.ID()] {
		return false
	}
	delete(m.registered, conn.ID())
	return true
}

func (m *mockBroadcaster) Broadcast(msg *domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, msg)
}

func (m *mockBroadcaster) Count() int { return 0 }

func (m *mockBroadcaster) getBroadcasts() []*domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Message, len(m.broadcasts))
	copy(out, m.broadcasts)
	return out
}

type mockHandler struct {
	mu     sync.Mutex
	frames [][]byte
}

func (m *mockHandler) Handle(conn domain.Connection, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	frame := make([]byte, len(data))
	copy(frame, data)
	m.frames = append(m.frames, frame)
}

func (m *mockHandler) getFrames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

func TestConn_SendReachesPeer(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	b := newMockBroadcaster()
	c := NewConn("id-1", "Client_1", serverSide, b, &mockHandler{})
	b.Register(c)
	c.Start()
	defer c.Close()

	payload, err := codec.Encode(domain.JoinMessage("Client_1"))
	require.NoError(t, err)
	require.NoError(t, c.Send(payload))

	clientSide.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := codec.NewDecoder(clientSide).Next()
	require.NoError(t, err)

	msg, err := codec.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeUserJoin, msg.Type)
}

func TestConn_ReadDispatchesFrames(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	b := newMockBroadcaster()
	h := &mockHandler{}
	c := NewConn("id-1", "Client_1", serverSide, b, h)
	b.Register(c)
	c.Start()
	defer c.Close()

	data, err := codec.Encode(&domain.Message{Type: domain.TypeChat, Content: "hi"})
	require.NoError(t, err)
	_, err = clientSide.Write(data)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(h.getFrames()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConn_SingleLeaveOnDisconnect(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	b := newMockBroadcaster()
	c := NewConn("id-1", "Client_1", serverSide, b, &mockHandler{})
	b.Register(c)
	c.Start()

	// peer drops without warning
	clientSide.Close()

	require.Eventually(t, func() bool {
		return len(b.getBroadcasts()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	leave := b.getBroadcasts()[0]
	assert.Equal(t, domain.TypeUserLeave, leave.Type)
	assert.Equal(t, "Client_1", leave.UserID)

	// a local Close after the fact must not announce a second leave
	c.Close()
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, b.getBroadcasts(), 1)
}

func TestConn_SendAfterCloseFails(t *testing.T) {
	serverSide, _ := net.Pipe()
	b := newMockBroadcaster()
	c := NewConn("id-1", "Client_1", serverSide, b, &mockHandler{})

	require.NoError(t, c.Close())
	assert.Error(t, c.Send([]byte("x\n")))
}

func TestConn_FullQueueIsSendFailure(t *testing.T) {
	// no write pump running, so the queue can only fill up
	serverSide, _ := net.Pipe()
	b := newMockBroadcaster()
	c := NewConn("id-1", "Client_1", serverSide, b, &mockHandler{})

	var err error
	for i := 0; i <= sendQueueSize; i++ {
		err = c.Send([]byte("x\n"))
		if err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, ErrSendQueueFull)
}
