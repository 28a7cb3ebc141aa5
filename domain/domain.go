package domain

import "time"

// Message kinds exchanged over the wire. Unknown kinds are ignored by
// both sides.
const (
	TypeChat              = "chat"
	TypeClockSyncRequest  = "clock_sync_request"
	TypeClockSyncResponse = "clock_sync_response"
	TypeUserJoin          = "user_join"
	TypeUserLeave         = "user_leave"
	TypeBroadcast         = "broadcast"
)

// Message is the single wire record. Optional fields are pointers so a
// field absent on the wire stays absent when re-encoded; which fields
// are set depends on Type:
//
//	chat:                 Content, ClientTimestamp
//	clock_sync_request:   ClientTimeBefore
//	clock_sync_response:  ServerTime, ClientTimeBefore (echoed)
//	user_join/user_leave: UserID, Text
//	broadcast:            UserID, Text, ClientTimestamp, ServerTimestamp
//
// Every outbound server message except clock_sync_response carries
// ServerTimestamp, stamped at broadcast time.
type Message struct {
	Type             string `json:"type"`
	Content          string `json:"content,omitempty"`
	UserID           string `json:"user_id,omitempty"`
	Text             string `json:"message,omitempty"`
	ClientTimestamp  *int64 `json:"client_timestamp,omitempty"`
	ClientTimeBefore *int64 `json:"client_time_before,omitempty"`
	ServerTime       *int64 `json:"server_time,omitempty"`
	ServerTimestamp  *int64 `json:"server_timestamp,omitempty"`
}

// Millis returns a pointer to v, for the optional timestamp fields.
func Millis(v int64) *int64 { return &v }

// JoinMessage announces a newly connected client.
func JoinMessage(label string) *Message {
	return &Message{
		Type:   TypeUserJoin,
		UserID: label,
		Text:   label + " joined the chat",
	}
}

// LeaveMessage announces a disconnected client.
func LeaveMessage(label string) *Message {
	return &Message{
		Type:   TypeUserLeave,
		UserID: label,
		Text:   label + " left the chat",
	}
}

// Connection is one live client connection, whatever the transport.
// ID is unique for the process lifetime; Label is the display id shown
// to other clients.
type Connection interface {
	ID() string
	Label() string
	RemoteAddr() string
	ConnectedAt() time.Time
	Send(data []byte) error
	Close() error
}

// Broadcaster keeps the set of live connections and fans messages out
// to all of them. Unregister reports whether the connection was still
// registered, so callers can announce the leave exactly once.
type Broadcaster interface {
	Register(conn Connection)
	Unregister(conn Connection) bool
	Broadcast(msg *Message)
	Count() int
}

// MessageHandler dispatches one decoded frame from a connection.
type MessageHandler interface {
	Handle(conn Connection, data []byte)
}
