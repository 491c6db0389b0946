package domain

import "errors"

// ErrConnectionClosed is returned by Send when the peer is gone or its
// outbound buffer has been torn down. Delivery to a dead connection is a
// no-op for the caller, not a fault.
var ErrConnectionClosed = errors.New("connection closed")

// Member is a room participant as seen by its peers.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Connection is one live client channel. The transport adapter owns the
// underlying socket; everything else refers to a connection only by its id
// and Send capability.
type Connection interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Registry tracks live connections by id. Unregister is idempotent.
type Registry interface {
	Register(conn Connection)
	Unregister(id string)
	Lookup(id string) (Connection, bool)
	Count() int
}

// Directory maps rooms to their members and each connection to its current
// room and display name.
type Directory interface {
	// Join adds the connection to the room, creating it if needed, and
	// returns the member list as it existed immediately before this join.
	Join(roomID, connID, name string) []Member
	// Leave removes the connection's membership and returns the room it
	// was in, or ok=false if it had none.
	Leave(connID string) (roomID string, ok bool)
	MembersOf(roomID string) []string
	RoomOf(connID string) (string, bool)
	NameOf(connID string) (string, bool)
	Stats() (rooms, members int)
}

// TranscriptSink receives utterance records captured during a session.
type TranscriptSink interface {
	Append(roomID, userName, text string, timestampMs int64) error
}

// SessionHandler is what the transport adapter drives: one call per
// connect, per inbound frame, and per disconnect.
type SessionHandler interface {
	Connect(conn Connection)
	Message(conn Connection, data []byte)
	Disconnect(conn Connection)
}
