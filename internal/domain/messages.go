package domain

// WebSocket message types for queue subscribers.
const (
	MsgTypeSubscribe   = "subscribe"
	MsgTypeUnsubscribe = "unsubscribe"
	MsgTypeSnapshot    = "snapshot"
	MsgTypeError       = "error"
)

// BaseMessage is used to sniff the type of an incoming message.
type BaseMessage struct {
	Type string `json:"type"`
}

// SubscribeMessage asks for snapshot delivery for one room.
type SubscribeMessage struct {
	Type     string `json:"type"`
	RoomType string `json:"room_type"`
}

// SnapshotMessage delivers the current queue view for a room.
type SnapshotMessage struct {
	Type     string    `json:"type"`
	Snapshot *Snapshot `json:"snapshot"`
}

// ErrorMessage reports a protocol error to the client.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewSnapshotMessage wraps a snapshot for delivery.
func NewSnapshotMessage(s *Snapshot) *SnapshotMessage {
	return &SnapshotMessage{Type: MsgTypeSnapshot, Snapshot: s}
}

// NewErrorMessage builds an error message.
func NewErrorMessage(msg string) *ErrorMessage {
	return &ErrorMessage{Type: MsgTypeError, Message: msg}
}
