package pubsub

import "fmt"

// Channel naming conventions for the performance queue change feed.
const (
	// ChannelQueueChanged carries store-change notifications for one room.
	ChannelQueueChanged = "queue:room:%s:changed"

	// PatternQueueChanged matches the change channels of every room.
	PatternQueueChanged = "queue:room:*:changed"
)

// Event types on the queue change feed.
const (
	EventQueueChanged = "queue_changed"
)

// QueueChangedChannel returns the change-feed channel name for a room.
func QueueChangedChannel(roomID string) string {
	return fmt.Sprintf(ChannelQueueChanged, roomID)
}

// QueueChangedPayload describes a committed store change. Consumers must not
// trust it as state: delivery is at-least-once and the notifier always
// re-reads the store before fanning out snapshots.
type QueueChangedPayload struct {
	RoomID string `json:"room_id"`
	Action string `json:"action"`
	UserID string `json:"user_id"`
}
