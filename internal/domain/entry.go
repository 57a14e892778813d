package domain

import (
	"time"
)

// Status represents a queue entry's position in the performance lifecycle.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusCalledUp Status = "called_up"
	StatusReady    Status = "ready"
	StatusLive     Status = "live"
	StatusRemoved  Status = "removed"
)

// ActiveStatuses are the statuses that occupy a place in the waiting line.
// A user may hold at most one entry in these statuses per room.
var ActiveStatuses = []Status{StatusQueued, StatusCalledUp, StatusReady}

// NonRemovedStatuses are every status except the terminal one.
var NonRemovedStatuses = []Status{StatusQueued, StatusCalledUp, StatusReady, StatusLive}

// QueueEntry is one participant's record of intent to perform in one room.
type QueueEntry struct {
	ID        string     `json:"id"`
	RoomID    string     `json:"room_id"`
	RoomType  RoomType   `json:"room_type"`
	UserID    string     `json:"user_id"`
	StageName string     `json:"stage_name"`
	Status    Status     `json:"status"`
	JoinedAt  time.Time  `json:"joined_at"`
	CalledAt  *time.Time `json:"called_at,omitempty"`
	LiveAt    *time.Time `json:"live_at,omitempty"`
}

// EntryResponse represents a queue entry in API responses and snapshots.
type EntryResponse struct {
	ID        string     `json:"id"`
	RoomID    string     `json:"room_id"`
	RoomType  RoomType   `json:"room_type"`
	UserID    string     `json:"user_id"`
	StageName string     `json:"stage_name"`
	Status    Status     `json:"status"`
	JoinedAt  time.Time  `json:"joined_at"`
	CalledAt  *time.Time `json:"called_at,omitempty"`
	LiveAt    *time.Time `json:"live_at,omitempty"`
}

// ToResponse converts a QueueEntry to its API representation.
func (e *QueueEntry) ToResponse() EntryResponse {
	return EntryResponse{
		ID:        e.ID,
		RoomID:    e.RoomID,
		RoomType:  e.RoomType,
		UserID:    e.UserID,
		StageName: e.StageName,
		Status:    e.Status,
		JoinedAt:  e.JoinedAt,
		CalledAt:  e.CalledAt,
		LiveAt:    e.LiveAt,
	}
}

// Snapshot is the public view of one room's queue: the ordered waiting line
// plus the entry currently holding the live slot. Delivered to subscribers on
// every committed change; receiving the same snapshot twice is harmless.
type Snapshot struct {
	RoomID   string          `json:"room_id"`
	RoomType RoomType        `json:"room_type"`
	Queue    []EntryResponse `json:"queue"`
	Live     *EntryResponse  `json:"live,omitempty"`
}

// StageCredential is the video-transport join credential minted for the
// performer who won the live slot.
type StageCredential struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}
