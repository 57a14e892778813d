package domain

import (
	"time"
)

// QueueEntryModel is the GORM model for the queue_entries table. Removed
// entries stay in the table for history; active reads filter them out.
//
// ActiveKey and LiveRoomID are constraint columns, not data: each holds a
// value only while its invariant applies and is NULLed on removal, so the
// plain unique indexes enforce one active entry per (room, user) and one
// live entry per room on every supported database. Predicate-based guards
// are not enough here: under READ COMMITTED two concurrent writers can each
// pass the same check before either commit is visible.
type QueueEntryModel struct {
	ID         string  `gorm:"type:varchar(36);primaryKey"`
	RoomID     string  `gorm:"type:varchar(36);index;not null"`
	RoomType   string  `gorm:"type:varchar(20);not null"`
	UserID     string  `gorm:"type:varchar(36);index;not null"`
	StageName  string  `gorm:"type:varchar(50);not null"`
	Status     string  `gorm:"type:varchar(20);index;not null;default:'queued'"`
	ActiveKey  *string `gorm:"type:varchar(80);uniqueIndex"`
	LiveRoomID *string `gorm:"type:varchar(36);uniqueIndex"`
	JoinedAt   time.Time
	CalledAt   *time.Time
	LiveAt     *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// ActiveEntryKey builds the active_key value for a non-removed entry.
func ActiveEntryKey(roomID, userID string) string {
	return roomID + "/" + userID
}

// TableName specifies the table name for QueueEntryModel.
func (QueueEntryModel) TableName() string {
	return "queue_entries"
}

// ToDomain converts QueueEntryModel to a domain QueueEntry.
func (m *QueueEntryModel) ToDomain() *QueueEntry {
	return &QueueEntry{
		ID:        m.ID,
		RoomID:    m.RoomID,
		RoomType:  RoomType(m.RoomType),
		UserID:    m.UserID,
		StageName: m.StageName,
		Status:    Status(m.Status),
		JoinedAt:  m.JoinedAt,
		CalledAt:  m.CalledAt,
		LiveAt:    m.LiveAt,
	}
}

// EntryToModel converts a domain QueueEntry to its GORM model.
func EntryToModel(e *QueueEntry) *QueueEntryModel {
	return &QueueEntryModel{
		ID:        e.ID,
		RoomID:    e.RoomID,
		RoomType:  string(e.RoomType),
		UserID:    e.UserID,
		StageName: e.StageName,
		Status:    string(e.Status),
		JoinedAt:  e.JoinedAt,
		CalledAt:  e.CalledAt,
		LiveAt:    e.LiveAt,
	}
}
