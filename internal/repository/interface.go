package repository

import (
	"context"

	"github.com/stagelive/queue-service/internal/domain"
)

// QueueRepository defines the store operations the queue engine relies on.
// All mutations are conditional: status moves match the expected current
// status in the same statement that applies the write, and the uniqueness
// invariants (one active entry per user, one live entry per room) are backed
// by unique indexes, so concurrent callers serialize at the store rather
// than in process.
type QueueRepository interface {
	// Insert creates a new entry. Returns domain.ErrEntryConflict when the
	// user already holds an active entry in the room.
	Insert(ctx context.Context, entry *domain.QueueEntry) error

	// UpdateStatus moves the entry for (room, user) from one of the given
	// source statuses to the target status, stamping called_at when the
	// target is called_up. Returns domain.ErrEntryNotFound when no entry
	// matches the condition.
	UpdateStatus(ctx context.Context, roomID, userID string, from []domain.Status, to domain.Status) error

	// SetLive grants the live slot: it moves the entry for (room, user) from
	// ready to live and stamps live_at, claiming the room's unique live slot
	// in the same statement. Returns domain.ErrEntryNotFound when the entry
	// is not ready or the slot is already held.
	SetLive(ctx context.Context, roomID, userID string) (*domain.QueueEntry, error)

	// ListActive returns all queued/called_up/ready entries for the room,
	// ordered ascending by join time.
	ListActive(ctx context.Context, roomID string) ([]domain.QueueEntry, error)

	// GetLive returns the room's live entry, or domain.ErrEntryNotFound.
	GetLive(ctx context.Context, roomID string) (*domain.QueueEntry, error)

	// GetActive returns the user's non-removed entry in the room, or
	// domain.ErrEntryNotFound.
	GetActive(ctx context.Context, roomID, userID string) (*domain.QueueEntry, error)

	// ListHistory returns the most recent removed entries for the room.
	ListHistory(ctx context.Context, roomID string, limit int) ([]domain.QueueEntry, error)
}
