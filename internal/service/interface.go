package service

import (
	"context"

	"github.com/stagelive/queue-service/internal/domain"
)

// QueueService is the queue engine: it validates each transition against the
// state machine and delegates the conditional write to the store. It holds no
// in-process queue state; the store is the single source of truth.
type QueueService interface {
	Join(ctx context.Context, roomType domain.RoomType, userID, stageName string) (*domain.EntryResponse, error)
	Leave(ctx context.Context, roomType domain.RoomType, userID string) error
	CallUp(ctx context.Context, roomType domain.RoomType, userID string) error
	MarkReady(ctx context.Context, roomType domain.RoomType, userID string) error
	StartPerformance(ctx context.Context, roomType domain.RoomType, userID string) (*domain.EntryResponse, error)
	EndPerformance(ctx context.Context, roomType domain.RoomType, userID string) error
	RemoveUser(ctx context.Context, roomType domain.RoomType, userID string) error

	GetQueue(ctx context.Context, roomType domain.RoomType) ([]domain.EntryResponse, error)
	GetActiveUser(ctx context.Context, roomType domain.RoomType) (*domain.EntryResponse, error)
	GetHistory(ctx context.Context, roomType domain.RoomType, limit int) ([]domain.EntryResponse, error)

	// Snapshot computes the current public view of a room by room ID.
	// Used by the notifier on every change-feed event.
	Snapshot(ctx context.Context, roomID string) (*domain.Snapshot, error)

	// Room resolves a room type against the registry.
	Room(roomType domain.RoomType) (domain.Room, error)
}
