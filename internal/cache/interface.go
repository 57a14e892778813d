package cache

import (
	"context"

	"github.com/stagelive/queue-service/internal/domain"
)

// SnapshotCache keeps the latest published snapshot per room so a newly
// connected subscriber can be primed without a store read. Receiving a stale
// snapshot is harmless: delivery is at-least-once and the next change-feed
// event replaces it.
type SnapshotCache interface {
	Get(ctx context.Context, roomID string) (*domain.Snapshot, error)
	Set(ctx context.Context, snapshot *domain.Snapshot) error
	Close() error
}
