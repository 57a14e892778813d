package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagelive/queue-service/internal/domain"
	"github.com/stagelive/queue-service/pkg/log"
)

// GormQueueRepository implements QueueRepository using GORM.
type GormQueueRepository struct {
	db *gorm.DB
}

// NewGormQueueRepository creates a new GORM-based queue repository.
func NewGormQueueRepository(db *gorm.DB) *GormQueueRepository {
	return &GormQueueRepository{db: db}
}

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

// Insert creates a new entry unless the user already holds an active one in
// the room. The unique index on active_key is the guard: a racing duplicate
// join fails at the index regardless of isolation level, so no
// check-then-create window exists.
func (r *GormQueueRepository) Insert(ctx context.Context, entry *domain.QueueEntry) error {
	l := log.Ctx(ctx)

	entry.ID = uuid.New().String()
	entry.Status = domain.StatusQueued
	entry.JoinedAt = time.Now().UTC()

	model := domain.EntryToModel(entry)
	key := domain.ActiveEntryKey(entry.RoomID, entry.UserID)
	model.ActiveKey = &key

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrEntryConflict
		}
		l.Error().Err(err).Str(log.FieldRoomID, entry.RoomID).Str(log.FieldUserID, entry.UserID).
			Msg("failed to insert queue entry")
		return storeErr(err)
	}

	l.Debug().Str(log.FieldEntryID, entry.ID).Str(log.FieldRoomID, entry.RoomID).Msg("queue entry created")
	return nil
}

// UpdateStatus conditionally moves an entry between statuses. The WHERE clause
// carries the expected source statuses, so a lost race updates zero rows
// instead of clobbering a concurrent transition.
func (r *GormQueueRepository) UpdateStatus(ctx context.Context, roomID, userID string, from []domain.Status, to domain.Status) error {
	l := log.Ctx(ctx)

	updates := map[string]interface{}{
		"status": string(to),
	}
	if to == domain.StatusCalledUp {
		updates["called_at"] = time.Now().UTC()
	}
	if to == domain.StatusRemoved {
		// Release the constraint columns so the user can rejoin and the
		// room's live slot reopens.
		updates["active_key"] = nil
		updates["live_room_id"] = nil
	}

	result := r.db.WithContext(ctx).Model(&domain.QueueEntryModel{}).
		Where("room_id = ? AND user_id = ? AND status IN ?", roomID, userID, statusStrings(from)).
		Updates(updates)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Str(log.FieldUserID, userID).
			Str(log.FieldEntryTo, string(to)).Msg("failed to update queue entry status")
		return storeErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrEntryNotFound
	}

	l.Debug().Str(log.FieldRoomID, roomID).Str(log.FieldUserID, userID).
		Str(log.FieldEntryTo, string(to)).Msg("queue entry status updated")
	return nil
}

// SetLive is the mutual-exclusion checkpoint. Writing the room ID into the
// unique live_room_id column claims the slot: of two concurrent callers, the
// second hits the index and fails, whatever isolation level the server runs
// at. A predicate-only guard would not do, as each racing UPDATE could read
// a snapshot in which the other's uncommitted claim is invisible.
func (r *GormQueueRepository) SetLive(ctx context.Context, roomID, userID string) (*domain.QueueEntry, error) {
	l := log.Ctx(ctx)

	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&domain.QueueEntryModel{}).
		Where("room_id = ? AND user_id = ? AND status = ?", roomID, userID, string(domain.StatusReady)).
		Updates(map[string]interface{}{
			"status":       string(domain.StatusLive),
			"live_at":      now,
			"live_room_id": roomID,
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			// Another entry holds the room's live slot.
			return nil, domain.ErrEntryNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Str(log.FieldUserID, userID).
			Msg("failed to set live entry")
		return nil, storeErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrEntryNotFound
	}

	entry, err := r.GetActive(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}

	l.Debug().Str(log.FieldRoomID, roomID).Str(log.FieldUserID, userID).Msg("entry went live")
	return entry, nil
}

// ListActive returns the waiting line ordered by join time. The id column is
// a secondary sort key only to keep listings deterministic when two entries
// share a timestamp.
func (r *GormQueueRepository) ListActive(ctx context.Context, roomID string) ([]domain.QueueEntry, error) {
	l := log.Ctx(ctx)

	var models []domain.QueueEntryModel
	result := r.db.WithContext(ctx).
		Where("room_id = ? AND status IN ?", roomID, statusStrings(domain.ActiveStatuses)).
		Order("joined_at ASC, id ASC").
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Msg("failed to list active queue entries")
		return nil, storeErr(result.Error)
	}

	entries := make([]domain.QueueEntry, len(models))
	for i, model := range models {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// GetLive retrieves the room's live entry.
func (r *GormQueueRepository) GetLive(ctx context.Context, roomID string) (*domain.QueueEntry, error) {
	l := log.Ctx(ctx)

	var model domain.QueueEntryModel
	result := r.db.WithContext(ctx).
		First(&model, "room_id = ? AND status = ?", roomID, string(domain.StatusLive))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEntryNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Msg("failed to get live entry")
		return nil, storeErr(result.Error)
	}
	return model.ToDomain(), nil
}

// GetActive retrieves the user's non-removed entry in the room.
func (r *GormQueueRepository) GetActive(ctx context.Context, roomID, userID string) (*domain.QueueEntry, error) {
	l := log.Ctx(ctx)

	var model domain.QueueEntryModel
	result := r.db.WithContext(ctx).
		First(&model, "room_id = ? AND user_id = ? AND status IN ?",
			roomID, userID, statusStrings(domain.NonRemovedStatuses))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEntryNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Str(log.FieldUserID, userID).
			Msg("failed to get active entry")
		return nil, storeErr(result.Error)
	}
	return model.ToDomain(), nil
}

// ListHistory returns the most recently finished entries for moderation review.
func (r *GormQueueRepository) ListHistory(ctx context.Context, roomID string, limit int) ([]domain.QueueEntry, error) {
	l := log.Ctx(ctx)

	if limit < 1 || limit > 200 {
		limit = 50
	}

	var models []domain.QueueEntryModel
	result := r.db.WithContext(ctx).
		Where("room_id = ? AND status = ?", roomID, string(domain.StatusRemoved)).
		Order("updated_at DESC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Msg("failed to list queue history")
		return nil, storeErr(result.Error)
	}

	entries := make([]domain.QueueEntry, len(models))
	for i, model := range models {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}
