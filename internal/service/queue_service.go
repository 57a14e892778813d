package service

import (
	"context"
	"errors"

	"github.com/stagelive/queue-service/internal/audit"
	"github.com/stagelive/queue-service/internal/domain"
	"github.com/stagelive/queue-service/internal/repository"
	"github.com/stagelive/queue-service/pkg/log"
	"github.com/stagelive/queue-service/pkg/pubsub"
)

// queueServiceImpl implements QueueService.
type queueServiceImpl struct {
	repo      repository.QueueRepository
	registry  *domain.Registry
	publisher pubsub.Publisher
}

// NewQueueService creates a new queue service.
func NewQueueService(repo repository.QueueRepository, registry *domain.Registry, publisher pubsub.Publisher) QueueService {
	return &queueServiceImpl{
		repo:      repo,
		registry:  registry,
		publisher: publisher,
	}
}

// Room resolves a room type against the registry.
func (s *queueServiceImpl) Room(roomType domain.RoomType) (domain.Room, error) {
	room, ok := s.registry.Get(roomType)
	if !ok {
		return domain.Room{}, domain.ErrUnknownRoom
	}
	return room, nil
}

// Join creates a queued entry at the tail of the room's line.
func (s *queueServiceImpl) Join(ctx context.Context, roomType domain.RoomType, userID, stageName string) (*domain.EntryResponse, error) {
	room, err := s.Room(roomType)
	if err != nil {
		return nil, err
	}

	entry := &domain.QueueEntry{
		RoomID:    room.ID,
		RoomType:  room.Type,
		UserID:    userID,
		StageName: stageName,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionJoin, room.ID, userID, "user joined queue")
	s.publishChange(ctx, room, audit.ActionJoin, userID)

	resp := entry.ToResponse()
	return &resp, nil
}

// Leave removes a queued entry. A participant past queued must go through
// endPerformance or removeUser instead.
func (s *queueServiceImpl) Leave(ctx context.Context, roomType domain.RoomType, userID string) error {
	return s.transition(ctx, roomType, userID,
		[]domain.Status{domain.StatusQueued}, domain.StatusRemoved,
		audit.ActionLeave, "user left queue")
}

// CallUp summons the participant: queued → called_up, stamping called_at.
func (s *queueServiceImpl) CallUp(ctx context.Context, roomType domain.RoomType, userID string) error {
	return s.transition(ctx, roomType, userID,
		[]domain.Status{domain.StatusQueued}, domain.StatusCalledUp,
		audit.ActionCallUp, "user called up")
}

// MarkReady confirms the summoned participant is present: called_up → ready.
func (s *queueServiceImpl) MarkReady(ctx context.Context, roomType domain.RoomType, userID string) error {
	return s.transition(ctx, roomType, userID,
		[]domain.Status{domain.StatusCalledUp}, domain.StatusReady,
		audit.ActionReady, "user marked ready")
}

// StartPerformance grants the live slot. The no-other-live check and the
// write are one conditional store operation; of two concurrent callers in the
// same room exactly one succeeds.
func (s *queueServiceImpl) StartPerformance(ctx context.Context, roomType domain.RoomType, userID string) (*domain.EntryResponse, error) {
	room, err := s.Room(roomType)
	if err != nil {
		return nil, err
	}

	entry, err := s.repo.SetLive(ctx, room.ID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil, s.liveConflict(ctx, room, userID)
		}
		return nil, err
	}

	audit.Log(ctx, audit.ActionGoLive, room.ID, userID, "performance started")
	s.publishChange(ctx, room, audit.ActionGoLive, userID)

	resp := entry.ToResponse()
	return &resp, nil
}

// EndPerformance releases the live slot (or a ready entry that never went
// live). The queue does not auto-advance; calling up the next participant is
// an explicit moderator action.
func (s *queueServiceImpl) EndPerformance(ctx context.Context, roomType domain.RoomType, userID string) error {
	return s.transition(ctx, roomType, userID,
		[]domain.Status{domain.StatusLive, domain.StatusReady}, domain.StatusRemoved,
		audit.ActionEnd, "performance ended")
}

// RemoveUser force-removes the user's entry from any non-removed status.
func (s *queueServiceImpl) RemoveUser(ctx context.Context, roomType domain.RoomType, userID string) error {
	return s.transition(ctx, roomType, userID,
		domain.NonRemovedStatuses, domain.StatusRemoved,
		audit.ActionRemove, "user removed from queue", "forced removal")
}

// GetQueue returns the room's waiting line in call-up order.
func (s *queueServiceImpl) GetQueue(ctx context.Context, roomType domain.RoomType) ([]domain.EntryResponse, error) {
	room, err := s.Room(roomType)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.ListActive(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	responses := make([]domain.EntryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = entry.ToResponse()
	}
	return responses, nil
}

// GetActiveUser returns the room's live entry, or nil when the stage is empty.
func (s *queueServiceImpl) GetActiveUser(ctx context.Context, roomType domain.RoomType) (*domain.EntryResponse, error) {
	room, err := s.Room(roomType)
	if err != nil {
		return nil, err
	}

	entry, err := s.repo.GetLive(ctx, room.ID)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil, nil
		}
		return nil, err
	}

	resp := entry.ToResponse()
	return &resp, nil
}

// GetHistory returns recently finished entries for moderation review.
func (s *queueServiceImpl) GetHistory(ctx context.Context, roomType domain.RoomType, limit int) ([]domain.EntryResponse, error) {
	room, err := s.Room(roomType)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.ListHistory(ctx, room.ID, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]domain.EntryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = entry.ToResponse()
	}
	return responses, nil
}

// Snapshot computes the current public view of a room by room ID.
func (s *queueServiceImpl) Snapshot(ctx context.Context, roomID string) (*domain.Snapshot, error) {
	room, ok := s.registry.GetByID(roomID)
	if !ok {
		return nil, domain.ErrUnknownRoom
	}

	queue, err := s.repo.ListActive(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	snap := &domain.Snapshot{
		RoomID:   room.ID,
		RoomType: room.Type,
		Queue:    make([]domain.EntryResponse, len(queue)),
	}
	for i, entry := range queue {
		snap.Queue[i] = entry.ToResponse()
	}

	live, err := s.repo.GetLive(ctx, room.ID)
	if err != nil && !errors.Is(err, domain.ErrEntryNotFound) {
		return nil, err
	}
	if live != nil {
		resp := live.ToResponse()
		snap.Live = &resp
	}

	return snap, nil
}

// transition runs one conditional status move and, on success, audits and
// publishes the change. A zero-row update is translated into the error the
// caller can act on: not found, or a state conflict naming the actual status.
// An optional detail string is carried into the audit record.
func (s *queueServiceImpl) transition(ctx context.Context, roomType domain.RoomType, userID string, from []domain.Status, to domain.Status, action, msg string, detail ...string) error {
	room, err := s.Room(roomType)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateStatus(ctx, room.ID, userID, from, to); err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return s.conflictFor(ctx, room, userID, from)
		}
		return err
	}

	if len(detail) > 0 {
		audit.LogWithDetail(ctx, action, room.ID, userID, detail[0], msg)
	} else {
		audit.Log(ctx, action, room.ID, userID, msg)
	}
	s.publishChange(ctx, room, action, userID)
	return nil
}

// conflictFor re-reads the entry after a failed conditional update to name
// the expected-vs-actual mismatch.
func (s *queueServiceImpl) conflictFor(ctx context.Context, room domain.Room, userID string, expected []domain.Status) error {
	entry, err := s.repo.GetActive(ctx, room.ID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return domain.ErrEntryNotFound
		}
		return err
	}
	return &domain.StateConflictError{
		UserID:   userID,
		RoomID:   room.ID,
		Expected: expected,
		Actual:   entry.Status,
	}
}

// liveConflict explains a failed StartPerformance: either the entry was not
// ready, or another entry already holds the live slot.
func (s *queueServiceImpl) liveConflict(ctx context.Context, room domain.Room, userID string) error {
	entry, err := s.repo.GetActive(ctx, room.ID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return domain.ErrEntryNotFound
		}
		return err
	}

	conflict := &domain.StateConflictError{
		UserID:   userID,
		RoomID:   room.ID,
		Expected: []domain.Status{domain.StatusReady},
		Actual:   entry.Status,
	}
	if entry.Status == domain.StatusReady {
		conflict.Reason = "live slot already occupied"
	}
	return conflict
}

// publishChange emits a change-feed event after a committed store write.
// Best effort: a lost notification is healed by the next event or by client
// reconnect, so failures are logged rather than returned.
func (s *queueServiceImpl) publishChange(ctx context.Context, room domain.Room, action, userID string) {
	l := log.Ctx(ctx)

	event, err := pubsub.NewEvent(pubsub.EventQueueChanged, room.ID, pubsub.QueueChangedPayload{
		RoomID: room.ID,
		Action: action,
		UserID: userID,
	})
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, room.ID).Msg("failed to build queue change event")
		return
	}

	if err := s.publisher.Publish(ctx, pubsub.QueueChangedChannel(room.ID), event); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, room.ID).Msg("failed to publish queue change event")
	}
}
