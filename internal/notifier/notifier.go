package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/stagelive/queue-service/internal/cache"
	"github.com/stagelive/queue-service/internal/domain"
	"github.com/stagelive/queue-service/internal/hub"
	"github.com/stagelive/queue-service/internal/service"
	"github.com/stagelive/queue-service/pkg/log"
	"github.com/stagelive/queue-service/pkg/pubsub"
)

// Handler receives a freshly computed snapshot for a room. Handlers must
// tolerate duplicate snapshots: delivery is at-least-once.
type Handler func(*domain.Snapshot)

// Notifier consumes the queue change feed and fans freshly read snapshots out
// to every subscriber of the changed room: WebSocket clients via the hub,
// in-process handlers registered with Subscribe, and the snapshot cache.
// It never trusts event payloads as state; each event triggers a store re-read,
// which makes duplicate or reordered events harmless.
type Notifier struct {
	subscriber pubsub.Subscriber
	svc        service.QueueService
	hub        *hub.Hub
	snapshots  cache.SnapshotCache

	mu       sync.RWMutex
	handlers map[domain.RoomType]map[int]Handler
	nextID   int

	doneCh chan struct{}
}

// New creates a Notifier. The hub and snapshot cache are optional.
func New(subscriber pubsub.Subscriber, svc service.QueueService, h *hub.Hub, snapshots cache.SnapshotCache) *Notifier {
	return &Notifier{
		subscriber: subscriber,
		svc:        svc,
		hub:        h,
		snapshots:  snapshots,
		handlers:   make(map[domain.RoomType]map[int]Handler),
		doneCh:     make(chan struct{}),
	}
}

// Subscribe registers an in-process handler for one room's snapshots.
// The returned function unsubscribes it.
func (n *Notifier) Subscribe(roomType domain.RoomType, handler Handler) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.handlers[roomType]; !ok {
		n.handlers[roomType] = make(map[int]Handler)
	}
	id := n.nextID
	n.nextID++
	n.handlers[roomType][id] = handler

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.handlers[roomType], id)
	}
}

// Done returns a channel that is closed when Run exits.
func (n *Notifier) Done() <-chan struct{} { return n.doneCh }

// Run consumes the change feed until ctx is done, re-subscribing after
// transport errors.
func (n *Notifier) Run(ctx context.Context) {
	defer close(n.doneCh)
	l := log.L()

	for {
		if err := n.consume(ctx); err != nil && ctx.Err() == nil {
			l.Warn().Err(err).Msg("queue change feed error, resubscribing in 2s")
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
				continue
			}
		}
		if ctx.Err() != nil {
			return
		}
		// Feed channel closed without error; resubscribe.
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (n *Notifier) consume(ctx context.Context) error {
	events, err := n.subscriber.SubscribePattern(ctx, pubsub.PatternQueueChanged)
	if err != nil {
		return err
	}
	defer n.subscriber.Unsubscribe(ctx, pubsub.PatternQueueChanged)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Type != pubsub.EventQueueChanged || event.RoomID == "" {
				continue
			}
			n.dispatch(ctx, event.RoomID)
		}
	}
}

// dispatch re-reads the room's state and delivers the snapshot everywhere.
func (n *Notifier) dispatch(ctx context.Context, roomID string) {
	l := log.L()

	snap, err := n.svc.Snapshot(ctx, roomID)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to compute snapshot for change event")
		return
	}

	if n.snapshots != nil {
		if err := n.snapshots.Set(ctx, snap); err != nil {
			l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to cache snapshot")
		}
	}

	if n.hub != nil {
		if err := n.hub.BroadcastToRoom(roomID, domain.NewSnapshotMessage(snap)); err != nil {
			l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to broadcast snapshot")
		}
	}

	n.mu.RLock()
	handlers := make([]Handler, 0, len(n.handlers[snap.RoomType]))
	for _, h := range n.handlers[snap.RoomType] {
		handlers = append(handlers, h)
	}
	n.mu.RUnlock()

	for _, h := range handlers {
		h(snap)
	}
}
