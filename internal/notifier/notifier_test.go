package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stagelive/queue-service/internal/domain"
	"github.com/stagelive/queue-service/internal/repository"
	"github.com/stagelive/queue-service/internal/service"
	"github.com/stagelive/queue-service/pkg/pubsub"
)

// feedStub hands Run a channel the test feeds events into.
type feedStub struct {
	events chan *pubsub.Event
}

func (f *feedStub) SubscribePattern(ctx context.Context, pattern string) (<-chan *pubsub.Event, error) {
	return f.events, nil
}

func (f *feedStub) Unsubscribe(ctx context.Context, channel string) error { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, channel string, event *pubsub.Event) error {
	return nil
}

func newTestNotifier(t *testing.T) (*Notifier, service.QueueService, *feedStub) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.QueueEntryModel{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	registry := domain.NewRegistry([]domain.Room{
		{ID: "audition", Type: domain.RoomTypeAudition, Name: "Audition Room"},
	})
	svc := service.NewQueueService(repository.NewGormQueueRepository(db), registry, nopPublisher{})

	feed := &feedStub{events: make(chan *pubsub.Event, 16)}
	return New(feed, svc, nil, nil), svc, feed
}

func changeEvent(t *testing.T, roomID string) *pubsub.Event {
	t.Helper()
	event, err := pubsub.NewEvent(pubsub.EventQueueChanged, roomID, pubsub.QueueChangedPayload{
		RoomID: roomID,
		Action: "queue.join",
	})
	require.NoError(t, err)
	return event
}

func waitSnapshot(t *testing.T, ch <-chan *domain.Snapshot) *domain.Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestChangeEventFansOutSnapshot(t *testing.T) {
	n, svc, feed := newTestNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *domain.Snapshot, 4)
	unsubscribe := n.Subscribe(domain.RoomTypeAudition, func(snap *domain.Snapshot) {
		received <- snap
	})
	defer unsubscribe()

	go n.Run(ctx)

	_, err := svc.Join(ctx, domain.RoomTypeAudition, "user-a", "Alice")
	require.NoError(t, err)

	feed.events <- changeEvent(t, "audition")

	snap := waitSnapshot(t, received)
	require.Equal(t, "audition", snap.RoomID)
	require.Len(t, snap.Queue, 1)
	require.Equal(t, "user-a", snap.Queue[0].UserID)
	require.Nil(t, snap.Live)
}

func TestDuplicateEventsAreHarmless(t *testing.T) {
	n, svc, feed := newTestNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *domain.Snapshot, 4)
	defer n.Subscribe(domain.RoomTypeAudition, func(snap *domain.Snapshot) {
		received <- snap
	})()

	go n.Run(ctx)

	_, err := svc.Join(ctx, domain.RoomTypeAudition, "user-a", "Alice")
	require.NoError(t, err)

	// The feed is at-least-once; a redelivered event re-reads the same state.
	feed.events <- changeEvent(t, "audition")
	feed.events <- changeEvent(t, "audition")

	first := waitSnapshot(t, received)
	second := waitSnapshot(t, received)
	require.Equal(t, first.Queue, second.Queue)
	require.Equal(t, first.Live, second.Live)
}

func TestUnknownRoomAndForeignEventsIgnored(t *testing.T) {
	n, svc, feed := newTestNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *domain.Snapshot, 4)
	defer n.Subscribe(domain.RoomTypeAudition, func(snap *domain.Snapshot) {
		received <- snap
	})()

	go n.Run(ctx)

	// Neither a foreign event type nor an unregistered room reaches handlers.
	foreign, err := pubsub.NewEvent("something_else", "audition", nil)
	require.NoError(t, err)
	feed.events <- foreign
	feed.events <- changeEvent(t, "no-such-room")

	_, err = svc.Join(ctx, domain.RoomTypeAudition, "user-a", "Alice")
	require.NoError(t, err)
	feed.events <- changeEvent(t, "audition")

	snap := waitSnapshot(t, received)
	require.Equal(t, "audition", snap.RoomID)
	require.Empty(t, received)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	n, _, _ := newTestNotifier(t)

	received := make(chan *domain.Snapshot, 4)
	unsubscribe := n.Subscribe(domain.RoomTypeAudition, func(snap *domain.Snapshot) {
		received <- snap
	})
	unsubscribe()

	n.dispatch(context.Background(), "audition")
	require.Empty(t, received)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	n, _, _ := newTestNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())

	go n.Run(ctx)
	cancel()

	select {
	case <-n.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("notifier did not stop after cancel")
	}
}
