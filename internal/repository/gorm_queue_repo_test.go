package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stagelive/queue-service/internal/domain"
)

const testRoomID = "audition"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.QueueEntryModel{}))

	// One connection so every test statement sees the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return db
}

func newTestRepo(t *testing.T) *GormQueueRepository {
	t.Helper()
	return NewGormQueueRepository(newTestDB(t))
}

func join(t *testing.T, repo *GormQueueRepository, userID, stageName string) *domain.QueueEntry {
	t.Helper()
	entry := &domain.QueueEntry{
		RoomID:    testRoomID,
		RoomType:  domain.RoomTypeAudition,
		UserID:    userID,
		StageName: stageName,
	}
	require.NoError(t, repo.Insert(context.Background(), entry))
	return entry
}

func TestInsertAssignsIdentityAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := join(t, repo, "user-a", "Alice")
	b := join(t, repo, "user-b", "Bob")

	require.NotEmpty(t, a.ID)
	require.Equal(t, domain.StatusQueued, a.Status)
	require.False(t, a.JoinedAt.IsZero())

	active, err := repo.ListActive(ctx, testRoomID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, a.UserID, active[0].UserID)
	require.Equal(t, b.UserID, active[1].UserID)
}

func TestInsertRejectsSecondActiveEntry(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	join(t, repo, "user-a", "Alice")

	dup := &domain.QueueEntry{
		RoomID:    testRoomID,
		RoomType:  domain.RoomTypeAudition,
		UserID:    "user-a",
		StageName: "Alice",
	}
	require.ErrorIs(t, repo.Insert(ctx, dup), domain.ErrEntryConflict)

	// Removed entries release their active key, so any number of them can
	// coexist and the user can rejoin each time.
	require.NoError(t, repo.UpdateStatus(ctx, testRoomID, "user-a",
		[]domain.Status{domain.StatusQueued}, domain.StatusRemoved))
	require.NoError(t, repo.Insert(ctx, dup))
	require.NoError(t, repo.UpdateStatus(ctx, testRoomID, "user-a",
		[]domain.Status{domain.StatusQueued}, domain.StatusRemoved))
	require.NoError(t, repo.Insert(ctx, dup))
}

// The one-active-entry invariant must hold even for a writer that raced past
// any application-level check, so the unique index itself has to reject the
// second row.
func TestActiveKeyIndexRejectsRacingJoin(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormQueueRepository(db)

	join(t, repo, "user-a", "Alice")

	key := domain.ActiveEntryKey(testRoomID, "user-a")
	racer := &domain.QueueEntryModel{
		ID:        "racer-row",
		RoomID:    testRoomID,
		RoomType:  string(domain.RoomTypeAudition),
		UserID:    "user-a",
		StageName: "Alice",
		Status:    string(domain.StatusQueued),
		ActiveKey: &key,
	}
	err := db.Create(racer).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestUpdateStatusIsConditional(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	join(t, repo, "user-a", "Alice")

	err := repo.UpdateStatus(ctx, testRoomID, "user-a",
		[]domain.Status{domain.StatusQueued}, domain.StatusCalledUp)
	require.NoError(t, err)

	entry, err := repo.GetActive(ctx, testRoomID, "user-a")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCalledUp, entry.Status)
	require.NotNil(t, entry.CalledAt)

	// The source status no longer matches, so the same transition updates
	// zero rows.
	err = repo.UpdateStatus(ctx, testRoomID, "user-a",
		[]domain.Status{domain.StatusQueued}, domain.StatusCalledUp)
	require.ErrorIs(t, err, domain.ErrEntryNotFound)

	err = repo.UpdateStatus(ctx, testRoomID, "nobody",
		[]domain.Status{domain.StatusQueued}, domain.StatusRemoved)
	require.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func advanceToReady(t *testing.T, repo *GormQueueRepository, userID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.UpdateStatus(ctx, testRoomID, userID,
		[]domain.Status{domain.StatusQueued}, domain.StatusCalledUp))
	require.NoError(t, repo.UpdateStatus(ctx, testRoomID, userID,
		[]domain.Status{domain.StatusCalledUp}, domain.StatusReady))
}

func TestSetLiveEnforcesSingleSlot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	join(t, repo, "user-a", "Alice")
	join(t, repo, "user-b", "Bob")
	advanceToReady(t, repo, "user-a")
	advanceToReady(t, repo, "user-b")

	entry, err := repo.SetLive(ctx, testRoomID, "user-a")
	require.NoError(t, err)
	require.Equal(t, domain.StatusLive, entry.Status)
	require.NotNil(t, entry.LiveAt)

	// Slot occupied: the claim on the unique live slot is rejected.
	_, err = repo.SetLive(ctx, testRoomID, "user-b")
	require.ErrorIs(t, err, domain.ErrEntryNotFound)

	live, err := repo.GetLive(ctx, testRoomID)
	require.NoError(t, err)
	require.Equal(t, "user-a", live.UserID)

	// Once released, the next ready entry can take the slot.
	require.NoError(t, repo.UpdateStatus(ctx, testRoomID, "user-a",
		[]domain.Status{domain.StatusLive}, domain.StatusRemoved))
	_, err = repo.SetLive(ctx, testRoomID, "user-b")
	require.NoError(t, err)
}

// Simulates the write-skew racer: an UPDATE whose status predicate passed
// but whose view of the room predates the winner's commit. The unique index
// on live_room_id must stop it regardless of what the statement read.
func TestLiveSlotIndexRejectsRacingClaim(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormQueueRepository(db)
	ctx := context.Background()

	join(t, repo, "user-a", "Alice")
	join(t, repo, "user-b", "Bob")
	advanceToReady(t, repo, "user-a")
	advanceToReady(t, repo, "user-b")

	_, err := repo.SetLive(ctx, testRoomID, "user-a")
	require.NoError(t, err)

	// No guard at all beyond the status match: the claim still fails at
	// the index.
	err = db.Model(&domain.QueueEntryModel{}).
		Where("room_id = ? AND user_id = ? AND status = ?",
			testRoomID, "user-b", string(domain.StatusReady)).
		Updates(map[string]interface{}{
			"status":       string(domain.StatusLive),
			"live_room_id": testRoomID,
		}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	live, err := repo.GetLive(ctx, testRoomID)
	require.NoError(t, err)
	require.Equal(t, "user-a", live.UserID)
}

func TestSetLiveRequiresReady(t *testing.T) {
	repo := newTestRepo(t)

	join(t, repo, "user-a", "Alice")

	_, err := repo.SetLive(context.Background(), testRoomID, "user-a")
	require.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestSetLiveConcurrentCallersOneWinner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	join(t, repo, "user-a", "Alice")
	join(t, repo, "user-b", "Bob")
	advanceToReady(t, repo, "user-a")
	advanceToReady(t, repo, "user-b")

	results := make([]error, 2)
	var g errgroup.Group
	for i, user := range []string{"user-a", "user-b"} {
		i, user := i, user
		g.Go(func() error {
			_, results[i] = repo.SetLive(ctx, testRoomID, user)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var wins, losses int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, domain.ErrEntryNotFound)
			losses++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, losses)

	live, err := repo.GetLive(ctx, testRoomID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusLive, live.Status)
}

func TestTimestampsSurviveToHistory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	join(t, repo, "user-a", "Alice")
	advanceToReady(t, repo, "user-a")

	entry, err := repo.SetLive(ctx, testRoomID, "user-a")
	require.NoError(t, err)
	calledAt := entry.CalledAt
	liveAt := entry.LiveAt
	require.NotNil(t, calledAt)
	require.NotNil(t, liveAt)

	require.NoError(t, repo.UpdateStatus(ctx, testRoomID, "user-a",
		[]domain.Status{domain.StatusLive, domain.StatusReady}, domain.StatusRemoved))

	history, err := repo.ListHistory(ctx, testRoomID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, domain.StatusRemoved, history[0].Status)
	require.Equal(t, calledAt.Unix(), history[0].CalledAt.Unix())
	require.Equal(t, liveAt.Unix(), history[0].LiveAt.Unix())

	// History entries are invisible to active reads.
	active, err := repo.ListActive(ctx, testRoomID)
	require.NoError(t, err)
	require.Empty(t, active)
	_, err = repo.GetActive(ctx, testRoomID, "user-a")
	require.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestRoomsAreIndependent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	join(t, repo, "user-a", "Alice")

	other := &domain.QueueEntry{
		RoomID:    "main-show",
		RoomType:  domain.RoomTypeMainShow,
		UserID:    "user-a",
		StageName: "Alice",
	}
	// Same user may wait in a different room.
	require.NoError(t, repo.Insert(ctx, other))

	active, err := repo.ListActive(ctx, "main-show")
	require.NoError(t, err)
	require.Len(t, active, 1)

	active, err = repo.ListActive(ctx, testRoomID)
	require.NoError(t, err)
	require.Len(t, active, 1)
}
