package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoomType(t *testing.T) {
	for _, valid := range []string{"audition", "main_show"} {
		rt, err := ParseRoomType(valid)
		require.NoError(t, err)
		require.Equal(t, RoomType(valid), rt)
	}

	_, err := ParseRoomType("green_room")
	require.Error(t, err)
}

func TestRegistryLookups(t *testing.T) {
	r := NewRegistry([]Room{
		{ID: "audition", Type: RoomTypeAudition, Name: "Audition Room"},
		{ID: "main-show", Type: RoomTypeMainShow, Name: "Main Show"},
	})

	room, ok := r.Get(RoomTypeMainShow)
	require.True(t, ok)
	require.Equal(t, "main-show", room.ID)

	room, ok = r.GetByID("audition")
	require.True(t, ok)
	require.Equal(t, RoomTypeAudition, room.Type)

	_, ok = r.GetByID("no-such-room")
	require.False(t, ok)
	require.Len(t, r.Rooms(), 2)
}

func TestStateConflictError(t *testing.T) {
	err := &StateConflictError{
		UserID:   "user-a",
		RoomID:   "audition",
		Expected: []Status{StatusLive, StatusReady},
		Actual:   StatusQueued,
	}
	require.Equal(t,
		"state conflict for user user-a in room audition: expected status live|ready, actual queued",
		err.Error())

	err.Reason = "live slot already occupied"
	require.Contains(t, err.Error(), "(live slot already occupied)")

	require.True(t, IsStateConflict(err))
	require.False(t, IsStateConflict(errors.New("other")))
	require.False(t, IsStateConflict(nil))
}
