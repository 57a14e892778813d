package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEntryConflict is returned when a join would give a user a second
	// active entry in the same room.
	ErrEntryConflict = errors.New("user already holds an active queue entry in this room")

	// ErrEntryNotFound is returned when no entry exists for the user in the room.
	ErrEntryNotFound = errors.New("queue entry not found")

	// ErrStoreUnavailable wraps connectivity failures of the queue store.
	// Callers may retry with backoff.
	ErrStoreUnavailable = errors.New("queue store unavailable")

	// ErrUnknownRoom is returned for a room type outside the registry.
	ErrUnknownRoom = errors.New("unknown room")
)

// StateConflictError reports a transition whose precondition did not hold:
// the entry exists but is not in any of the expected source statuses.
// Advisory, not fatal: callers should re-read current state and retry or abandon.
type StateConflictError struct {
	UserID   string
	RoomID   string
	Expected []Status
	Actual   Status
	Reason   string
}

func (e *StateConflictError) Error() string {
	expected := make([]string, len(e.Expected))
	for i, s := range e.Expected {
		expected[i] = string(s)
	}
	msg := fmt.Sprintf("state conflict for user %s in room %s: expected status %s, actual %s",
		e.UserID, e.RoomID, strings.Join(expected, "|"), e.Actual)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// IsStateConflict reports whether err is a StateConflictError.
func IsStateConflict(err error) bool {
	var sc *StateConflictError
	return errors.As(err, &sc)
}
