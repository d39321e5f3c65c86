// Package typing tracks which users are currently flagged as typing per room.
package typing

import (
	"fmt"
	"sync"
)

// Tracker holds the per-room set of usernames currently typing. The state is
// derived and ephemeral: it is mutated by typing start/stop events and
// cleared for a user on disconnect. Typists are kept in the order they
// started typing.
type Tracker struct {
	mu    sync.RWMutex
	rooms map[string][]string
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		rooms: make(map[string][]string),
	}
}

// Set flags or unflags a username as typing in a room. It is idempotent and
// reports whether the state actually changed, so callers can avoid
// re-broadcasting redundant updates.
func (t *Tracker) Set(roomName, username string, isTyping bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	typists := t.rooms[roomName]
	idx := indexOf(typists, username)

	if isTyping {
		if idx >= 0 {
			return false
		}
		t.rooms[roomName] = append(typists, username)
		return true
	}

	if idx < 0 {
		return false
	}
	t.rooms[roomName] = append(typists[:idx], typists[idx+1:]...)
	return true
}

// ClearUser removes a username from a room's typing set, reporting whether
// the user had been typing. Called on disconnect so no stale indicator
// survives the user.
func (t *Tracker) ClearUser(roomName, username string) bool {
	return t.Set(roomName, username, false)
}

// Typists returns a snapshot of the usernames typing in a room, in the
// order they started.
func (t *Tracker) Typists(roomName string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	typists := t.rooms[roomName]
	out := make([]string, len(typists))
	copy(out, typists)
	return out
}

// Describe produces the human-readable typing summary for a room. The
// tiering is a contract: empty for nobody, "<name> is typing" for one,
// "<a> and <b> are typing" for exactly two, and "<n> people are typing"
// from three upward.
func (t *Tracker) Describe(roomName string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	typists := t.rooms[roomName]
	switch len(typists) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s is typing", typists[0])
	case 2:
		return fmt.Sprintf("%s and %s are typing", typists[0], typists[1])
	default:
		return fmt.Sprintf("%d people are typing", len(typists))
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
