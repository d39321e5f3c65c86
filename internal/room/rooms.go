// Package room groups connections into named broadcast rooms.
package room

import "sync"

// Store maps room names to member sets. Rooms are created lazily on first
// join and are never destroyed; at this scale only the default room exists,
// so empty rooms are not garbage-collected.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		rooms: make(map[string]map[string]struct{}),
	}
}

// Join adds a connection to a room, creating the room if absent.
// Joining twice has no additional effect.
func (s *Store) Join(roomName, connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[roomName]
	if !ok {
		members = make(map[string]struct{})
		s.rooms[roomName] = members
	}
	members[connID] = struct{}{}
}

// Leave removes a connection from a room. No-op if the room or membership
// does not exist.
func (s *Store) Leave(roomName, connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if members, ok := s.rooms[roomName]; ok {
		delete(members, connID)
	}
}

// LeaveAll removes a connection from every room and returns the names of
// the rooms it was a member of. Used on disconnect cleanup.
func (s *Store) LeaveAll(connID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected []string
	for name, members := range s.rooms {
		if _, ok := members[connID]; ok {
			delete(members, connID)
			affected = append(affected, name)
		}
	}
	return affected
}

// Contains reports whether a connection is a member of a room.
func (s *Store) Contains(roomName, connID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members, ok := s.rooms[roomName]
	if !ok {
		return false
	}
	_, member := members[connID]
	return member
}

// Members returns a snapshot of all connection ids in a room.
func (s *Store) Members(roomName string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.rooms[roomName]
	out := make([]string, 0, len(members))
	for connID := range members {
		out = append(out, connID)
	}
	return out
}

// MembersExcept returns all connection ids in a room except the excluded one.
func (s *Store) MembersExcept(roomName, excluded string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.rooms[roomName]
	out := make([]string, 0, len(members))
	for connID := range members {
		if connID != excluded {
			out = append(out, connID)
		}
	}
	return out
}
