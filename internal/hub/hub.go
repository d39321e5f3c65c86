// Package hub implements the presence and broadcast core of the chat relay.
package hub

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chat-relay/backend/internal/model"
	"github.com/chat-relay/backend/internal/registry"
	"github.com/chat-relay/backend/internal/room"
	"github.com/chat-relay/backend/internal/typing"
)

// DefaultRoom is the room every identified connection joins.
const DefaultRoom = "general"

// Broadcaster is the transport-facing fan-out contract. Implementations
// deliver best-effort: a disconnected or stalled target silently drops its
// copy, and one slow recipient must never block delivery to the others.
type Broadcaster interface {
	EmitTo(connID, event string, payload any)
	EmitToRoomExcept(roomName, excluded, event string, payload any)
	EmitToRoom(roomName, event string, payload any)
}

// Hub tracks connected identities, groups them into rooms, and fans chat
// messages and typing events out to room members. A single mutex serializes
// join/disconnect/send/typing handling, so a disconnecting connection is
// either fully visible to a concurrent broadcast or fully absent, never
// half-removed. Handler bodies are in-memory operations followed by a
// non-blocking fan-out, so nothing holds the lock against external I/O.
type Hub struct {
	mu          sync.Mutex
	registry    *registry.Registry
	rooms       *room.Store
	typing      *typing.Tracker
	broadcaster Broadcaster
	defaultRoom string
}

// Option configures a Hub.
type Option func(*Hub)

// WithDefaultRoom overrides the room new connections join.
func WithDefaultRoom(name string) Option {
	return func(h *Hub) {
		if name != "" {
			h.defaultRoom = name
		}
	}
}

// New creates a Hub that fans events out through the given broadcaster.
func New(b Broadcaster, opts ...Option) *Hub {
	h := &Hub{
		registry:    registry.New(),
		rooms:       room.NewStore(),
		typing:      typing.NewTracker(),
		broadcaster: b,
		defaultRoom: DefaultRoom,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Rooms exposes the membership store so the transport's broadcaster can
// resolve room fan-out sets.
func (h *Hub) Rooms() *room.Store {
	return h.rooms
}

// DefaultRoomName returns the room new connections join.
func (h *Hub) DefaultRoomName() string {
	return h.defaultRoom
}

// Join registers an identity for a connection, places it in the default
// room, and notifies the room: a joined event to the others, the list of
// existing members to the new connection, and the full updated member list
// to everyone.
func (h *Hub) Join(connID, username, avatar string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ident, err := h.registry.Register(connID, username, avatar)
	if err != nil {
		return fmt.Errorf("failed to register connection %s: %w", connID, err)
	}
	h.rooms.Join(h.defaultRoom, connID)

	h.broadcaster.EmitToRoomExcept(h.defaultRoom, connID, EventJoined, PresencePayload{
		User:    ident,
		Message: fmt.Sprintf("%s joined the chat", ident.Username),
	})
	h.broadcaster.EmitTo(connID, EventMemberList, h.memberIdentitiesExceptLocked(h.defaultRoom, connID))
	h.broadcaster.EmitToRoom(h.defaultRoom, EventMemberListUpdate, h.memberIdentitiesLocked(h.defaultRoom))

	log.Printf("Connection %s identified as %q. Online: %d", connID, ident.Username, h.registry.Count())
	return nil
}

// Disconnect tears down all state for a connection. Anonymous connections
// (never joined) have no state and produce no notifications. For identified
// connections the identity, room memberships, and typing flags are removed,
// then the rooms are told about the departure.
func (h *Hub) Disconnect(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ident, ok := h.registry.Remove(connID)
	if !ok {
		return
	}

	affected := h.rooms.LeaveAll(connID)
	for _, roomName := range affected {
		if h.typing.ClearUser(roomName, ident.Username) {
			h.broadcaster.EmitToRoom(roomName, EventTypingUpdate, TypingPayload{
				Username: ident.Username,
				IsTyping: false,
			})
		}
		h.broadcaster.EmitToRoomExcept(roomName, connID, EventLeft, PresencePayload{
			User:    ident,
			Message: fmt.Sprintf("%s left the chat", ident.Username),
		})
		h.broadcaster.EmitToRoom(roomName, EventMemberListUpdate, h.memberIdentitiesLocked(roomName))
	}

	log.Printf("Connection %s (%q) disconnected. Online: %d", connID, ident.Username, h.registry.Count())
}

// Send validates and stamps an outgoing chat message, then delivers it to
// every member of the room, sender included — the sender's own copy is its
// delivery confirmation, there is no separate echo path. The content passes
// through unmodified; sanitization for presentation belongs to the
// rendering layer.
func (h *Hub) Send(connID, roomName, content string) (model.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ident, ok := h.registry.Lookup(connID)
	if !ok {
		return model.Message{}, model.ErrUnknownSender
	}
	if roomName == "" {
		roomName = h.defaultRoom
	}
	if !h.rooms.Contains(roomName, connID) {
		return model.Message{}, model.ErrNotAMember
	}

	now := time.Now()
	msg := model.Message{
		ID:        newMessageID(now),
		Author:    ident.AuthorSnapshot(),
		Content:   content,
		Timestamp: now,
		Room:      roomName,
	}

	h.broadcaster.EmitToRoom(roomName, EventMessageReceived, msg)
	return msg, nil
}

// SetTyping flags or clears the sender's typing indicator in a room and
// notifies the other members. Redundant updates (typing start while already
// flagged, stop while not) are swallowed.
func (h *Hub) SetTyping(connID, roomName string, isTyping bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ident, ok := h.registry.Lookup(connID)
	if !ok {
		return model.ErrUnknownSender
	}
	if roomName == "" {
		roomName = h.defaultRoom
	}
	if !h.rooms.Contains(roomName, connID) {
		return model.ErrNotAMember
	}

	if !h.typing.Set(roomName, ident.Username, isTyping) {
		return nil
	}

	h.broadcaster.EmitToRoomExcept(roomName, connID, EventTypingUpdate, TypingPayload{
		Username: ident.Username,
		IsTyping: isTyping,
	})
	return nil
}

// Members returns the identities of a room's current members.
func (h *Hub) Members(roomName string) []model.Identity {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.memberIdentitiesLocked(roomName)
}

// TypingSummary returns the human-readable typing description for a room.
func (h *Hub) TypingSummary(roomName string) string {
	return h.typing.Describe(roomName)
}

// Typists returns the usernames currently typing in a room.
func (h *Hub) Typists(roomName string) []string {
	return h.typing.Typists(roomName)
}

// OnlineCount returns the number of identified connections.
func (h *Hub) OnlineCount() int {
	return h.registry.Count()
}

func (h *Hub) memberIdentitiesLocked(roomName string) []model.Identity {
	return h.memberIdentitiesExceptLocked(roomName, "")
}

// memberIdentitiesExceptLocked resolves a room's member set to identities.
// Callers hold h.mu, so the registry and room views cannot disagree.
func (h *Hub) memberIdentitiesExceptLocked(roomName, excluded string) []model.Identity {
	connIDs := h.rooms.MembersExcept(roomName, excluded)
	identities := make([]model.Identity, 0, len(connIDs))
	for _, connID := range connIDs {
		if ident, ok := h.registry.Lookup(connID); ok {
			identities = append(identities, ident)
		}
	}
	return identities
}

// newMessageID builds a time-based id with a random tiebreaker. Ids are
// unique within the process; strict ordering across processes is not
// required.
func newMessageID(ts time.Time) string {
	return fmt.Sprintf("%d-%s", ts.UnixMilli(), uuid.NewString()[:8])
}
