package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Envelope is the wire format in both directions: a named event with a
// JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// encodeEvent marshals a payload into a single envelope frame.
func encodeEvent(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// MemberLister resolves a room name to the connection ids to fan out to.
type MemberLister interface {
	Members(roomName string) []string
	MembersExcept(roomName, excluded string) []string
}

// RoomBroadcaster implements the hub's Broadcaster contract over live
// clients. Each event is encoded once and pushed onto per-client buffered
// queues; delivery is best-effort with no buffering or retry beyond the
// queue itself.
type RoomBroadcaster struct {
	mu      sync.RWMutex
	clients map[string]*Client
	members MemberLister
}

// NewRoomBroadcaster creates a broadcaster with no clients.
func NewRoomBroadcaster() *RoomBroadcaster {
	return &RoomBroadcaster{
		clients: make(map[string]*Client),
	}
}

// SetMembers wires the membership view used to resolve room fan-out sets.
func (b *RoomBroadcaster) SetMembers(members MemberLister) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members = members
}

// Add registers a client under its connection id.
func (b *RoomBroadcaster) Add(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client.ConnID()] = client
}

// Remove unregisters and closes the client for a connection id.
func (b *RoomBroadcaster) Remove(connID string) {
	b.mu.Lock()
	client, ok := b.clients[connID]
	delete(b.clients, connID)
	b.mu.Unlock()

	if ok {
		client.Close()
	}
}

// ClientCount returns the number of registered clients.
func (b *RoomBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// EmitTo delivers an event to a single connection. An unknown target
// silently drops its copy.
func (b *RoomBroadcaster) EmitTo(connID, event string, payload any) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event, err)
		return
	}

	b.mu.RLock()
	client := b.clients[connID]
	b.mu.RUnlock()

	if client != nil {
		client.Send(frame)
	}
}

// EmitToRoom delivers an event to every member of a room.
func (b *RoomBroadcaster) EmitToRoom(roomName, event string, payload any) {
	b.emit(roomName, "", event, payload)
}

// EmitToRoomExcept delivers an event to every member of a room except one.
func (b *RoomBroadcaster) EmitToRoomExcept(roomName, excluded, event string, payload any) {
	b.emit(roomName, excluded, event, payload)
}

func (b *RoomBroadcaster) emit(roomName, excluded, event string, payload any) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event, err)
		return
	}

	b.mu.RLock()
	members := b.members
	b.mu.RUnlock()
	if members == nil {
		return
	}

	var connIDs []string
	if excluded == "" {
		connIDs = members.Members(roomName)
	} else {
		connIDs = members.MembersExcept(roomName, excluded)
	}

	for _, connID := range connIDs {
		b.mu.RLock()
		client := b.clients[connID]
		b.mu.RUnlock()
		if client != nil {
			client.Send(frame)
		}
	}
}

// Close closes every registered client connection.
func (b *RoomBroadcaster) Close() {
	b.mu.Lock()
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	b.clients = make(map[string]*Client)
	b.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
