package hub

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/chat-relay/backend/internal/model"
)

// recordedEvent is one fan-out call captured by the fake broadcaster.
type recordedEvent struct {
	Target  string // connection id, or "" for room-wide
	Room    string
	Exclude string
	Event   string
	Payload any
}

// fakeBroadcaster records every emit so tests can assert on audiences and
// payloads without a transport.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeBroadcaster) EmitTo(connID, event string, payload any) {
	f.record(recordedEvent{Target: connID, Event: event, Payload: payload})
}

func (f *fakeBroadcaster) EmitToRoomExcept(roomName, excluded, event string, payload any) {
	f.record(recordedEvent{Room: roomName, Exclude: excluded, Event: event, Payload: payload})
}

func (f *fakeBroadcaster) EmitToRoom(roomName, event string, payload any) {
	f.record(recordedEvent{Room: roomName, Event: event, Payload: payload})
}

func (f *fakeBroadcaster) record(ev recordedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeBroadcaster) all() []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeBroadcaster) named(event string) []recordedEvent {
	var out []recordedEvent
	for _, ev := range f.all() {
		if ev.Event == event {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeBroadcaster) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

func memberNames(payload any) map[string]bool {
	names := make(map[string]bool)
	if identities, ok := payload.([]model.Identity); ok {
		for _, ident := range identities {
			names[ident.Username] = true
		}
	}
	return names
}

func TestJoinEmitsThreeNotifications(t *testing.T) {
	b := &fakeBroadcaster{}
	h := New(b)

	if err := h.Join("conn-a", "Alice", "cat"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	events := b.all()
	if len(events) != 3 {
		t.Fatalf("expected 3 notifications, got %d: %+v", len(events), events)
	}

	// joined to others, excluding the new connection.
	if events[0].Event != EventJoined || events[0].Exclude != "conn-a" || events[0].Room != DefaultRoom {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	joined := events[0].Payload.(PresencePayload)
	if joined.User.Username != "Alice" || joined.Message != "Alice joined the chat" {
		t.Errorf("unexpected joined payload: %+v", joined)
	}

	// memberList to the new connection only, excluding self from the list.
	if events[1].Event != EventMemberList || events[1].Target != "conn-a" {
		t.Errorf("unexpected second event: %+v", events[1])
	}
	if names := memberNames(events[1].Payload); len(names) != 0 {
		t.Errorf("first joiner should see an empty member list, got %v", names)
	}

	// memberListUpdate to the whole room including the new member.
	if events[2].Event != EventMemberListUpdate || events[2].Room != DefaultRoom || events[2].Target != "" {
		t.Errorf("unexpected third event: %+v", events[2])
	}
	if names := memberNames(events[2].Payload); !names["Alice"] || len(names) != 1 {
		t.Errorf("unexpected member list: %v", names)
	}
}

func TestDuplicateConnectionRejected(t *testing.T) {
	b := &fakeBroadcaster{}
	h := New(b)

	if err := h.Join("conn-a", "Alice", "cat"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	b.reset()

	err := h.Join("conn-a", "Mallory", "dog")
	if !errors.Is(err, model.ErrDuplicateConnection) {
		t.Errorf("expected ErrDuplicateConnection, got %v", err)
	}
	if len(b.all()) != 0 {
		t.Error("rejected join must not broadcast anything")
	}
	if h.OnlineCount() != 1 {
		t.Errorf("expected 1 online, got %d", h.OnlineCount())
	}
}

// The full two-client walkthrough: Alice joins, Bob joins, Alice sends a
// message, Bob disconnects.
func TestTwoClientScenario(t *testing.T) {
	b := &fakeBroadcaster{}
	h := New(b)

	if err := h.Join("conn-a", "Alice", "cat"); err != nil {
		t.Fatalf("alice join failed: %v", err)
	}
	b.reset()

	if err := h.Join("conn-b", "Bob", "dog"); err != nil {
		t.Fatalf("bob join failed: %v", err)
	}

	events := b.all()
	if len(events) != 3 {
		t.Fatalf("expected 3 notifications on bob's join, got %d", len(events))
	}
	joined := events[0].Payload.(PresencePayload)
	if events[0].Event != EventJoined || joined.User.Username != "Bob" {
		t.Errorf("alice should be told Bob joined, got %+v", events[0])
	}
	if names := memberNames(events[1].Payload); !names["Alice"] || len(names) != 1 {
		t.Errorf("bob's memberList should contain only Alice, got %v", names)
	}
	if names := memberNames(events[2].Payload); !names["Alice"] || !names["Bob"] || len(names) != 2 {
		t.Errorf("room update should list Alice and Bob, got %v", names)
	}

	b.reset()
	msg, err := h.Send("conn-a", "", "hi")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if msg.Author.Username != "Alice" || msg.Content != "hi" || msg.Room != DefaultRoom {
		t.Errorf("unexpected message: %+v", msg)
	}
	received := b.named(EventMessageReceived)
	if len(received) != 1 || received[0].Room != DefaultRoom || received[0].Exclude != "" {
		t.Errorf("message should go to the whole room, sender included: %+v", received)
	}

	b.reset()
	h.Disconnect("conn-b")

	left := b.named(EventLeft)
	if len(left) != 1 {
		t.Fatalf("expected one left event, got %d", len(left))
	}
	leftPayload := left[0].Payload.(PresencePayload)
	if leftPayload.User.Username != "Bob" || leftPayload.Message != "Bob left the chat" {
		t.Errorf("unexpected left payload: %+v", leftPayload)
	}
	updates := b.named(EventMemberListUpdate)
	if len(updates) != 1 {
		t.Fatalf("expected one member list update, got %d", len(updates))
	}
	if names := memberNames(updates[0].Payload); !names["Alice"] || names["Bob"] || len(names) != 1 {
		t.Errorf("bob must not appear after disconnect, got %v", names)
	}
}

func TestSendFromUnknownSenderIsDropped(t *testing.T) {
	b := &fakeBroadcaster{}
	h := New(b)
	h.Join("conn-a", "Alice", "cat")
	b.reset()

	_, err := h.Send("conn-ghost", "", "boo")
	if !errors.Is(err, model.ErrUnknownSender) {
		t.Errorf("expected ErrUnknownSender, got %v", err)
	}
	if len(b.named(EventMessageReceived)) != 0 {
		t.Error("message from unknown sender must not be broadcast to anyone")
	}
}

// Delivery requires prior room membership. This is a deliberate deviation:
// a permissive relay would broadcast to any named room, letting a sender
// reach rooms it never joined.
func TestSendRequiresRoomMembership(t *testing.T) {
	b := &fakeBroadcaster{}
	h := New(b)
	h.Join("conn-a", "Alice", "cat")
	b.reset()

	_, err := h.Send("conn-a", "private", "hi")
	if !errors.Is(err, model.ErrNotAMember) {
		t.Errorf("expected ErrNotAMember, got %v", err)
	}
	if len(b.all()) != 0 {
		t.Error("rejected send must not broadcast anything")
	}
}

func TestAuthorSnapshotSurvivesDisconnect(t *testing.T) {
	b := &fakeBroadcaster{}
	h := New(b)
	h.Join("conn-a", "Alice", "cat")

	msg, err := h.Send("conn-a", "", "parting words")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	h.Disconnect("conn-a")

	if msg.Author.Username != "Alice" || msg.Author.Avatar != "cat" || msg.Author.ID != "conn-a" {
		t.Errorf("author snapshot corrupted after disconnect: %+v", msg.Author)
	}
}

func TestTypingLifecycle(t *testing.T) {
	b := &fakeBroadcaster{}
	h := New(b)
	h.Join("conn-a", "Alice", "cat")
	h.Join("conn-b", "Bob", "dog")
	b.reset()

	if err := h.SetTyping("conn-a", "", true); err != nil {
		t.Fatalf("typing start failed: %v", err)
	}
	updates := b.named(EventTypingUpdate)
	if len(updates) != 1 || updates[0].Exclude != "conn-a" {
		t.Fatalf("typing update should go to others only: %+v", updates)
	}
	payload := updates[0].Payload.(TypingPayload)
	if payload.Username != "Alice" || !payload.IsTyping {
		t.Errorf("unexpected typing payload: %+v", payload)
	}

	// Redundant start is swallowed.
	b.reset()
	if err := h.SetTyping("conn-a", "", true); err != nil {
		t.Fatalf("redundant typing start failed: %v", err)
	}
	if len(b.named(EventTypingUpdate)) != 0 {
		t.Error("redundant typing start must not re-broadcast")
	}

	if got := h.TypingSummary(DefaultRoom); got != "Alice is typing" {
		t.Errorf("unexpected summary: %q", got)
	}

	b.reset()
	if err := h.SetTyping("conn-a", "", false); err != nil {
		t.Fatalf("typing stop failed: %v", err)
	}
	if got := h.TypingSummary(DefaultRoom); got != "" {
		t.Errorf("expected empty summary after stop, got %q", got)
	}
}

func TestDisconnectClearsTypingFlag(t *testing.T) {
	b := &fakeBroadcaster{}
	h := New(b)
	h.Join("conn-a", "Alice", "cat")
	h.Join("conn-b", "Bob", "dog")

	h.SetTyping("conn-b", "", true)
	b.reset()

	h.Disconnect("conn-b")

	if got := h.TypingSummary(DefaultRoom); got != "" {
		t.Errorf("typing flag survived disconnect: %q", got)
	}
	updates := b.named(EventTypingUpdate)
	if len(updates) != 1 {
		t.Fatalf("expected a final typing update, got %d", len(updates))
	}
	payload := updates[0].Payload.(TypingPayload)
	if payload.Username != "Bob" || payload.IsTyping {
		t.Errorf("unexpected final typing payload: %+v", payload)
	}
}

func TestDisconnectAnonymousConnectionIsSilent(t *testing.T) {
	b := &fakeBroadcaster{}
	h := New(b)
	h.Join("conn-a", "Alice", "cat")
	b.reset()

	// conn-x connected at the transport but never joined.
	h.Disconnect("conn-x")

	if len(b.all()) != 0 {
		t.Error("anonymous disconnect must not broadcast anything")
	}
	if h.OnlineCount() != 1 {
		t.Errorf("expected 1 online, got %d", h.OnlineCount())
	}
}

func TestConcurrentJoinSendDisconnect(t *testing.T) {
	b := &fakeBroadcaster{}
	h := New(b)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", i)
			if err := h.Join(connID, fmt.Sprintf("user-%d", i), "av"); err != nil {
				t.Errorf("join failed: %v", err)
				return
			}
			h.SetTyping(connID, "", true)
			if _, err := h.Send(connID, "", "hello"); err != nil {
				t.Errorf("send failed: %v", err)
			}
			if i%2 == 0 {
				h.Disconnect(connID)
			}
		}(i)
	}
	wg.Wait()

	// Registry and room membership must agree after the dust settles.
	members := h.Members(DefaultRoom)
	if len(members) != n/2 {
		t.Errorf("expected %d members, got %d", n/2, len(members))
	}
	if h.OnlineCount() != n/2 {
		t.Errorf("expected %d online, got %d", n/2, h.OnlineCount())
	}
	for _, ident := range members {
		if ident.Username == "" {
			t.Errorf("room member without registry identity: %+v", ident)
		}
	}

	// No disconnected user may still be flagged typing.
	for _, name := range h.Typists(DefaultRoom) {
		found := false
		for _, ident := range members {
			if ident.Username == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("stale typing flag for %s", name)
		}
	}
}
