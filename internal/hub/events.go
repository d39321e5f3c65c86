package hub

import "github.com/chat-relay/backend/internal/model"

// Outbound event names. These, together with the payload shapes below, are
// the compatibility surface consumed by clients.
const (
	// EventJoined goes to the other room members when a connection joins.
	EventJoined = "joined"

	// EventMemberList goes to a new joiner and lists the other members.
	EventMemberList = "memberList"

	// EventMemberListUpdate goes to the whole room with the full member
	// list whenever membership changes.
	EventMemberListUpdate = "memberListUpdate"

	// EventMessageReceived carries a chat message to the whole room,
	// sender included.
	EventMessageReceived = "messageReceived"

	// EventLeft goes to the remaining members when a connection disconnects.
	EventLeft = "left"

	// EventTypingUpdate goes to the other room members on typing start/stop.
	EventTypingUpdate = "typingUpdate"
)

// PresencePayload is the body of joined and left events.
type PresencePayload struct {
	User    model.Identity `json:"user"`
	Message string         `json:"message"`
}

// TypingPayload is the body of typingUpdate events.
type TypingPayload struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}
