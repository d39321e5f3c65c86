package model

import "time"

// Identity represents the display attributes bound to a live connection.
// It exists only while the connection is live and is owned by the registry;
// callers always receive it by value, so a held Identity is a snapshot.
type Identity struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Author is the point-in-time snapshot of a message sender embedded in a
// Message. It is decoupled from the registry entry, so it remains valid
// after the author disconnects.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// AuthorSnapshot captures the sender attributes of an Identity.
func (i Identity) AuthorSnapshot() Author {
	return Author{
		ID:       i.ID,
		Username: i.Username,
		Avatar:   i.Avatar,
	}
}

// Message is a chat message stamped by the message pipeline. Messages are
// never mutated after creation and exist only transiently for delivery.
type Message struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Room      string    `json:"room"`
}
