package model

import "errors"

var (
	// ErrDuplicateConnection is returned when a connection id is registered twice.
	// The transport assigns unique ids, so this is a defensive check only.
	ErrDuplicateConnection = errors.New("connection already registered")

	// ErrUnknownSender is returned when an event arrives from a connection
	// with no registered identity. The event is dropped, not broadcast.
	ErrUnknownSender = errors.New("unknown sender")

	// ErrNotAMember is returned when a sender targets a room it never joined.
	ErrNotAMember = errors.New("not a member of room")
)
