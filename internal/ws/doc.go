// Package ws provides the WebSocket transport for the chat relay.
//
// The package implements:
//   - Client: one live connection with a buffered, non-blocking send queue
//   - RoomBroadcaster: the hub.Broadcaster contract over live clients
//   - Handler: connection upgrade, read/write pumps, and inbound event dispatch
//
// The transport assigns each connection an opaque id at upgrade time and
// funnels its inbound events (join, message, typingStart, typingStop) into
// the hub. A connection that closes or errors is unregistered from the
// broadcaster before the hub is told about the disconnect, so departure
// broadcasts only reach the remaining peers.
package ws
