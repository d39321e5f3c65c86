package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client represents one live WebSocket connection.
type Client struct {
	conn   *websocket.Conn
	connID string
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

// NewClient wraps a connection with a buffered send queue.
func NewClient(conn *websocket.Conn, connID string) *Client {
	return &Client{
		conn:   conn,
		connID: connID,
		send:   make(chan []byte, 256),
	}
}

// Send queues a frame for delivery. It never blocks: if the buffer is full
// the client is closed and the frame dropped, so one stalled consumer cannot
// hold up fan-out to the rest of a room.
func (c *Client) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.closeLocked()
	}
}

// Close closes the client's send queue.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ConnID returns the opaque connection id assigned at upgrade time.
func (c *Client) ConnID() string {
	return c.connID
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the send queue for the write pump.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}
