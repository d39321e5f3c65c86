package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chat-relay/backend/internal/hub"
	"github.com/chat-relay/backend/internal/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

// Inbound event names (client -> hub).
const (
	EventInJoin        = "join"
	EventInMessage     = "message"
	EventInTypingStart = "typingStart"
	EventInTypingStop  = "typingStop"
)

// JoinPayload is the body of a join event.
type JoinPayload struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// MessagePayload is the body of a message event.
type MessagePayload struct {
	Content string `json:"content"`
	Room    string `json:"room"`
}

// TypingPayload is the body of typingStart and typingStop events.
type TypingPayload struct {
	Room string `json:"room"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// Handler upgrades HTTP connections to WebSocket and pumps their events
// through the hub.
type Handler struct {
	hub         *hub.Hub
	broadcaster *RoomBroadcaster
}

// NewHandler creates a WebSocket handler bound to a hub and its broadcaster.
func NewHandler(h *hub.Hub, broadcaster *RoomBroadcaster) *Handler {
	return &Handler{
		hub:         h,
		broadcaster: broadcaster,
	}
}

// HandleConnection upgrades the request, assigns the connection an opaque
// id, and starts the read and write pumps. The connection starts anonymous;
// it gains an identity only when its join event is processed.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	connID := uuid.NewString()
	client := NewClient(conn, connID)
	h.broadcaster.Add(client)

	log.Printf("Connection %s established from %s", connID, conn.RemoteAddr())

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

// readPump pumps inbound events from the connection into the hub. On exit
// the client is removed from the broadcaster first, so the disconnect
// broadcasts only target the remaining peers.
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.broadcaster.Remove(client.ConnID())
		h.hub.Disconnect(client.ConnID())
		client.Conn().Close()
	}()

	client.Conn().SetReadLimit(maxMessageSize)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := client.Conn().ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error on %s: %v", client.ConnID(), err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			log.Printf("Failed to unmarshal event from %s: %v", client.ConnID(), err)
			continue
		}

		h.dispatch(client.ConnID(), &env)
	}
}

// dispatch routes one inbound event to the hub. Handler failures are
// isolated per connection: errors are logged and the event dropped, never
// surfaced to other clients.
func (h *Handler) dispatch(connID string, env *Envelope) {
	switch env.Event {
	case EventInJoin:
		var payload JoinPayload
		if err := decodePayload(env.Data, &payload); err != nil {
			log.Printf("Bad join payload from %s: %v", connID, err)
			return
		}
		if err := h.hub.Join(connID, payload.Username, payload.Avatar); err != nil {
			log.Printf("Join from %s rejected: %v", connID, err)
		}

	case EventInMessage:
		var payload MessagePayload
		if err := decodePayload(env.Data, &payload); err != nil {
			log.Printf("Bad message payload from %s: %v", connID, err)
			return
		}
		if _, err := h.hub.Send(connID, payload.Room, payload.Content); err != nil {
			// Best-effort semantics: the message is dropped silently,
			// no error goes back to the sender or anyone else.
			logDropped(connID, err)
		}

	case EventInTypingStart, EventInTypingStop:
		var payload TypingPayload
		if err := decodePayload(env.Data, &payload); err != nil {
			log.Printf("Bad typing payload from %s: %v", connID, err)
			return
		}
		isTyping := env.Event == EventInTypingStart
		if err := h.hub.SetTyping(connID, payload.Room, isTyping); err != nil {
			logDropped(connID, err)
		}

	default:
		log.Printf("Unknown event %q from %s", env.Event, connID)
	}
}

// decodePayload unmarshals an event body, treating an omitted body as the
// zero payload (typing events commonly carry no data beyond the room).
func decodePayload(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func logDropped(connID string, err error) {
	switch {
	case errors.Is(err, model.ErrUnknownSender):
		log.Printf("Dropped event from unidentified connection %s", connID)
	case errors.Is(err, model.ErrNotAMember):
		log.Printf("Dropped event from %s for a room it never joined", connID)
	default:
		log.Printf("Dropped event from %s: %v", connID, err)
	}
}

// writePump pumps queued frames from the broadcaster to the connection and
// keeps the connection alive with periodic pings.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn().Close()
	}()

	for {
		select {
		case frame, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The broadcaster closed the queue.
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Each event goes in its own frame so clients can parse
			// them independently.
			if err := client.Conn().WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

			n := len(client.SendChan())
			for i := 0; i < n; i++ {
				queued := <-client.SendChan()
				client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.Conn().WriteMessage(websocket.TextMessage, queued); err != nil {
					return
				}
			}
		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SetCheckOrigin sets a custom origin checker for the WebSocket upgrader.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}
