package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chat-relay/backend/internal/hub"
	"github.com/chat-relay/backend/internal/model"
)

// PresenceHandler exposes read-only presence state over HTTP.
type PresenceHandler struct {
	hub *hub.Hub
}

// NewPresenceHandler creates a new PresenceHandler.
func NewPresenceHandler(h *hub.Hub) *PresenceHandler {
	return &PresenceHandler{
		hub: h,
	}
}

// MembersResponse lists the current members of a room.
type MembersResponse struct {
	Room    string           `json:"room"`
	Members []model.Identity `json:"members"`
	Count   int              `json:"count"`
}

// TypingResponse describes the current typing state of a room.
type TypingResponse struct {
	Room    string   `json:"room"`
	Typists []string `json:"typists"`
	Summary string   `json:"summary"`
}

// Members handles GET /api/rooms/:room/members. Rooms are created lazily on
// first join, so an unknown room is simply empty, never an error.
func (h *PresenceHandler) Members(c *gin.Context) {
	roomName := c.Param("room")
	members := h.hub.Members(roomName)

	c.JSON(http.StatusOK, MembersResponse{
		Room:    roomName,
		Members: members,
		Count:   len(members),
	})
}

// Typing handles GET /api/rooms/:room/typing.
func (h *PresenceHandler) Typing(c *gin.Context) {
	roomName := c.Param("room")

	c.JSON(http.StatusOK, TypingResponse{
		Room:    roomName,
		Typists: h.hub.Typists(roomName),
		Summary: h.hub.TypingSummary(roomName),
	})
}

// RegisterRoutes registers the presence routes on a Gin router group.
func (h *PresenceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/rooms/:room/members", h.Members)
	rg.GET("/rooms/:room/typing", h.Typing)
}
