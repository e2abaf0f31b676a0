package handlers

import (
	"net/http"

	"chat-relay-service/internal/models"
	"chat-relay-service/internal/relay"

	"github.com/gin-gonic/gin"
)

type RoomsHandler struct {
	registry *relay.Registry
}

func NewRoomsHandler(registry *relay.Registry) *RoomsHandler {
	return &RoomsHandler{registry: registry}
}

// GetRooms godoc
// @Summary List active rooms
// @Description Returns the identifiers of all rooms that currently have members.
// @Tags chat
// @Produce json
// @Success 200 {object} models.RoomListResponse
// @Router /chat/rooms [get]
func (h *RoomsHandler) GetRooms(c *gin.Context) {
	c.JSON(http.StatusOK, models.RoomListResponse{Rooms: h.registry.Rooms()})
}

// GetRoomDetail godoc
// @Summary Room participants
// @Description Returns the participant count and list for one room. Unknown rooms report an empty list.
// @Tags chat
// @Produce json
// @Param id path string true "Room identifier"
// @Success 200 {object} models.RoomDetailResponse
// @Router /chat/rooms/{id} [get]
func (h *RoomsHandler) GetRoomDetail(c *gin.Context) {
	roomID := c.Param("id")
	participants := h.registry.Participants(roomID)

	c.JSON(http.StatusOK, models.RoomDetailResponse{
		RoomID:            roomID,
		ParticipantsCount: len(participants),
		Participants:      participants,
	})
}
