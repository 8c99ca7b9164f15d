package delivery

import (
	"net/http"

	"chattrix-backend/internal/room/usecase"
	"chattrix-backend/pkg/apperr"
	"chattrix-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

// RoomHandler handles room-related HTTP requests
type RoomHandler struct {
	roomUsecase usecase.RoomUsecase
}

// NewRoomHandler creates a new RoomHandler
func NewRoomHandler(roomUsecase usecase.RoomUsecase) *RoomHandler {
	return &RoomHandler{roomUsecase: roomUsecase}
}

type CreateRoomRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type JoinRoomRequest struct {
	// Identifier is either a six digit room id or a room name.
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// CreateRoom reserves a name and allocates a room id
// POST /api/rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	room, err := h.roomUsecase.CreateRoom(c.Request.Context(), req.Name, req.Password, c.GetString("username"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// JoinRoom joins by id or name
// POST /api/rooms/join
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	room, err := h.roomUsecase.JoinRoom(c.Request.Context(), req.Identifier, req.Password, c.GetString("username"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// GET /api/rooms/joined
func (h *RoomHandler) ListJoined(c *gin.Context) {
	rooms, err := h.roomUsecase.ListJoined(c.Request.Context(), c.GetString("username"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GET /api/rooms/:id
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.roomUsecase.GetRoom(c.Request.Context(), c.Param("id"), c.GetString("username"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// StreamMembers pushes the member list every time it changes
// GET /api/rooms/:id/members/stream
func (h *RoomHandler) StreamMembers(c *gin.Context) {
	ch, err := h.roomUsecase.WatchMembers(c.Request.Context(), c.Param("id"), c.GetString("username"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	sse.Stream(c, "members", ch)
}
