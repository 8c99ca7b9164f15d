package delivery

import (
	"net/http"

	"chattrix-backend/internal/message/domain"
	"chattrix-backend/internal/message/usecase"
	"chattrix-backend/pkg/apperr"
	"chattrix-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

// MessageHandler handles room and direct message HTTP requests
type MessageHandler struct {
	messageUsecase usecase.MessageUsecase
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageUsecase usecase.MessageUsecase) *MessageHandler {
	return &MessageHandler{messageUsecase: messageUsecase}
}

type SendTextRequest struct {
	Text string `json:"text"`
}

type SendImageRequest struct {
	ImageURL string `json:"imageUrl"`
}

// POST /api/rooms/:id/messages
func (h *MessageHandler) SendRoomText(c *gin.Context) {
	var req SendTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	msg, err := h.messageUsecase.SendRoomText(c.Request.Context(), c.Param("id"), c.GetString("username"), req.Text)
	respondSent(c, msg, err)
}

// POST /api/rooms/:id/images
func (h *MessageHandler) SendRoomImage(c *gin.Context) {
	var req SendImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	msg, err := h.messageUsecase.SendRoomImage(c.Request.Context(), c.Param("id"), c.GetString("username"), req.ImageURL)
	respondSent(c, msg, err)
}

// POST /api/direct/:friend/messages
func (h *MessageHandler) SendDirect(c *gin.Context) {
	var req SendTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	msg, err := h.messageUsecase.SendDirect(c.Request.Context(), c.GetString("username"), c.Param("friend"), req.Text)
	respondSent(c, msg, err)
}

// GET /api/rooms/:id/messages/stream
func (h *MessageHandler) StreamRoom(c *gin.Context) {
	ch, err := h.messageUsecase.WatchRoom(c.Request.Context(), c.Param("id"), c.GetString("username"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	sse.Stream(c, "messages", ch)
}

// GET /api/direct/:friend/messages/stream
func (h *MessageHandler) StreamDirect(c *gin.Context) {
	ch, err := h.messageUsecase.WatchDirect(c.Request.Context(), c.GetString("username"), c.Param("friend"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	sse.Stream(c, "messages", ch)
}

// respondSent answers 201, or 202 when the write failed and was swallowed.
func respondSent(c *gin.Context, msg *domain.Message, err error) {
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if msg.Pending {
		c.JSON(http.StatusAccepted, msg)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
