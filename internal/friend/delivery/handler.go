package delivery

import (
	"net/http"

	"chattrix-backend/internal/friend/usecase"
	"chattrix-backend/pkg/apperr"
	"chattrix-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

// FriendHandler handles friend request HTTP requests
type FriendHandler struct {
	friendUsecase usecase.FriendUsecase
}

// NewFriendHandler creates a new FriendHandler
func NewFriendHandler(friendUsecase usecase.FriendUsecase) *FriendHandler {
	return &FriendHandler{friendUsecase: friendUsecase}
}

type SendRequestRequest struct {
	Username string `json:"username"`
}

// POST /api/friends/requests
func (h *FriendHandler) SendRequest(c *gin.Context) {
	var req SendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.friendUsecase.SendRequest(c.Request.Context(), c.GetString("username"), req.Username); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Friend request sent!"})
}

// GET /api/friends/requests
func (h *FriendHandler) ListRequests(c *gin.Context) {
	reqs, err := h.friendUsecase.ListRequests(c.Request.Context(), c.GetString("username"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// POST /api/friends/requests/:from/accept
func (h *FriendHandler) Accept(c *gin.Context) {
	from := c.Param("from")
	if err := h.friendUsecase.Accept(c.Request.Context(), c.GetString("username"), from); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "You are now friends with " + from})
}

// POST /api/friends/requests/:from/reject
func (h *FriendHandler) Reject(c *gin.Context) {
	from := c.Param("from")
	if err := h.friendUsecase.Reject(c.Request.Context(), c.GetString("username"), from); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Friend request from " + from + " rejected"})
}

// GET /api/friends
func (h *FriendHandler) ListFriends(c *gin.Context) {
	friends, err := h.friendUsecase.ListFriends(c.Request.Context(), c.GetString("username"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// GET /api/friends/stream
func (h *FriendHandler) StreamFriends(c *gin.Context) {
	ch, err := h.friendUsecase.WatchFriends(c.Request.Context(), c.GetString("username"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	sse.Stream(c, "friends", ch)
}
