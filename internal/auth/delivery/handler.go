package delivery

import (
	"net/http"

	authdto "chattrix-backend/internal/auth/dto"
	"chattrix-backend/internal/auth/usecase"
	"chattrix-backend/pkg/apperr"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles sign-in, profile and device token requests
type AuthHandler struct {
	authUsecase usecase.AuthUsecase
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authUsecase usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{authUsecase: authUsecase}
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req authdto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.authUsecase.Register(c.Request.Context(), &req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req authdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.authUsecase.Login(c.Request.Context(), &req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Session reports the caller's sign-in state and what the client should do next
// GET /api/auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	resp, err := h.authUsecase.Session(c.Request.Context(), IdentityFrom(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/auth/username
func (h *AuthHandler) SetUsername(c *gin.Context) {
	var req authdto.SetUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.authUsecase.SetUsername(c.Request.Context(), IdentityFrom(c), req.Username)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout revokes the caller's tokens. ?abandon=true leaves the username prompt.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	resp, err := h.authUsecase.Logout(c.Request.Context(), IdentityFrom(c), c.Query("abandon") == "true")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/fcm/register
func (h *AuthHandler) RegisterFCMToken(c *gin.Context) {
	var req authdto.RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authUsecase.RegisterDeviceToken(c.Request.Context(), c.GetString(UsernameKey), req.Token, req.DeviceInfo); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token registered"})
}

// DELETE /api/fcm/:token
func (h *AuthHandler) UnregisterFCMToken(c *gin.Context) {
	if err := h.authUsecase.RemoveDeviceToken(c.Request.Context(), c.GetString(UsernameKey), c.Param("token")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token removed"})
}
