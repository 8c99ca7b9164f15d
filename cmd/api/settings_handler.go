package api

import (
	"net/http"

	"chattrix-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

// ClientSettings are the server settings a client needs before signing in
type ClientSettings struct {
	AuthProvider          string               `json:"auth_provider"`
	PasswordLogin         bool                 `json:"password_login"`
	DeliveryFailurePolicy config.FailurePolicy `json:"delivery_failure_policy"`
	ScheduleCatchUp       bool                 `json:"schedule_catch_up"`
}

// GetSettings returns the public settings
// GET /api/settings
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, ClientSettings{
		AuthProvider:          h.config.AuthProvider,
		PasswordLogin:         h.config.AuthProvider == config.AuthLocal,
		DeliveryFailurePolicy: h.config.DeliveryFailurePolicy,
		ScheduleCatchUp:       h.config.ScheduleCatchUp,
	})
}
