package delivery

import (
	"net/http"
	"strings"

	authdomain "chattrix-backend/internal/auth/domain"
	"chattrix-backend/internal/auth/usecase"
	"chattrix-backend/pkg/apperr"

	"github.com/gin-gonic/gin"
)

const (
	IdentityKey = "identity"
	UsernameKey = "username"
)

func AuthMiddleware(authUsecase usecase.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		identity, username, err := authUsecase.Authenticate(c.Request.Context(), token)
		if err != nil {
			apperr.Respond(c, err)
			c.Abort()
			return
		}

		c.Set(IdentityKey, identity)
		c.Set(UsernameKey, username)
		c.Next()
	}
}

// RequireUsername rejects callers that have not picked a username yet
func RequireUsername() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(UsernameKey) == "" {
			apperr.Respond(c, authdomain.ErrUsernameMissing)
			c.Abort()
			return
		}
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to ?token= for
// EventSource clients that cannot set headers.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return c.Query("token")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// IdentityFrom returns the identity set by AuthMiddleware
func IdentityFrom(c *gin.Context) *authdomain.Identity {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*authdomain.Identity)
	return identity
}
