package api

import (
	"net/http"
	"time"

	"chattrix-backend/internal/auth/delivery"
	"chattrix-backend/pkg/logger"
	"chattrix-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	authMiddleware := delivery.AuthMiddleware(h.deps.Auth)
	requireUsername := delivery.RequireUsername()

	r.Use(metrics.GinMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		api.GET("/settings", h.GetSettings)

		// SSE endpoint
		api.GET("/events", authMiddleware, requireUsername, func(c *gin.Context) {
			h.deps.SSE.ServeHTTP(c, c.GetString(delivery.UsernameKey))
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.authHandler.Register)
			auth.POST("/login", h.authHandler.Login)
			auth.GET("/session", authMiddleware, h.authHandler.Session)
			auth.POST("/username", authMiddleware, h.authHandler.SetUsername)
			auth.POST("/logout", authMiddleware, h.authHandler.Logout)
		}

		// Everything below needs a signed in user with a username
		protected := api.Group("")
		protected.Use(authMiddleware, requireUsername)

		fcm := protected.Group("/fcm")
		{
			fcm.POST("/register", h.authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", h.authHandler.UnregisterFCMToken)
		}

		rooms := protected.Group("/rooms")
		{
			rooms.POST("", h.limit(), h.roomHandler.CreateRoom)
			rooms.POST("/join", h.limit(), h.roomHandler.JoinRoom)
			rooms.GET("/joined", h.roomHandler.ListJoined)
			rooms.GET("/:id", h.roomHandler.GetRoom)
			rooms.GET("/:id/members/stream", h.roomHandler.StreamMembers)
			rooms.GET("/:id/messages/stream", h.messageHandler.StreamRoom)
			rooms.POST("/:id/messages", h.messageHandler.SendRoomText)
			rooms.POST("/:id/images", h.messageHandler.SendRoomImage)
			rooms.GET("/:id/scheduled", h.scheduleHandler.ListRoom)
			rooms.POST("/:id/scheduled", h.scheduleHandler.ScheduleRoom)
			rooms.DELETE("/:id/scheduled/:sid", h.scheduleHandler.CancelRoom)
		}

		direct := protected.Group("/direct")
		{
			direct.GET("/:friend/messages/stream", h.messageHandler.StreamDirect)
			direct.POST("/:friend/messages", h.messageHandler.SendDirect)
			direct.GET("/:friend/scheduled", h.scheduleHandler.ListDirect)
			direct.POST("/:friend/scheduled", h.scheduleHandler.ScheduleDirect)
			direct.DELETE("/:friend/scheduled/:sid", h.scheduleHandler.CancelDirect)
		}

		friends := protected.Group("/friends")
		{
			friends.GET("", h.friendHandler.ListFriends)
			friends.GET("/stream", h.friendHandler.StreamFriends)
			friends.POST("/requests", h.friendHandler.SendRequest)
			friends.GET("/requests", h.friendHandler.ListRequests)
			friends.POST("/requests/:from/accept", h.friendHandler.Accept)
			friends.POST("/requests/:from/reject", h.friendHandler.Reject)
		}
	}
}

// limit throttles password guessing on room create and join
func (h *Handler) limit() gin.HandlerFunc {
	if h.deps.Limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return h.deps.Limiter.Middleware()
}

func requestLogger() gin.HandlerFunc {
	log := logger.Component("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		evt := log.Info()
		if status >= http.StatusInternalServerError {
			evt = log.Error()
		}
		evt.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
