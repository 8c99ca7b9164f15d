package api

import (
	"net/http"

	authDelivery "chattrix-backend/internal/auth/delivery"
	authUsecase "chattrix-backend/internal/auth/usecase"
	friendDelivery "chattrix-backend/internal/friend/delivery"
	friendUsecase "chattrix-backend/internal/friend/usecase"
	messageDelivery "chattrix-backend/internal/message/delivery"
	messageUsecase "chattrix-backend/internal/message/usecase"
	roomDelivery "chattrix-backend/internal/room/delivery"
	roomUsecase "chattrix-backend/internal/room/usecase"
	scheduleDelivery "chattrix-backend/internal/schedule/delivery"
	"chattrix-backend/pkg/config"
	"chattrix-backend/pkg/ratelimit"
	"chattrix-backend/pkg/sse"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps are the usecases the HTTP layer is built from
type Deps struct {
	Auth      authUsecase.AuthUsecase
	Rooms     roomUsecase.RoomUsecase
	Messages  messageUsecase.MessageUsecase
	Friends   friendUsecase.FriendUsecase
	Scheduler scheduleDelivery.Scheduler
	SSE       *sse.Manager
	Limiter   *ratelimit.Limiter
}

type Handler struct {
	deps   Deps
	config *config.Config

	authHandler     *authDelivery.AuthHandler
	roomHandler     *roomDelivery.RoomHandler
	messageHandler  *messageDelivery.MessageHandler
	friendHandler   *friendDelivery.FriendHandler
	scheduleHandler *scheduleDelivery.ScheduleHandler
}

func NewHandler(deps Deps, cfg *config.Config) *Handler {
	return &Handler{
		deps:            deps,
		config:          cfg,
		authHandler:     authDelivery.NewAuthHandler(deps.Auth),
		roomHandler:     roomDelivery.NewRoomHandler(deps.Rooms),
		messageHandler:  messageDelivery.NewMessageHandler(deps.Messages),
		friendHandler:   friendDelivery.NewFriendHandler(deps.Friends),
		scheduleHandler: scheduleDelivery.NewScheduleHandler(deps.Scheduler),
	}
}

// Engine builds the gin engine with middleware and every route
func (h *Handler) Engine() *gin.Engine {
	if h.config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = h.config.CORSOrigins
	if len(corsConfig.AllowOrigins) == 0 || corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowHeaders = []string{"Authorization", "Content-Type", "Origin", "Accept", "Cache-Control", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsConfig))

	SetupRoutes(r, h)
	return r
}

// Server wraps the engine for graceful shutdown. No write timeout so SSE
// streams stay open.
func (h *Handler) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Engine(),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}
