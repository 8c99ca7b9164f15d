package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	api "chattrix-backend/cmd/api"
	"chattrix-backend/internal/auth/provider"
	authRepo "chattrix-backend/internal/auth/repository"
	authUsecase "chattrix-backend/internal/auth/usecase"
	friendRepo "chattrix-backend/internal/friend/repository"
	friendUsecase "chattrix-backend/internal/friend/usecase"
	messageRepo "chattrix-backend/internal/message/repository"
	messageUsecase "chattrix-backend/internal/message/usecase"
	"chattrix-backend/internal/notification"
	roomRepo "chattrix-backend/internal/room/repository"
	roomUsecase "chattrix-backend/internal/room/usecase"
	scheduleRepo "chattrix-backend/internal/schedule/repository"
	"chattrix-backend/internal/schedule/scheduler"
	"chattrix-backend/pkg/config"
	"chattrix-backend/pkg/docstore"
	"chattrix-backend/pkg/events"
	"chattrix-backend/pkg/fcm"
	"chattrix-backend/pkg/firebaseapp"
	"chattrix-backend/pkg/logger"
	"chattrix-backend/pkg/ratelimit"
	"chattrix-backend/pkg/sse"

	firebase "firebase.google.com/go/v4"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	var app *firebase.App
	if cfg.UsesFirebase() {
		app, err = firebaseapp.New(ctx, cfg.GoogleProjectID, cfg.FirebaseCredentials)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Firebase")
		}
	}

	store, err := openStore(ctx, cfg, app, clock)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to open document store")
	}
	defer store.Close()

	// Initialize repositories (dependency injection)
	userRepository := authRepo.NewUserRepository(store)
	accountRepository := authRepo.NewAccountRepository(store)
	fcmTokenRepository := authRepo.NewFCMTokenRepository(store)
	roomRepository := roomRepo.NewRoomRepository(store)
	messageRepository := messageRepo.NewMessageRepository(store)
	friendRepository := friendRepo.NewFriendRepository(store)
	scheduleRepository := scheduleRepo.NewScheduleRepository(store)

	// Initialize SSE Manager
	sseManager := sse.NewManager()
	go sseManager.Run()
	defer sseManager.Stop()

	// Push is optional, live streams work without it
	var push notification.PushSender
	if app != nil {
		fcmClient, err := fcm.NewClient(ctx, app)
		if err != nil {
			log.Warn().Err(err).Msg("Push notifications disabled")
		} else {
			push = fcmClient
		}
	}
	notifService := notification.NewService(sseManager, push, fcmTokenRepository)

	publisher, closePublisher := newPublisher(ctx, cfg, notifService)
	defer closePublisher()

	idp, err := newIdentityProvider(ctx, cfg, app, accountRepository, clock)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.AuthProvider).Msg("Failed to initialize identity provider")
	}

	// Initialize use cases (dependency injection)
	authUc := authUsecase.NewAuthUsecase(idp, userRepository, fcmTokenRepository)
	roomUc := roomUsecase.NewRoomUsecase(roomRepository, publisher, cfg)
	friendUc := friendUsecase.NewFriendUsecase(friendRepository, publisher)
	messageUc := messageUsecase.NewMessageUsecase(messageRepository, roomUc, friendUc, publisher, cfg)

	sched := scheduler.NewScheduler(scheduleRepository, scheduler.NewAccess(roomUc, friendUc), publisher, cfg, clock)

	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, clock)
	defer limiter.Stop()

	handler := api.NewHandler(api.Deps{
		Auth:      authUc,
		Rooms:     roomUc,
		Messages:  messageUc,
		Friends:   friendUc,
		Scheduler: sched,
		SSE:       sseManager,
		Limiter:   limiter,
	}, cfg)
	srv := handler.Server(":" + cfg.Port)

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Str("auth", cfg.AuthProvider).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	// Pending records stay in the store and are re-armed by the next process.
	sched.Stop()
	log.Info().Msg("Server exited")
}

func openStore(ctx context.Context, cfg *config.Config, app *firebase.App, clock clockwork.Clock) (docstore.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		return docstore.NewFirestoreStore(client), nil
	case config.StorePostgres:
		db, err := docstore.NewPostgresConnection(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		pg, err := docstore.NewPostgresStore(db, clock)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return docstore.NewMemoryStore(clock), nil
	}
}

func newIdentityProvider(ctx context.Context, cfg *config.Config, app *firebase.App, accounts authRepo.AccountRepository, clock clockwork.Clock) (provider.IdentityProvider, error) {
	if cfg.AuthProvider == config.AuthFirebase {
		return provider.NewFirebaseProvider(ctx, app)
	}
	return provider.NewLocalProvider(accounts, cfg, clock), nil
}

// newPublisher returns a Pub/Sub publisher whose subscription feeds the
// notification service, or an in-process bus when no project is configured.
func newPublisher(ctx context.Context, cfg *config.Config, notifService *notification.Service) (events.Publisher, func()) {
	noop := func() {}
	l := logger.Component("pubsub")
	if cfg.GoogleProjectID == "" {
		l.Warn().Msg("GOOGLE_PROJECT_ID not configured, using in-process events")
		return events.NewLocalBus(notifService.Handle), noop
	}

	ps, err := events.NewPubSub(ctx, cfg.GoogleProjectID, cfg.PubSubTopic, cfg.FirebaseCredentials)
	if err != nil {
		l.Error().Err(err).Msg("falling back to in-process events")
		return events.NewLocalBus(notifService.Handle), noop
	}
	go notifService.Start(ctx, ps)
	return ps, func() {
		if err := ps.Close(); err != nil {
			l.Warn().Err(err).Msg("close failed")
		}
	}
}
