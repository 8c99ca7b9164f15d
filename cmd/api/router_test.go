package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chattrix-backend/internal/auth/provider"
	authRepo "chattrix-backend/internal/auth/repository"
	authUsecase "chattrix-backend/internal/auth/usecase"
	friendRepo "chattrix-backend/internal/friend/repository"
	friendUsecase "chattrix-backend/internal/friend/usecase"
	messageRepo "chattrix-backend/internal/message/repository"
	messageUsecase "chattrix-backend/internal/message/usecase"
	roomRepo "chattrix-backend/internal/room/repository"
	roomUsecase "chattrix-backend/internal/room/usecase"
	scheduleRepo "chattrix-backend/internal/schedule/repository"
	"chattrix-backend/internal/schedule/scheduler"
	"chattrix-backend/pkg/config"
	"chattrix-backend/pkg/docstore"
	"chattrix-backend/pkg/ratelimit"
	"chattrix-backend/pkg/sse"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	engine *gin.Engine
	clock  clockwork.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := clockwork.NewFakeClock()
	store := docstore.NewMemoryStore(clock)
	cfg := &config.Config{
		Env:                   "test",
		AuthProvider:          config.AuthLocal,
		JWTSecret:             "secret",
		JWTAccessExpiry:       time.Hour,
		DeliveryFailurePolicy: config.PolicySilent,
		RoomPasswordMode:      config.PasswordPlaintext,
		CORSOrigins:           []string{"*"},
	}

	idp := provider.NewLocalProvider(authRepo.NewAccountRepository(store), cfg, clock)
	authUc := authUsecase.NewAuthUsecase(idp, authRepo.NewUserRepository(store), authRepo.NewFCMTokenRepository(store))
	roomUc := roomUsecase.NewRoomUsecase(roomRepo.NewRoomRepository(store), nil, cfg)
	friendUc := friendUsecase.NewFriendUsecase(friendRepo.NewFriendRepository(store), nil)
	messageUc := messageUsecase.NewMessageUsecase(messageRepo.NewMessageRepository(store), roomUc, friendUc, nil, cfg)
	sched := scheduler.NewScheduler(scheduleRepo.NewScheduleRepository(store), scheduler.NewAccess(roomUc, friendUc), nil, cfg, clock)
	t.Cleanup(sched.Stop)

	sseManager := sse.NewManager()
	go sseManager.Run()
	t.Cleanup(sseManager.Stop)

	limiter := ratelimit.New(100, 100, clock)
	t.Cleanup(limiter.Stop)

	h := NewHandler(Deps{
		Auth:      authUc,
		Rooms:     roomUc,
		Messages:  messageUc,
		Friends:   friendUc,
		Scheduler: sched,
		SSE:       sseManager,
		Limiter:   limiter,
	}, cfg)
	return &testServer{engine: h.Engine(), clock: clock}
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// signUp registers an account and claims username, returning the token
func (s *testServer) signUp(t *testing.T, username string) string {
	t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", "", fmt.Sprintf(`{"email":"%s@example.com","password":"secret1"}`, username))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := field(t, w.Body.Bytes(), "token")

	w = s.do(http.MethodPost, "/api/auth/username", token, fmt.Sprintf(`{"username":"%s"}`, username))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return token
}

func field(t *testing.T, body []byte, name string) string {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	v, _ := out[name].(string)
	require.NotEmpty(t, v, string(body))
	return v
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/settings", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"password_login":true`)

	w = s.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/rooms/joined", "/api/friends", "/api/direct/bob/scheduled", "/api/auth/session"} {
		assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, path, "", "").Code, path)
	}
}

func TestUsernameRequiredBeforeChat(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/auth/register", "", `{"email":"carol@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	token := field(t, w.Body.Bytes(), "token")

	w = s.do(http.MethodGet, "/api/rooms/joined", token, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Set a username first")
}

func TestRoomChatFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp(t, "alice")
	bob := s.signUp(t, "bob")

	w := s.do(http.MethodPost, "/api/rooms", alice, `{"name":"Lobby","password":"pw"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	roomID := field(t, w.Body.Bytes(), "roomId")

	// Not a member yet.
	w = s.do(http.MethodPost, "/api/rooms/"+roomID+"/messages", bob, `{"text":"hi"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/rooms/join", bob, fmt.Sprintf(`{"identifier":"%s","password":"pw"}`, roomID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/rooms/"+roomID+"/messages", bob, `{"text":"hi"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/rooms/"+roomID+"/images", alice, `{"imageUrl":"https://cdn.example.com/cat.png"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	at := s.clock.Now().Add(time.Hour).UnixMilli()
	w = s.do(http.MethodPost, "/api/rooms/"+roomID+"/scheduled", alice, fmt.Sprintf(`{"text":"later","scheduledDate":%d}`, at))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sid := field(t, w.Body.Bytes(), "id")

	w = s.do(http.MethodDelete, "/api/rooms/"+roomID+"/scheduled/"+sid, alice, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestFriendsAndDirectFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp(t, "alice")
	bob := s.signUp(t, "bob")

	w := s.do(http.MethodPost, "/api/direct/bob/messages", alice, `{"text":"hey"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "You are not friends with bob.")

	w = s.do(http.MethodPost, "/api/friends/requests", alice, `{"username":"bob"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/friends/requests", bob, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")

	w = s.do(http.MethodPost, "/api/friends/requests/alice/accept", bob, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/direct/bob/messages", alice, `{"text":"hey"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/friends", alice, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bob")
}
