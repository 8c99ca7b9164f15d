package delivery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chattrix-backend/internal/room/repository"
	"chattrix-backend/internal/room/usecase"
	"chattrix-backend/pkg/config"
	"chattrix-backend/pkg/docstore"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store := docstore.NewMemoryStore(clockwork.NewFakeClock())
	uc := usecase.NewRoomUsecase(repository.NewRoomRepository(store), nil, &config.Config{RoomPasswordMode: config.PasswordPlaintext})
	h := NewRoomHandler(uc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("username", c.GetHeader("X-User"))
		c.Next()
	})
	r.POST("/rooms", h.CreateRoom)
	r.POST("/rooms/join", h.JoinRoom)
	r.GET("/rooms/joined", h.ListJoined)
	r.GET("/rooms/:id", h.GetRoom)
	return r
}

func do(r *gin.Engine, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", user)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndJoinRoom(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/rooms", "alice", `{"name":"General","password":"pw"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	roomID, _ := created["roomId"].(string)
	assert.Regexp(t, `^\d{6}$`, roomID)
	assert.NotContains(t, w.Body.String(), "pw")

	w = do(r, http.MethodPost, "/rooms/join", "bob", `{"identifier":"general","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/rooms/"+roomID, "bob", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/rooms/joined", "bob", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), roomID)
}

func TestRoomErrorsMapToStatus(t *testing.T) {
	r := newRouter(t)
	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/rooms", "alice", `{"name":"General","password":"pw"}`).Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		msg    string
	}{
		{"empty name", http.MethodPost, "/rooms", `{"name":" ","password":"pw"}`, http.StatusBadRequest, "Room name is required"},
		{"name taken", http.MethodPost, "/rooms", `{"name":"general","password":"x"}`, http.StatusConflict, "Room name already exists. Please choose another name."},
		{"unknown room", http.MethodPost, "/rooms/join", `{"identifier":"nope","password":"pw"}`, http.StatusNotFound, "Room not found."},
		{"wrong password", http.MethodPost, "/rooms/join", `{"identifier":"General","password":"bad"}`, http.StatusForbidden, "Incorrect password."},
		{"malformed body", http.MethodPost, "/rooms", `{`, http.StatusBadRequest, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, "bob", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.msg)
		})
	}
}

func TestGetRoomForNonMember(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodPost, "/rooms", "alice", `{"name":"General","password":"pw"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(r, http.MethodGet, "/rooms/"+created["roomId"].(string), "mallory", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
