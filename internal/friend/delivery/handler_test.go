package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chattrix-backend/internal/friend/repository"
	"chattrix-backend/internal/friend/usecase"
	"chattrix-backend/pkg/docstore"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestFriendRoutes(t *testing.T) {
	store := docstore.NewMemoryStore(clockwork.NewFakeClock())
	for _, u := range []string{"alice", "bob"} {
		require.NoError(t, store.Set(context.Background(), "users/"+u, map[string]any{"username": u}))
	}
	h := NewFriendHandler(usecase.NewFriendUsecase(repository.NewFriendRepository(store), nil))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("username", c.GetHeader("X-User"))
		c.Next()
	})
	r.POST("/friends/requests", h.SendRequest)
	r.GET("/friends/requests", h.ListRequests)
	r.POST("/friends/requests/:from/accept", h.Accept)
	r.GET("/friends", h.ListFriends)

	do := func(method, path, user, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/friends/requests", "alice", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "You cannot add yourself as a friend.")

	w = do(http.MethodPost, "/friends/requests", "alice", `{"username":"zed"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusCreated, do(http.MethodPost, "/friends/requests", "alice", `{"username":"bob"}`).Code)

	w = do(http.MethodGet, "/friends/requests", "bob", "")
	assert.Contains(t, w.Body.String(), `"from":"alice"`)

	w = do(http.MethodPost, "/friends/requests/alice/accept", "bob", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You are now friends with alice")

	w = do(http.MethodGet, "/friends", "alice", "")
	assert.Contains(t, w.Body.String(), `"username":"bob"`)

	w = do(http.MethodPost, "/friends/requests", "alice", `{"username":"bob"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}
