package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStreamWritesUntilChannelCloses(t *testing.T) {
	ch := make(chan []string, 2)
	ch <- []string{"alice"}
	ch <- []string{"alice", "bob"}
	close(ch)

	r := gin.New()
	r.GET("/stream", func(c *gin.Context) { Stream(c, "members", ch) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream", nil))

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, 2, strings.Count(body, "event:members"))
	assert.Contains(t, body, `["alice","bob"]`)
}

func TestStreamStopsOnClientDisconnect(t *testing.T) {
	ch := make(chan string)
	r := gin.New()
	r.GET("/stream", func(c *gin.Context) { Stream(c, "messages", ch) })

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/stream", nil).WithContext(ctx)
	done := make(chan struct{})
	go func() {
		r.ServeHTTP(httptest.NewRecorder(), req)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after disconnect")
	}
}

func TestManagerRoutesToUser(t *testing.T) {
	m := NewManager()
	go m.Run()
	defer m.Stop()

	r := gin.New()
	r.GET("/events/:user", func(c *gin.Context) { m.ServeHTTP(c, c.Param("user")) })

	ctx, cancel := context.WithCancel(context.Background())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events/alice", nil).WithContext(ctx)
	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()

	// Registration is asynchronous; keep sending until the stream has picked one up.
	require.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return len(m.clients["alice"]) == 1
	}, time.Second, 5*time.Millisecond)

	m.SendToUser("bob", "scheduled_message.failed", map[string]string{"id": "x"})
	m.SendToUser("alice", "scheduled_message.failed", map[string]string{"id": "y"})

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.Contains(t, body, `"id":"y"`)
	assert.NotContains(t, body, `"id":"x"`)
}
