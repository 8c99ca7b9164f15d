package sse

import (
	"net/http"
	"sync"
	"time"

	"chattrix-backend/pkg/logger"
	"chattrix-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const keepAliveInterval = 25 * time.Second

// Message is one event addressed to a user.
type Message struct {
	UserID string
	Event  string
	Data   interface{}
}

type client struct {
	userID string
	ch     chan Message
}

// Manager fans per-user notifications out to every open /events stream of that user.
type Manager struct {
	mu         sync.RWMutex
	clients    map[string]map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan Message
	stop       chan struct{}
	log        zerolog.Logger
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Message, 64),
		stop:       make(chan struct{}),
		log:        logger.Component("sse"),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (m *Manager) Run() {
	for {
		select {
		case c := <-m.register:
			m.mu.Lock()
			if m.clients[c.userID] == nil {
				m.clients[c.userID] = make(map[*client]struct{})
			}
			m.clients[c.userID][c] = struct{}{}
			m.mu.Unlock()
		case c := <-m.unregister:
			m.mu.Lock()
			if set, ok := m.clients[c.userID]; ok {
				delete(set, c)
				if len(set) == 0 {
					delete(m.clients, c.userID)
				}
			}
			m.mu.Unlock()
		case msg := <-m.broadcast:
			m.mu.RLock()
			for c := range m.clients[msg.UserID] {
				select {
				case c.ch <- msg:
				default:
					m.log.Warn().Str("user", msg.UserID).Msg("dropping event for slow client")
				}
			}
			m.mu.RUnlock()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) Stop() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
}

// SendToUser queues an event for every stream the user has open.
func (m *Manager) SendToUser(userID, event string, data interface{}) {
	select {
	case m.broadcast <- Message{UserID: userID, Event: event, Data: data}:
	case <-m.stop:
	}
}

// ServeHTTP holds the request open and writes the user's events as they arrive.
func (m *Manager) ServeHTTP(c *gin.Context, userID string) {
	cl := &client{userID: userID, ch: make(chan Message, 16)}
	select {
	case m.register <- cl:
	case <-m.stop:
		c.Status(http.StatusServiceUnavailable)
		return
	}
	defer func() {
		select {
		case m.unregister <- cl:
		case <-m.stop:
		}
	}()

	Stream(c, "notification", mapMessages(c, cl.ch))
}

func mapMessages(c *gin.Context, in <-chan Message) <-chan gin.H {
	out := make(chan gin.H)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-in:
				select {
				case out <- gin.H{"event": msg.Event, "data": msg.Data}:
				case <-c.Request.Context().Done():
					return
				}
			case <-c.Request.Context().Done():
				return
			}
		}
	}()
	return out
}

// Stream writes every value from ch as a server-sent event until ch closes or
// the client goes away.
func Stream[T any](c *gin.Context, event string, ch <-chan T) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	metrics.SSEStreams.Inc()
	defer metrics.SSEStreams.Dec()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Status(http.StatusOK)
	c.Writer.Flush()
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent(event, v)
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
		case <-ctx.Done():
			return
		}
		c.Writer.Flush()
	}
}
