package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoomsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chattrix_rooms_created_total",
		Help: "Total number of rooms created",
	})
	RoomIDCollisionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chattrix_room_id_collisions_total",
		Help: "Candidate room ids that were already taken",
	})
	MessagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chattrix_messages_sent_total",
		Help: "Messages appended to conversations",
	}, []string{"scope", "result"})
	ScheduledArmed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chattrix_scheduled_armed",
		Help: "Scheduled messages with a live timer in this process",
	})
	ScheduledDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chattrix_scheduled_deliveries_total",
		Help: "Scheduled message delivery attempts by result",
	}, []string{"result"})
	SSEStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chattrix_sse_streams",
		Help: "Open server-sent event streams",
	})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		RoomsCreatedTotal,
		RoomIDCollisionsTotal,
		MessagesSentTotal,
		ScheduledArmed,
		ScheduledDeliveriesTotal,
		SSEStreams,
		HttpRequestsTotal,
		HttpRequestDuration,
	)
}

// GinMiddleware records request counts and latency for Prometheus.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
