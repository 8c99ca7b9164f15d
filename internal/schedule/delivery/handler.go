package delivery

import (
	"context"
	"net/http"
	"time"

	"chattrix-backend/internal/schedule/domain"
	"chattrix-backend/pkg/apperr"

	"github.com/gin-gonic/gin"
)

// Scheduler is the part of the scheduler the HTTP layer drives
type Scheduler interface {
	Schedule(ctx context.Context, owner, text string, at time.Time, target domain.Target) (*domain.ScheduledMessage, error)
	Cancel(ctx context.Context, owner string, target domain.Target, id string) error
	Recover(ctx context.Context, owner string, target domain.Target) ([]*domain.ScheduledMessage, error)
}

// ScheduleHandler handles scheduled message HTTP requests
type ScheduleHandler struct {
	scheduler Scheduler
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(scheduler Scheduler) *ScheduleHandler {
	return &ScheduleHandler{scheduler: scheduler}
}

type ScheduleRequest struct {
	Text string `json:"text"`
	// ScheduledDate is epoch milliseconds. Zero means no date was picked.
	ScheduledDate int64 `json:"scheduledDate"`
}

type scheduledView struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	ScheduledDate int64      `json:"scheduledDate"`
	RoomID        string     `json:"roomId,omitempty"`
	Friend        string     `json:"friendUsername,omitempty"`
	Overdue       bool       `json:"overdue,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	FailedAt      *time.Time `json:"failedAt,omitempty"`
}

func toView(m *domain.ScheduledMessage) scheduledView {
	return scheduledView{
		ID:            m.ID,
		Text:          m.Text,
		ScheduledDate: m.ScheduledAt.UnixMilli(),
		RoomID:        m.Target.RoomID,
		Friend:        m.Target.Friend,
		Overdue:       m.Overdue,
		LastError:     m.LastError,
		FailedAt:      m.FailedAt,
	}
}

func roomTarget(c *gin.Context) domain.Target {
	return domain.RoomTarget(c.Param("id"))
}

func directTarget(c *gin.Context) domain.Target {
	return domain.DirectTarget(c.Param("friend"))
}

// GET /api/rooms/:id/scheduled
func (h *ScheduleHandler) ListRoom(c *gin.Context) { h.list(c, roomTarget(c)) }

// POST /api/rooms/:id/scheduled
func (h *ScheduleHandler) ScheduleRoom(c *gin.Context) { h.schedule(c, roomTarget(c)) }

// DELETE /api/rooms/:id/scheduled/:sid
func (h *ScheduleHandler) CancelRoom(c *gin.Context) { h.cancel(c, roomTarget(c)) }

// GET /api/direct/:friend/scheduled
func (h *ScheduleHandler) ListDirect(c *gin.Context) { h.list(c, directTarget(c)) }

// POST /api/direct/:friend/scheduled
func (h *ScheduleHandler) ScheduleDirect(c *gin.Context) { h.schedule(c, directTarget(c)) }

// DELETE /api/direct/:friend/scheduled/:sid
func (h *ScheduleHandler) CancelDirect(c *gin.Context) { h.cancel(c, directTarget(c)) }

// list re-arms anything this process lost and returns the pending records
func (h *ScheduleHandler) list(c *gin.Context, target domain.Target) {
	records, err := h.scheduler.Recover(c.Request.Context(), c.GetString("username"), target)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	views := make([]scheduledView, 0, len(records))
	for _, m := range records {
		views = append(views, toView(m))
	}
	c.JSON(http.StatusOK, gin.H{"scheduled": views})
}

func (h *ScheduleHandler) schedule(c *gin.Context, target domain.Target) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var at time.Time
	if req.ScheduledDate > 0 {
		at = time.UnixMilli(req.ScheduledDate)
	}

	msg, err := h.scheduler.Schedule(c.Request.Context(), c.GetString("username"), req.Text, at, target)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, toView(msg))
}

func (h *ScheduleHandler) cancel(c *gin.Context, target domain.Target) {
	if err := h.scheduler.Cancel(c.Request.Context(), c.GetString("username"), target, c.Param("sid")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
