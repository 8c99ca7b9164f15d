package delivery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chattrix-backend/internal/message/domain"
	"chattrix-backend/internal/message/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUsecase struct {
	usecase.MessageUsecase
	msg *domain.Message
	err error
}

func (s stubUsecase) SendRoomText(context.Context, string, string, string) (*domain.Message, error) {
	return s.msg, s.err
}

func send(h *MessageHandler, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/rooms/:id/messages", h.SendRoomText)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rooms/123456/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSendStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		stub   stubUsecase
		status int
	}{
		{"stored", stubUsecase{msg: &domain.Message{ID: "m1"}}, http.StatusCreated},
		{"swallowed failure", stubUsecase{msg: &domain.Message{ID: "m1", Pending: true}}, http.StatusAccepted},
		{"surfaced failure", stubUsecase{err: domain.ErrSendFailed}, http.StatusBadGateway},
		{"empty text", stubUsecase{err: domain.ErrEmptyText}, http.StatusBadRequest},
		{"backend", stubUsecase{err: errors.New("boom")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := send(NewMessageHandler(tt.stub), `{"text":"hi"}`)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestSendRejectsMalformedBody(t *testing.T) {
	w := send(NewMessageHandler(stubUsecase{}), `{"text":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
