package usecase

import (
	"context"
	"net/url"
	"strings"

	"chattrix-backend/internal/message/domain"
	"chattrix-backend/internal/message/repository"
	"chattrix-backend/pkg/config"
	"chattrix-backend/pkg/events"
	"chattrix-backend/pkg/logger"
	"chattrix-backend/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	scopeRoom   = "room"
	scopeDirect = "direct"
)

// messageUsecase implements MessageUsecase interface
type messageUsecase struct {
	repo      repository.MessageRepository
	rooms     MemberChecker
	friends   FriendChecker
	publisher events.Publisher
	policy    config.FailurePolicy
	log       zerolog.Logger
}

// NewMessageUsecase creates a new instance of messageUsecase
func NewMessageUsecase(repo repository.MessageRepository, rooms MemberChecker, friends FriendChecker, publisher events.Publisher, cfg *config.Config) MessageUsecase {
	return &messageUsecase{
		repo:      repo,
		rooms:     rooms,
		friends:   friends,
		publisher: publisher,
		policy:    cfg.DeliveryFailurePolicy,
		log:       logger.Component("message"),
	}
}

func (u *messageUsecase) SendRoomText(ctx context.Context, roomID, sender, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyText
	}
	if err := u.rooms.RequireMember(ctx, roomID, sender); err != nil {
		return nil, err
	}

	msg := &domain.Message{ID: uuid.New().String(), SenderUsername: sender, Type: domain.TypeText, Text: text}
	return u.finish(ctx, scopeRoom, msg, u.repo.AppendRoom(ctx, roomID, msg), roomID)
}

func (u *messageUsecase) SendRoomImage(ctx context.Context, roomID, sender, imageURL string) (*domain.Message, error) {
	imageURL = strings.TrimSpace(imageURL)
	if !validImageURL(imageURL) {
		return nil, domain.ErrInvalidURL
	}
	if err := u.rooms.RequireMember(ctx, roomID, sender); err != nil {
		return nil, err
	}

	msg := &domain.Message{ID: uuid.New().String(), SenderUsername: sender, Type: domain.TypeImage, ImageURL: imageURL}
	return u.finish(ctx, scopeRoom, msg, u.repo.AppendRoom(ctx, roomID, msg), roomID)
}

func (u *messageUsecase) SendDirect(ctx context.Context, sender, friend, text string) (*domain.Message, error) {
	friend = strings.TrimSpace(friend)
	if friend == "" {
		return nil, domain.ErrNoRecipient
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyText
	}
	if err := u.friends.RequireFriend(ctx, sender, friend); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:                uuid.New().String(),
		SenderUsername:    sender,
		RecipientUsername: friend,
		Type:              domain.TypeText,
		Text:              text,
	}
	chatID := domain.DirectChatID(sender, friend)
	out, err := u.finish(ctx, scopeDirect, msg, u.repo.AppendDirect(ctx, msg), chatID)
	if err == nil && !out.Pending {
		u.publish(ctx, events.Event{
			Type:  events.TypeDirectMessage,
			Owner: friend,
			Data:  map[string]string{"from": sender, "chatId": chatID, "text": text},
		})
	}
	return out, err
}

// finish applies the failure policy to the result of a write.
func (u *messageUsecase) finish(ctx context.Context, scope string, msg *domain.Message, writeErr error, target string) (*domain.Message, error) {
	if writeErr == nil {
		metrics.MessagesSentTotal.WithLabelValues(scope, "ok").Inc()
		return msg, nil
	}

	metrics.MessagesSentTotal.WithLabelValues(scope, "failed").Inc()
	u.log.Error().Err(writeErr).Str("scope", scope).Str("target", target).Str("sender", msg.SenderUsername).Msg("message write failed")
	if u.policy != config.PolicySurface {
		msg.Pending = true
		return msg, nil
	}

	data := map[string]string{"scope": scope, "target": target, "id": msg.ID}
	if msg.RecipientUsername != "" {
		data["friendUsername"] = msg.RecipientUsername
	} else {
		data["roomId"] = target
	}
	u.publish(ctx, events.Event{Type: events.TypeMessageFailed, Owner: msg.SenderUsername, Data: data})
	return nil, domain.ErrSendFailed
}

func (u *messageUsecase) WatchRoom(ctx context.Context, roomID, username string) (<-chan []domain.Message, error) {
	if err := u.rooms.RequireMember(ctx, roomID, username); err != nil {
		return nil, err
	}
	return u.repo.WatchRoom(ctx, roomID)
}

func (u *messageUsecase) WatchDirect(ctx context.Context, username, friend string) (<-chan []domain.Message, error) {
	if err := u.friends.RequireFriend(ctx, username, friend); err != nil {
		return nil, err
	}
	return u.repo.WatchDirect(ctx, domain.DirectChatID(username, friend))
}

func (u *messageUsecase) publish(ctx context.Context, evt events.Event) {
	if u.publisher == nil {
		return
	}
	if err := u.publisher.Publish(ctx, evt); err != nil {
		u.log.Warn().Err(err).Str("type", evt.Type).Msg("failed to publish event")
	}
}

func validImageURL(raw string) bool {
	if raw == "" {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
