// Package notification turns domain events into live SSE updates and FCM pushes.
package notification

import (
	"context"
	"fmt"

	authrepo "chattrix-backend/internal/auth/repository"
	"chattrix-backend/pkg/events"
	"chattrix-backend/pkg/fcm"
	"chattrix-backend/pkg/logger"

	"github.com/rs/zerolog"
)

// PushSender delivers a push to devices and reports the tokens that failed
type PushSender interface {
	SendToDevices(ctx context.Context, tokens []string, n fcm.NotificationData) ([]string, error)
}

// LiveNotifier forwards an event to a user's open streams
type LiveNotifier interface {
	SendToUser(userID, event string, data interface{})
}

// Receiver feeds events from an external subscription
type Receiver interface {
	Receive(ctx context.Context, handle events.Handler) error
}

type Service struct {
	live   LiveNotifier
	push   PushSender
	tokens authrepo.FCMTokenRepository
	log    zerolog.Logger
}

// NewService creates a notification service. push and tokens may be nil, in
// which case only live streams are notified.
func NewService(live LiveNotifier, push PushSender, tokens authrepo.FCMTokenRepository) *Service {
	return &Service{
		live:   live,
		push:   push,
		tokens: tokens,
		log:    logger.Component("notification"),
	}
}

// Start consumes events from r until ctx is done
func (s *Service) Start(ctx context.Context, r Receiver) {
	s.log.Info().Msg("starting event consumer")
	if err := r.Receive(ctx, s.Handle); err != nil && ctx.Err() == nil {
		s.log.Error().Err(err).Msg("event consumer stopped")
	}
}

// Handle notifies the event owner. It satisfies events.Handler.
func (s *Service) Handle(ctx context.Context, evt events.Event) {
	if evt.Owner == "" {
		s.log.Debug().Str("type", evt.Type).Msg("event without owner ignored")
		return
	}

	if s.live != nil {
		s.live.SendToUser(evt.Owner, evt.Type, evt.Data)
	}

	n, ok := describe(evt)
	if !ok || s.push == nil || s.tokens == nil {
		return
	}
	s.sendPush(ctx, evt.Owner, n)
}

func (s *Service) sendPush(ctx context.Context, username string, n fcm.NotificationData) {
	tokens, err := s.tokens.GetTokensByUsername(ctx, username)
	if err != nil {
		s.log.Error().Err(err).Str("user", username).Msg("failed to load push tokens")
		return
	}
	if len(tokens) == 0 {
		s.log.Debug().Str("user", username).Msg("no push tokens, skipping")
		return
	}

	values := make([]string, 0, len(tokens))
	for _, t := range tokens {
		values = append(values, t.Token)
	}

	failed, err := s.push.SendToDevices(ctx, values, n)
	if err != nil {
		s.log.Error().Err(err).Str("user", username).Msg("push failed")
		return
	}
	s.log.Debug().Str("user", username).Int("sent", len(values)-len(failed)).Msg("push sent")

	for _, token := range failed {
		if err := s.tokens.DeleteToken(ctx, username, token); err != nil {
			s.log.Warn().Err(err).Str("user", username).Msg("failed to delete stale push token")
		}
	}
}

// describe builds the push for events worth interrupting the user for
func describe(evt events.Event) (fcm.NotificationData, bool) {
	data := map[string]string{"type": evt.Type}
	for k, v := range evt.Data {
		data[k] = v
	}

	switch evt.Type {
	case events.TypeDirectMessage:
		from := evt.Data["from"]
		return fcm.NotificationData{
			Title:       fmt.Sprintf("Message from %s", from),
			Body:        truncate(evt.Data["text"], 100),
			Data:        data,
			ClickAction: "/direct/" + from,
		}, true
	case events.TypeFriendRequest:
		return fcm.NotificationData{
			Title:       "New friend request",
			Body:        fmt.Sprintf("%s wants to be your friend", evt.Data["from"]),
			Data:        data,
			ClickAction: "/friends",
		}, true
	case events.TypeFriendAccepted:
		return fcm.NotificationData{
			Title:       "Friend request accepted",
			Body:        fmt.Sprintf("%s accepted your friend request", evt.Data["by"]),
			Data:        data,
			ClickAction: "/friends",
		}, true
	case events.TypeScheduledFailed, events.TypeMessageFailed:
		return fcm.NotificationData{
			Title:       "Message not sent",
			Body:        "A message could not be delivered. Open the conversation to retry.",
			Data:        data,
			ClickAction: conversationLink(evt.Data),
		}, true
	}
	return fcm.NotificationData{}, false
}

func conversationLink(data map[string]string) string {
	if room := data["roomId"]; room != "" {
		return "/rooms/" + room
	}
	if friend := data["friendUsername"]; friend != "" {
		return "/direct/" + friend
	}
	return "/"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
