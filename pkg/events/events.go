// Package events carries domain events between the usecases that raise them
// and the notification service that turns them into pushes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeRoomCreated        = "room.created"
	TypeDirectMessage      = "direct_message.sent"
	TypeScheduledDelivered = "scheduled_message.delivered"
	TypeScheduledFailed    = "scheduled_message.failed"
	TypeMessageFailed      = "message.failed"
	TypeFriendRequest      = "friend_request.received"
	TypeFriendAccepted     = "friend_request.accepted"
)

type Event struct {
	Type string `json:"type"`
	// Owner is the username the event is addressed to.
	Owner string            `json:"owner"`
	Data  map[string]string `json:"data,omitempty"`
	At    time.Time         `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Handler consumes events, either in process or from a subscription.
type Handler func(ctx context.Context, evt Event)

func Encode(evt Event) ([]byte, error) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	return json.Marshal(evt)
}

func Decode(data []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if evt.Type == "" {
		return Event{}, fmt.Errorf("event without type")
	}
	return evt, nil
}

// LocalBus hands events straight to handlers in a goroutine. It is used when
// no Pub/Sub project is configured.
type LocalBus struct {
	handlers []Handler
}

func NewLocalBus(handlers ...Handler) *LocalBus {
	return &LocalBus{handlers: handlers}
}

func (b *LocalBus) Publish(ctx context.Context, evt Event) error {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	for _, h := range b.handlers {
		go h(context.WithoutCancel(ctx), evt)
	}
	return nil
}
