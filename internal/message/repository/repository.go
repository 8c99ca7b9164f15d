package repository

import (
	"context"

	"chattrix-backend/internal/message/domain"
)

// MessageRepository defines the interface for conversation data access
type MessageRepository interface {
	// AppendRoom writes msg to chatrooms/{roomID}/messages/{msg.ID}
	AppendRoom(ctx context.Context, roomID string, msg *domain.Message) error

	// AppendDirect writes msg and merges the directChats summary in one transaction
	AppendDirect(ctx context.Context, msg *domain.Message) error

	WatchRoom(ctx context.Context, roomID string) (<-chan []domain.Message, error)
	WatchDirect(ctx context.Context, chatID string) (<-chan []domain.Message, error)
}
