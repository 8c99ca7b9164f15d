package usecase

import (
	"context"

	"chattrix-backend/internal/message/domain"
)

// MemberChecker is satisfied by the room usecase
type MemberChecker interface {
	RequireMember(ctx context.Context, roomID, username string) error
}

// FriendChecker is satisfied by the friend usecase
type FriendChecker interface {
	RequireFriend(ctx context.Context, username, other string) error
}

// MessageUsecase defines the interface for sending and streaming messages
type MessageUsecase interface {
	SendRoomText(ctx context.Context, roomID, sender, text string) (*domain.Message, error)

	// SendRoomImage posts an image that is already hosted at imageURL
	SendRoomImage(ctx context.Context, roomID, sender, imageURL string) (*domain.Message, error)

	SendDirect(ctx context.Context, sender, friend, text string) (*domain.Message, error)

	// WatchRoom streams the room's messages ordered by timestamp
	WatchRoom(ctx context.Context, roomID, username string) (<-chan []domain.Message, error)
	WatchDirect(ctx context.Context, username, friend string) (<-chan []domain.Message, error)
}
