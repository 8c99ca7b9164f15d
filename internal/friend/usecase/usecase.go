package usecase

import (
	"context"

	"chattrix-backend/internal/friend/domain"
)

// FriendUsecase defines the interface for friend request business logic
type FriendUsecase interface {
	// SendRequest asks to to become from's friend
	SendRequest(ctx context.Context, from, to string) error

	Accept(ctx context.Context, username, from string) error
	Reject(ctx context.Context, username, from string) error

	// ListRequests returns the pending requests addressed to username
	ListRequests(ctx context.Context, username string) ([]domain.Request, error)

	ListFriends(ctx context.Context, username string) ([]domain.Friend, error)
	WatchFriends(ctx context.Context, username string) (<-chan []domain.Friend, error)

	// RequireFriend returns a NotFriends error unless other is on username's friend list
	RequireFriend(ctx context.Context, username, other string) error
}
