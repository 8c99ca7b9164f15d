package repository

import (
	"context"

	"chattrix-backend/internal/friend/domain"
)

// FriendRepository defines the interface for friend graph data access
type FriendRepository interface {
	UserExists(ctx context.Context, username string) (bool, error)
	AreFriends(ctx context.Context, username, other string) (bool, error)

	// SaveRequest writes users/{to}/friendRequests/{from}, replacing any earlier request
	SaveRequest(ctx context.Context, to, from string) error

	// Accept links both users and clears the request in one transaction
	Accept(ctx context.Context, username, from string) error

	// ClearRequest overwrites the request with an empty document
	ClearRequest(ctx context.Context, username, from string) error

	ListRequests(ctx context.Context, username string) ([]domain.Request, error)
	ListFriends(ctx context.Context, username string) ([]domain.Friend, error)
	WatchFriends(ctx context.Context, username string) (<-chan []domain.Friend, error)
}
