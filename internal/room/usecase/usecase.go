package usecase

import (
	"context"

	"chattrix-backend/internal/room/domain"
)

// RoomUsecase defines the interface for room business logic
type RoomUsecase interface {
	// CreateRoom reserves the name, allocates a six digit id and makes owner a member
	CreateRoom(ctx context.Context, name, password, owner string) (*domain.Room, error)

	// JoinRoom resolves a room by id or name, checks the password and records membership
	JoinRoom(ctx context.Context, identifier, password, username string) (*domain.Room, error)

	// GetRoom returns a room the user is a member of
	GetRoom(ctx context.Context, roomID, username string) (*domain.Room, error)

	ListJoined(ctx context.Context, username string) ([]domain.Membership, error)

	WatchMembers(ctx context.Context, roomID, username string) (<-chan []domain.Member, error)

	// RequireMember returns ErrNotMember unless username belongs to the room
	RequireMember(ctx context.Context, roomID, username string) error
}
