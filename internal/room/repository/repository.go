package repository

import (
	"context"

	"chattrix-backend/internal/room/domain"
)

// AllocateFunc picks an unused room id. It runs inside the create transaction
// but checks the store outside of it.
type AllocateFunc func(ctx context.Context) (string, error)

// RoomRepository defines the data access for rooms, name reservations and memberships
type RoomRepository interface {
	// Create reserves the room's normalized name, allocates an id and writes the
	// room, its creator's membership and index entries in one transaction.
	Create(ctx context.Context, room *domain.Room, allocate AllocateFunc) error

	// Exists reports whether a room document with the id exists
	Exists(ctx context.Context, roomID string) (bool, error)

	// FindByID returns nil when the room does not exist
	FindByID(ctx context.Context, roomID string) (*domain.Room, error)

	// FindByName returns the first room whose name equals name exactly
	FindByName(ctx context.Context, name string) (*domain.Room, error)

	// FindByReservation resolves a normalized name through its reservation
	FindByReservation(ctx context.Context, key string) (*domain.Room, error)

	// AddMember writes the membership and the joined index entry together
	AddMember(ctx context.Context, room *domain.Room, username string) error

	IsMember(ctx context.Context, roomID, username string) (bool, error)

	ListJoined(ctx context.Context, username string) ([]domain.Membership, error)

	ListMembers(ctx context.Context, roomID string) ([]domain.Member, error)

	// WatchMembers streams the member list until ctx is done
	WatchMembers(ctx context.Context, roomID string) (<-chan []domain.Member, error)
}
