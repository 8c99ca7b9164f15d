package repository

import (
	"context"
	"fmt"

	"chattrix-backend/internal/room/domain"
	"chattrix-backend/pkg/docstore"
)

// roomRepository implements RoomRepository on a document store
type roomRepository struct {
	store docstore.Store
}

// NewRoomRepository creates a new instance of roomRepository
func NewRoomRepository(store docstore.Store) RoomRepository {
	return &roomRepository{store: store}
}

func (r *roomRepository) Create(ctx context.Context, room *domain.Room, allocate AllocateFunc) error {
	key := domain.NormalizeName(room.Name)
	namePath := domain.NamePath(key)

	return r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		reservation, err := tx.Get(namePath)
		if err != nil {
			return err
		}
		if reservation.Exists {
			return domain.ErrNameTaken
		}
		tx.Set(namePath, map[string]any{"roomId": nil})

		id, err := allocate(ctx)
		if err != nil {
			return err
		}

		// Read the chosen id inside the transaction so two creators racing for
		// the same id cannot both commit.
		existing, err := tx.Get(domain.RoomPath(id))
		if err != nil {
			return err
		}
		if existing.Exists {
			return fmt.Errorf("room id %s taken concurrently: %w", id, docstore.ErrConflict)
		}
		room.ID = id

		tx.Set(domain.RoomPath(id), encodeRoom(room))
		tx.Set(namePath, map[string]any{"roomId": id})
		tx.Set(domain.CreatedPath(room.CreatedBy, id), map[string]any{
			"roomId":    id,
			"name":      room.Name,
			"createdAt": docstore.ServerTimestamp,
		})
		tx.Set(domain.JoinedPath(room.CreatedBy, id), map[string]any{
			"roomId":   id,
			"name":     room.Name,
			"joinedAt": docstore.ServerTimestamp,
		})
		tx.Set(domain.MemberPath(id, room.CreatedBy), map[string]any{
			"username": room.CreatedBy,
			"joinedAt": docstore.ServerTimestamp,
		})
		return nil
	})
}

func (r *roomRepository) Exists(ctx context.Context, roomID string) (bool, error) {
	snap, err := r.store.Get(ctx, domain.RoomPath(roomID))
	if err != nil {
		return false, err
	}
	return snap.Exists, nil
}

func (r *roomRepository) FindByID(ctx context.Context, roomID string) (*domain.Room, error) {
	snap, err := r.store.Get(ctx, domain.RoomPath(roomID))
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, nil
	}
	return decodeRoom(snap), nil
}

func (r *roomRepository) FindByName(ctx context.Context, name string) (*domain.Room, error) {
	snaps, err := r.store.Query(ctx, docstore.Query{
		Collection: domain.RoomsCollection,
		Where:      []docstore.Filter{{Field: "name", Value: name}},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return decodeRoom(snaps[0]), nil
}

func (r *roomRepository) FindByReservation(ctx context.Context, key string) (*domain.Room, error) {
	snap, err := r.store.Get(ctx, domain.NamePath(key))
	if err != nil {
		return nil, err
	}
	roomID := snap.String("roomId")
	if !snap.Exists || roomID == "" {
		return nil, nil
	}
	return r.FindByID(ctx, roomID)
}

func (r *roomRepository) AddMember(ctx context.Context, room *domain.Room, username string) error {
	return r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		tx.Set(domain.JoinedPath(username, room.ID), map[string]any{
			"roomId":   room.ID,
			"name":     room.Name,
			"joinedAt": docstore.ServerTimestamp,
		})
		tx.Set(domain.MemberPath(room.ID, username), map[string]any{
			"username": username,
			"joinedAt": docstore.ServerTimestamp,
		})
		return nil
	})
}

func (r *roomRepository) IsMember(ctx context.Context, roomID, username string) (bool, error) {
	snap, err := r.store.Get(ctx, domain.MemberPath(roomID, username))
	if err != nil {
		return false, err
	}
	return snap.Exists, nil
}

func (r *roomRepository) ListJoined(ctx context.Context, username string) ([]domain.Membership, error) {
	snaps, err := r.store.Query(ctx, docstore.Query{
		Collection: domain.JoinedCollection(username),
		OrderBy:    "joinedAt",
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Membership, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, domain.Membership{
			RoomID:   s.ID,
			Name:     s.String("name"),
			JoinedAt: s.Time("joinedAt"),
		})
	}
	return out, nil
}

func (r *roomRepository) membersQuery(roomID string) docstore.Query {
	return docstore.Query{Collection: domain.MembersCollection(roomID), OrderBy: "joinedAt"}
}

func (r *roomRepository) ListMembers(ctx context.Context, roomID string) ([]domain.Member, error) {
	snaps, err := r.store.Query(ctx, r.membersQuery(roomID))
	if err != nil {
		return nil, err
	}
	return decodeMembers(snaps), nil
}

func (r *roomRepository) WatchMembers(ctx context.Context, roomID string) (<-chan []domain.Member, error) {
	in, err := r.store.Watch(ctx, r.membersQuery(roomID))
	if err != nil {
		return nil, err
	}
	out := make(chan []domain.Member)
	go func() {
		defer close(out)
		for snaps := range in {
			select {
			case out <- decodeMembers(snaps):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func encodeRoom(room *domain.Room) map[string]any {
	data := map[string]any{
		"roomId":    room.ID,
		"name":      room.Name,
		"createdBy": map[string]any{"username": room.CreatedBy},
		"createdAt": docstore.ServerTimestamp,
	}
	if room.PasswordHash != "" {
		data["passwordHash"] = room.PasswordHash
	} else {
		data["password"] = room.Password
	}
	return data
}

func decodeRoom(snap *docstore.Snapshot) *domain.Room {
	createdBy, _ := snap.Map("createdBy")["username"].(string)
	return &domain.Room{
		ID:           snap.ID,
		Name:         snap.String("name"),
		CreatedBy:    createdBy,
		CreatedAt:    snap.Time("createdAt"),
		Password:     snap.String("password"),
		PasswordHash: snap.String("passwordHash"),
	}
}

func decodeMembers(snaps []*docstore.Snapshot) []domain.Member {
	out := make([]domain.Member, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, domain.Member{Username: s.ID, JoinedAt: s.Time("joinedAt")})
	}
	return out
}
