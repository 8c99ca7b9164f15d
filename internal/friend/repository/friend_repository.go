package repository

import (
	"context"

	"chattrix-backend/internal/friend/domain"
	"chattrix-backend/pkg/docstore"
)

// friendRepository implements FriendRepository on a document store
type friendRepository struct {
	store docstore.Store
}

// NewFriendRepository creates a new instance of friendRepository
func NewFriendRepository(store docstore.Store) FriendRepository {
	return &friendRepository{store: store}
}

func (r *friendRepository) UserExists(ctx context.Context, username string) (bool, error) {
	snap, err := r.store.Get(ctx, domain.UserPath(username))
	if err != nil {
		return false, err
	}
	return snap.Exists, nil
}

func (r *friendRepository) AreFriends(ctx context.Context, username, other string) (bool, error) {
	snap, err := r.store.Get(ctx, domain.FriendPath(username, other))
	if err != nil {
		return false, err
	}
	return snap.Exists, nil
}

func (r *friendRepository) SaveRequest(ctx context.Context, to, from string) error {
	return r.store.Set(ctx, domain.RequestPath(to, from), map[string]any{
		"from":   from,
		"sentAt": docstore.ServerTimestamp,
	})
}

func (r *friendRepository) Accept(ctx context.Context, username, from string) error {
	requestPath := domain.RequestPath(username, from)
	return r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		req, err := tx.Get(requestPath)
		if err != nil {
			return err
		}
		if !req.Exists || req.String("from") == "" {
			return domain.ErrRequestNotFound
		}
		tx.Set(domain.FriendPath(username, from), map[string]any{
			"username": from,
			"addedAt":  docstore.ServerTimestamp,
		})
		tx.Set(domain.FriendPath(from, username), map[string]any{
			"username": username,
			"addedAt":  docstore.ServerTimestamp,
		})
		tx.Set(requestPath, map[string]any{})
		return nil
	})
}

func (r *friendRepository) ClearRequest(ctx context.Context, username, from string) error {
	return r.store.Set(ctx, domain.RequestPath(username, from), map[string]any{})
}

func (r *friendRepository) ListRequests(ctx context.Context, username string) ([]domain.Request, error) {
	snaps, err := r.store.Query(ctx, docstore.Query{Collection: domain.RequestsCollection(username)})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Request, 0, len(snaps))
	for _, s := range snaps {
		// Handled requests are left behind as empty documents.
		if s.String("from") == "" {
			continue
		}
		out = append(out, domain.Request{From: s.String("from"), SentAt: s.Time("sentAt")})
	}
	return out, nil
}

func (r *friendRepository) ListFriends(ctx context.Context, username string) ([]domain.Friend, error) {
	snaps, err := r.store.Query(ctx, docstore.Query{Collection: domain.FriendsCollection(username)})
	if err != nil {
		return nil, err
	}
	return decodeFriends(snaps), nil
}

func (r *friendRepository) WatchFriends(ctx context.Context, username string) (<-chan []domain.Friend, error) {
	in, err := r.store.Watch(ctx, docstore.Query{Collection: domain.FriendsCollection(username)})
	if err != nil {
		return nil, err
	}
	out := make(chan []domain.Friend)
	go func() {
		defer close(out)
		for snaps := range in {
			select {
			case out <- decodeFriends(snaps):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func decodeFriends(snaps []*docstore.Snapshot) []domain.Friend {
	out := make([]domain.Friend, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, domain.Friend{Username: s.ID, AddedAt: s.Time("addedAt")})
	}
	return out
}
