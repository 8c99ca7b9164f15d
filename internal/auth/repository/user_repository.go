package repository

import (
	"context"

	authdomain "chattrix-backend/internal/auth/domain"
	"chattrix-backend/pkg/docstore"
)

// userRepository implements UserRepository interface
type userRepository struct {
	store docstore.Store
}

// NewUserRepository creates a new instance of userRepository
func NewUserRepository(store docstore.Store) UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) ClaimUsername(ctx context.Context, profile *authdomain.Profile) error {
	path := authdomain.UserPath(profile.Username)
	return r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		existing, err := tx.Get(path)
		if err != nil {
			return err
		}
		if existing.Exists {
			return authdomain.ErrUsernameTaken
		}
		tx.Set(path, map[string]any{
			"username": profile.Username,
			"email":    profile.Email,
			"uid":      profile.UID,
		})
		return nil
	})
}

func (r *userRepository) FindByUID(ctx context.Context, uid string) (*authdomain.Profile, error) {
	snaps, err := r.store.Query(ctx, docstore.Query{
		Collection: authdomain.UsersCollection,
		Where:      []docstore.Filter{{Field: "uid", Value: uid}},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return decodeProfile(snaps[0]), nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*authdomain.Profile, error) {
	snap, err := r.store.Get(ctx, authdomain.UserPath(username))
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, nil
	}
	return decodeProfile(snap), nil
}

func decodeProfile(snap *docstore.Snapshot) *authdomain.Profile {
	username := snap.String("username")
	if username == "" {
		username = snap.ID
	}
	return &authdomain.Profile{
		Username: username,
		Email:    snap.String("email"),
		UID:      snap.String("uid"),
	}
}
