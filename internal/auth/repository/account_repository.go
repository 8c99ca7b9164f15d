package repository

import (
	"context"

	authdomain "chattrix-backend/internal/auth/domain"
	"chattrix-backend/pkg/docstore"
)

// accountRepository implements AccountRepository interface
type accountRepository struct {
	store docstore.Store
}

// NewAccountRepository creates a new instance of accountRepository
func NewAccountRepository(store docstore.Store) AccountRepository {
	return &accountRepository{store: store}
}

func (r *accountRepository) Create(ctx context.Context, account *authdomain.Account) error {
	path := authdomain.AccountPath(account.Email)
	return r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		existing, err := tx.Get(path)
		if err != nil {
			return err
		}
		if existing.Exists {
			return authdomain.ErrEmailTaken
		}
		tx.Set(path, map[string]any{
			"uid":          account.UID,
			"email":        authdomain.NormalizeEmail(account.Email),
			"passwordHash": account.PasswordHash,
			"displayName":  account.DisplayName,
			"tokenVersion": account.TokenVersion,
			"createdAt":    docstore.ServerTimestamp,
		})
		return nil
	})
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*authdomain.Account, error) {
	snap, err := r.store.Get(ctx, authdomain.AccountPath(email))
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, nil
	}
	return decodeAccount(snap), nil
}

func (r *accountRepository) FindByUID(ctx context.Context, uid string) (*authdomain.Account, error) {
	snaps, err := r.store.Query(ctx, docstore.Query{
		Collection: authdomain.AccountsCollection,
		Where:      []docstore.Filter{{Field: "uid", Value: uid}},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return decodeAccount(snaps[0]), nil
}

func (r *accountRepository) SetDisplayName(ctx context.Context, email, name string) error {
	return r.store.Set(ctx, authdomain.AccountPath(email), map[string]any{"displayName": name}, docstore.Merge())
}

func (r *accountRepository) BumpTokenVersion(ctx context.Context, email string) error {
	path := authdomain.AccountPath(email)
	return r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		snap, err := tx.Get(path)
		if err != nil {
			return err
		}
		if !snap.Exists {
			return nil
		}
		tx.Set(path, map[string]any{"tokenVersion": snap.Int64("tokenVersion") + 1}, docstore.Merge())
		return nil
	})
}

func decodeAccount(snap *docstore.Snapshot) *authdomain.Account {
	return &authdomain.Account{
		UID:          snap.String("uid"),
		Email:        snap.String("email"),
		PasswordHash: snap.String("passwordHash"),
		DisplayName:  snap.String("displayName"),
		TokenVersion: snap.Int64("tokenVersion"),
		CreatedAt:    snap.Time("createdAt"),
	}
}
