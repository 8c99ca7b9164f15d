package repository

import (
	"context"

	authdomain "chattrix-backend/internal/auth/domain"
	"chattrix-backend/pkg/docstore"
)

// fcmTokenRepository implements FCMTokenRepository interface
type fcmTokenRepository struct {
	store docstore.Store
}

// NewFCMTokenRepository creates a new instance of fcmTokenRepository
func NewFCMTokenRepository(store docstore.Store) FCMTokenRepository {
	return &fcmTokenRepository{store: store}
}

// SaveToken saves or updates an FCM token for a user. The token is the document id, so re-registering overwrites.
func (r *fcmTokenRepository) SaveToken(ctx context.Context, username, token, deviceInfo string) error {
	return r.store.Set(ctx, authdomain.FCMTokenPath(username, token), map[string]any{
		"token":      token,
		"deviceInfo": deviceInfo,
		"updatedAt":  docstore.ServerTimestamp,
	})
}

// GetTokensByUsername returns all FCM tokens for a user
func (r *fcmTokenRepository) GetTokensByUsername(ctx context.Context, username string) ([]authdomain.FCMToken, error) {
	snaps, err := r.store.Query(ctx, docstore.Query{Collection: authdomain.FCMTokensCollection(username)})
	if err != nil {
		return nil, err
	}
	tokens := make([]authdomain.FCMToken, 0, len(snaps))
	for _, s := range snaps {
		token := s.String("token")
		if token == "" {
			token = s.ID
		}
		tokens = append(tokens, authdomain.FCMToken{
			Token:      token,
			DeviceInfo: s.String("deviceInfo"),
			UpdatedAt:  s.Time("updatedAt"),
		})
	}
	return tokens, nil
}

// DeleteToken removes a specific FCM token
func (r *fcmTokenRepository) DeleteToken(ctx context.Context, username, token string) error {
	return r.store.Delete(ctx, authdomain.FCMTokenPath(username, token))
}
