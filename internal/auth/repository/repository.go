package repository

import (
	"context"

	authdomain "chattrix-backend/internal/auth/domain"
)

// UserRepository defines the interface for profile data access
type UserRepository interface {
	// ClaimUsername writes users/{username} unless another profile already holds it
	ClaimUsername(ctx context.Context, profile *authdomain.Profile) error

	// FindByUID returns the profile owned by uid, or nil
	FindByUID(ctx context.Context, uid string) (*authdomain.Profile, error)

	// FindByUsername returns the profile stored under username, or nil
	FindByUsername(ctx context.Context, username string) (*authdomain.Profile, error)
}

// AccountRepository stores credentials for the local identity provider
type AccountRepository interface {
	// Create inserts a new account and fails with ErrEmailTaken when the email is registered
	Create(ctx context.Context, account *authdomain.Account) error

	FindByEmail(ctx context.Context, email string) (*authdomain.Account, error)
	FindByUID(ctx context.Context, uid string) (*authdomain.Account, error)

	SetDisplayName(ctx context.Context, email, name string) error

	// BumpTokenVersion invalidates every token issued for the account so far
	BumpTokenVersion(ctx context.Context, email string) error
}

// FCMTokenRepository defines the interface for FCM token operations
type FCMTokenRepository interface {
	SaveToken(ctx context.Context, username, token, deviceInfo string) error
	GetTokensByUsername(ctx context.Context, username string) ([]authdomain.FCMToken, error)
	DeleteToken(ctx context.Context, username, token string) error
}
