package usecase

import (
	"context"

	authdomain "chattrix-backend/internal/auth/domain"
	authdto "chattrix-backend/internal/auth/dto"
)

// AuthUsecase defines the interface for identity, profile and device token logic
type AuthUsecase interface {
	Register(ctx context.Context, req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	Login(ctx context.Context, req *authdto.LoginRequest) (*authdto.TokenResponse, error)

	// Authenticate verifies a bearer token and resolves the caller's username, which may be empty
	Authenticate(ctx context.Context, token string) (*authdomain.Identity, string, error)

	// Session reports where the identity sits in the sign-in flow
	Session(ctx context.Context, identity *authdomain.Identity) (*authdto.SessionResponse, error)

	// SetUsername claims a unique username for an identity that has none yet
	SetUsername(ctx context.Context, identity *authdomain.Identity, username string) (*authdto.SessionResponse, error)

	// Logout revokes the identity's tokens. abandon is true when leaving the username prompt.
	Logout(ctx context.Context, identity *authdomain.Identity, abandon bool) (*authdto.SessionResponse, error)

	// UserExists reports whether a profile is stored under username
	UserExists(ctx context.Context, username string) (bool, error)

	RegisterDeviceToken(ctx context.Context, username, token, deviceInfo string) error
	RemoveDeviceToken(ctx context.Context, username, token string) error
}
