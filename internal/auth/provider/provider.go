// Package provider verifies bearer tokens and manages credentials, either
// through Firebase Authentication or a self-hosted account store.
package provider

import (
	"context"

	authdomain "chattrix-backend/internal/auth/domain"
)

// IdentityProvider defines the interface for identity operations
type IdentityProvider interface {
	// Verify checks a bearer token and returns the identity it was issued to
	Verify(ctx context.Context, token string) (*authdomain.Identity, error)

	// Register creates a credential and returns a token the client can use to sign in
	Register(ctx context.Context, email, password string) (*authdomain.Identity, string, error)

	SignIn(ctx context.Context, email, password string) (*authdomain.Identity, string, error)

	UpdateDisplayName(ctx context.Context, uid, name string) error

	// SignOut revokes every token issued to uid
	SignOut(ctx context.Context, uid string) error
}
