package provider

import (
	"context"
	"fmt"

	authdomain "chattrix-backend/internal/auth/domain"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
)

type firebaseProvider struct {
	client *auth.Client
}

// NewFirebaseProvider verifies Firebase ID tokens. Password sign-in stays in the client SDK.
func NewFirebaseProvider(ctx context.Context, app *firebase.App) (IdentityProvider, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth client: %w", err)
	}
	return &firebaseProvider{client: client}, nil
}

func (p *firebaseProvider) Verify(ctx context.Context, token string) (*authdomain.Identity, error) {
	tok, err := p.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return nil, authdomain.ErrInvalidToken
	}
	email, _ := tok.Claims["email"].(string)
	name, _ := tok.Claims["name"].(string)
	return &authdomain.Identity{UID: tok.UID, Email: email, DisplayName: name}, nil
}

func (p *firebaseProvider) Register(ctx context.Context, email, password string) (*authdomain.Identity, string, error) {
	params := (&auth.UserToCreate{}).Email(authdomain.NormalizeEmail(email)).Password(password)
	user, err := p.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return nil, "", authdomain.ErrEmailTaken
		}
		return nil, "", fmt.Errorf("failed to create firebase user: %w", err)
	}

	token, err := p.client.CustomToken(ctx, user.UID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to mint custom token: %w", err)
	}
	return &authdomain.Identity{UID: user.UID, Email: user.Email}, token, nil
}

func (p *firebaseProvider) SignIn(ctx context.Context, email, password string) (*authdomain.Identity, string, error) {
	return nil, "", authdomain.ErrUnsupported
}

func (p *firebaseProvider) UpdateDisplayName(ctx context.Context, uid, name string) error {
	if _, err := p.client.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).DisplayName(name)); err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	return nil
}

func (p *firebaseProvider) SignOut(ctx context.Context, uid string) error {
	if err := p.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return nil
}
