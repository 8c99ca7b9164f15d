package provider

import (
	"context"
	"errors"
	"time"

	authdomain "chattrix-backend/internal/auth/domain"
	"chattrix-backend/internal/auth/repository"
	"chattrix-backend/pkg/config"
	"chattrix-backend/pkg/password"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type localProvider struct {
	accounts repository.AccountRepository
	secret   []byte
	expiry   time.Duration
	clock    clockwork.Clock
}

// NewLocalProvider issues HS256 access tokens for accounts kept in the document store
func NewLocalProvider(accounts repository.AccountRepository, cfg *config.Config, clock clockwork.Clock) IdentityProvider {
	return &localProvider{
		accounts: accounts,
		secret:   []byte(cfg.JWTSecret),
		expiry:   cfg.JWTAccessExpiry,
		clock:    clock,
	}
}

func (p *localProvider) Register(ctx context.Context, email, pass string) (*authdomain.Identity, string, error) {
	hash, err := password.Hash(pass)
	if err != nil {
		return nil, "", err
	}

	account := &authdomain.Account{
		UID:          uuid.New().String(),
		Email:        authdomain.NormalizeEmail(email),
		PasswordHash: hash,
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		return nil, "", err
	}
	return p.issue(account)
}

func (p *localProvider) SignIn(ctx context.Context, email, pass string) (*authdomain.Identity, string, error) {
	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if account == nil || !password.Check(pass, account.PasswordHash) {
		return nil, "", authdomain.ErrInvalidCredentials
	}
	return p.issue(account)
}

func (p *localProvider) Verify(ctx context.Context, tokenString string) (*authdomain.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.clock.Now))
	if err != nil || !token.Valid {
		return nil, authdomain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, authdomain.ErrInvalidToken
	}
	uid, _ := claims["uid"].(string)
	email, _ := claims["email"].(string)
	version, _ := claims["ver"].(float64)

	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil || account.UID != uid || account.TokenVersion != int64(version) {
		return nil, authdomain.ErrInvalidToken
	}
	return &authdomain.Identity{UID: account.UID, Email: account.Email, DisplayName: account.DisplayName}, nil
}

func (p *localProvider) UpdateDisplayName(ctx context.Context, uid, name string) error {
	account, err := p.findByUID(ctx, uid)
	if err != nil {
		return err
	}
	return p.accounts.SetDisplayName(ctx, account.Email, name)
}

func (p *localProvider) SignOut(ctx context.Context, uid string) error {
	account, err := p.findByUID(ctx, uid)
	if err != nil {
		return err
	}
	return p.accounts.BumpTokenVersion(ctx, account.Email)
}

func (p *localProvider) findByUID(ctx context.Context, uid string) (*authdomain.Account, error) {
	account, err := p.accounts.FindByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errors.New("account not found")
	}
	return account, nil
}

func (p *localProvider) issue(account *authdomain.Account) (*authdomain.Identity, string, error) {
	now := p.clock.Now()
	claims := jwt.MapClaims{
		"uid":   account.UID,
		"email": account.Email,
		"ver":   account.TokenVersion,
		"exp":   now.Add(p.expiry).Unix(),
		"iat":   now.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, "", err
	}
	return &authdomain.Identity{UID: account.UID, Email: account.Email, DisplayName: account.DisplayName}, token, nil
}
