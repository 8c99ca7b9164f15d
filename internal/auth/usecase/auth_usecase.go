package usecase

import (
	"context"
	"strings"

	authdomain "chattrix-backend/internal/auth/domain"
	authdto "chattrix-backend/internal/auth/dto"
	"chattrix-backend/internal/auth/provider"
	"chattrix-backend/internal/auth/repository"
	"chattrix-backend/internal/session"
	"chattrix-backend/pkg/docstore"
	"chattrix-backend/pkg/logger"

	"github.com/rs/zerolog"
)

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	provider  provider.IdentityProvider
	userRepo  repository.UserRepository
	tokenRepo repository.FCMTokenRepository
	log       zerolog.Logger
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(idp provider.IdentityProvider, userRepo repository.UserRepository, tokenRepo repository.FCMTokenRepository) AuthUsecase {
	return &authUsecase{
		provider:  idp,
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		log:       logger.Component("auth"),
	}
}

func (u *authUsecase) Register(ctx context.Context, req *authdto.RegisterRequest) (*authdto.TokenResponse, error) {
	identity, token, err := u.provider.Register(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("uid", identity.UID).Msg("account registered")
	return &authdto.TokenResponse{Token: token, Identity: identity}, nil
}

func (u *authUsecase) Login(ctx context.Context, req *authdto.LoginRequest) (*authdto.TokenResponse, error) {
	identity, token, err := u.provider.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return &authdto.TokenResponse{Token: token, Identity: identity}, nil
}

func (u *authUsecase) Authenticate(ctx context.Context, token string) (*authdomain.Identity, string, error) {
	identity, err := u.provider.Verify(ctx, token)
	if err != nil {
		return nil, "", err
	}
	profile, err := u.userRepo.FindByUID(ctx, identity.UID)
	if err != nil {
		return nil, "", err
	}
	if profile == nil {
		return identity, "", nil
	}
	return identity, profile.Username, nil
}

func (u *authUsecase) Session(ctx context.Context, identity *authdomain.Identity) (*authdto.SessionResponse, error) {
	profile, err := u.userRepo.FindByUID(ctx, identity.UID)
	if err != nil {
		return nil, err
	}
	event := session.AuthChanged{UID: identity.UID}
	if profile != nil {
		event.Username = profile.Username
	}
	return respond(session.Reduce(session.Initial(), event)), nil
}

func (u *authUsecase) SetUsername(ctx context.Context, identity *authdomain.Identity, username string) (*authdto.SessionResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, authdomain.ErrUsernameRequired
	}
	if !docstore.ValidID(username) {
		return nil, authdomain.ErrUsernameInvalid
	}

	current, err := u.userRepo.FindByUID(ctx, identity.UID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, authdomain.ErrUsernameAlready
	}

	profile := &authdomain.Profile{Username: username, Email: identity.Email, UID: identity.UID}
	if err := u.userRepo.ClaimUsername(ctx, profile); err != nil {
		return nil, err
	}
	if err := u.provider.UpdateDisplayName(ctx, identity.UID, username); err != nil {
		// display name is best effort
		u.log.Warn().Err(err).Str("uid", identity.UID).Msg("failed to update display name")
	}

	u.log.Info().Str("uid", identity.UID).Str("username", username).Msg("username set")
	prompt := session.Session{State: session.StateNeedsUsername, UID: identity.UID}
	return respond(session.Reduce(prompt, session.UsernameSet{Username: username})), nil
}

func (u *authUsecase) Logout(ctx context.Context, identity *authdomain.Identity, abandon bool) (*authdto.SessionResponse, error) {
	current, err := u.Session(ctx, identity)
	if err != nil {
		return nil, err
	}

	var event session.Event = session.SignedOut{}
	if abandon {
		event = session.BackToLogin{}
	}
	next, effects := session.Reduce(current.Session, event)
	for _, effect := range effects {
		if effect == session.EffectRevokeSession {
			if err := u.provider.SignOut(ctx, identity.UID); err != nil {
				return nil, err
			}
		}
	}
	return respond(next, effects), nil
}

func (u *authUsecase) UserExists(ctx context.Context, username string) (bool, error) {
	profile, err := u.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return profile != nil, nil
}

func (u *authUsecase) RegisterDeviceToken(ctx context.Context, username, token, deviceInfo string) error {
	token = strings.TrimSpace(token)
	if token == "" || strings.Contains(token, "/") {
		return authdomain.ErrTokenRequired
	}
	return u.tokenRepo.SaveToken(ctx, username, token, deviceInfo)
}

func (u *authUsecase) RemoveDeviceToken(ctx context.Context, username, token string) error {
	if token == "" || strings.Contains(token, "/") {
		return authdomain.ErrTokenRequired
	}
	return u.tokenRepo.DeleteToken(ctx, username, token)
}

func respond(s session.Session, effects []session.Effect) *authdto.SessionResponse {
	if effects == nil {
		effects = []session.Effect{}
	}
	return &authdto.SessionResponse{Session: s, Effects: effects}
}
