package domain

import "chattrix-backend/pkg/apperr"

var (
	ErrUsernameRequired = apperr.Validation("Username is required")
	ErrUsernameInvalid  = apperr.Validation("Username must not contain '/' or be a reserved name")
	ErrUsernameTaken    = apperr.Conflict("Username already taken")
	ErrUsernameAlready  = apperr.Conflict("Username already set")
	ErrUsernameMissing  = apperr.Forbidden("Set a username first")

	ErrEmailTaken         = apperr.Conflict("Email already registered")
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "Invalid email or password")
	ErrInvalidToken       = apperr.New(apperr.KindUnauthorized, "Invalid or expired token")
	ErrUnsupported        = apperr.Validation("Sign in with the Firebase client SDK")

	ErrTokenRequired = apperr.Validation("Device token is required")
)
