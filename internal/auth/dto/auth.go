package dto

import (
	authdomain "chattrix-backend/internal/auth/domain"
	"chattrix-backend/internal/session"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type SetUsernameRequest struct {
	Username string `json:"username"`
}

type RegisterTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"deviceInfo"`
}

// TokenResponse carries the credential a client presents as its bearer token.
// With the Firebase provider it is a custom token to exchange through the client SDK.
type TokenResponse struct {
	Token    string               `json:"token"`
	Identity *authdomain.Identity `json:"identity"`
}

type SessionResponse struct {
	Session session.Session  `json:"session"`
	Effects []session.Effect `json:"effects"`
}
