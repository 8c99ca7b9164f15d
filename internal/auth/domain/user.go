package domain

import (
	"strings"
	"time"

	"chattrix-backend/pkg/docstore"
)

const (
	UsersCollection    = "users"
	AccountsCollection = "accounts"
)

// Identity is who the identity provider says the caller is.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// Profile is the public user document keyed by username
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	UID      string `json:"uid"`
}

// Account is a credential record of the local identity provider
type Account struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName"`
	TokenVersion int64     `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func UserPath(username string) string {
	return docstore.Doc(UsersCollection, username)
}

func AccountPath(email string) string {
	return docstore.Doc(AccountsCollection, NormalizeEmail(email))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
