package domain

import (
	"time"

	"chattrix-backend/pkg/docstore"
)

// FCMToken represents a Firebase Cloud Messaging device token for push notifications
type FCMToken struct {
	Token      string    `json:"-"` // Don't expose token in JSON
	DeviceInfo string    `json:"deviceInfo"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func FCMTokensCollection(username string) string {
	return docstore.Collection(UsersCollection, username, "fcmTokens")
}

func FCMTokenPath(username, token string) string {
	return docstore.Doc(UsersCollection, username, "fcmTokens", token)
}
