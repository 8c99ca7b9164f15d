package domain

import (
	"time"

	"chattrix-backend/pkg/docstore"
)

const usersCollection = "users"

// Request is a pending friend request stored under the recipient
type Request struct {
	From   string    `json:"from"`
	SentAt time.Time `json:"sentAt"`
}

type Friend struct {
	Username string    `json:"username"`
	AddedAt  time.Time `json:"addedAt"`
}

func UserPath(username string) string {
	return docstore.Doc(usersCollection, username)
}

func RequestsCollection(username string) string {
	return docstore.Collection(usersCollection, username, "friendRequests")
}

// RequestPath is the request from sent to to.
func RequestPath(to, from string) string {
	return docstore.Doc(usersCollection, to, "friendRequests", from)
}

func FriendsCollection(username string) string {
	return docstore.Collection(usersCollection, username, "friends")
}

func FriendPath(username, friend string) string {
	return docstore.Doc(usersCollection, username, "friends", friend)
}
