package domain

import (
	"regexp"
	"strings"
	"time"

	"chattrix-backend/pkg/docstore"
)

const (
	RoomsCollection = "chatrooms"
	NamesCollection = "chatroomNames"
	// MaxIDAttempts bounds how many random ids are tried before giving up.
	MaxIDAttempts = 10
	MinRoomID     = 100000
	RoomIDSpan    = 900000
)

var roomIDPattern = regexp.MustCompile(`^\d{6}$`)

// Room is a password protected group chat identified by a six digit id.
type Room struct {
	ID           string    `json:"roomId"`
	Name         string    `json:"name"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	Password     string    `json:"-"`
	PasswordHash string    `json:"-"`
}

// Membership is an entry of a user's joined or created room index.
type Membership struct {
	RoomID   string    `json:"roomId"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

type Member struct {
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joinedAt"`
}

// NormalizeName maps a display name to its reservation key.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsRoomID reports whether s has the shape of a room id.
func IsRoomID(s string) bool {
	return roomIDPattern.MatchString(s)
}

func RoomPath(roomID string) string {
	return docstore.Doc(RoomsCollection, roomID)
}

func NamePath(key string) string {
	return docstore.Doc(NamesCollection, key)
}

func MembersCollection(roomID string) string {
	return docstore.Collection(RoomsCollection, roomID, "members")
}

func MemberPath(roomID, username string) string {
	return docstore.Doc(MembersCollection(roomID), username)
}

func CreatedCollection(username string) string {
	return docstore.Collection("users", username, "chatroomsCreated")
}

func CreatedPath(username, roomID string) string {
	return docstore.Doc(CreatedCollection(username), roomID)
}

func JoinedCollection(username string) string {
	return docstore.Collection("users", username, "chatroomsJoined")
}

func JoinedPath(username, roomID string) string {
	return docstore.Doc(JoinedCollection(username), roomID)
}
