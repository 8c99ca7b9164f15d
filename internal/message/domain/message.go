package domain

import (
	"sort"
	"strings"
	"time"

	"chattrix-backend/pkg/apperr"
	"chattrix-backend/pkg/docstore"
)

const (
	TypeText  = "text"
	TypeImage = "image"

	directChatsCollection = "directChats"
)

var (
	ErrEmptyText   = apperr.Validation("Message cannot be empty.")
	ErrInvalidURL  = apperr.Validation("Image URL must be an http or https link.")
	ErrSendFailed  = apperr.New(apperr.KindUpstream, "Message could not be sent. Please try again.")
	ErrNoRecipient = apperr.Validation("Recipient is required")
)

// Message is one entry of a room or direct conversation
type Message struct {
	ID                string    `json:"id"`
	SenderUsername    string    `json:"senderUsername"`
	RecipientUsername string    `json:"recipientUsername,omitempty"`
	Type              string    `json:"type,omitempty"`
	Text              string    `json:"text,omitempty"`
	ImageURL          string    `json:"imageUrl,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	// Pending is set when the write failed under the silent failure policy.
	Pending bool `json:"pending,omitempty"`
}

func RoomMessages(roomID string) string {
	return docstore.Collection("chatrooms", roomID, "messages")
}

func RoomMessagePath(roomID, id string) string {
	return docstore.Doc("chatrooms", roomID, "messages", id)
}

// DirectChatID is the same for both participants: the sorted usernames joined by "_".
func DirectChatID(a, b string) string {
	users := []string{a, b}
	sort.Strings(users)
	return strings.Join(users, "_")
}

func DirectChatPath(chatID string) string {
	return docstore.Doc(directChatsCollection, chatID)
}

func DirectMessages(chatID string) string {
	return docstore.Collection(directChatsCollection, chatID, "messages")
}

func DirectMessagePath(chatID, id string) string {
	return docstore.Doc(directChatsCollection, chatID, "messages", id)
}
