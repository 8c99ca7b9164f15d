package domain

import (
	"time"

	"chattrix-backend/pkg/apperr"
	"chattrix-backend/pkg/docstore"
)

// Scope says which kind of conversation a scheduled message targets
type Scope string

const (
	ScopeRoom   Scope = "room"
	ScopeDirect Scope = "direct"
)

var (
	ErrDateRequired = apperr.Validation("Please select a date and time.")
	ErrDateInPast   = apperr.Validation("Please select a valid future date and time.")
	ErrEmptyText    = apperr.Validation("Message cannot be empty.")
	ErrBadTarget    = apperr.Validation("Room or friend is required")
	ErrStopped      = apperr.New(apperr.KindExhausted, "Scheduling is unavailable while the server shuts down")
)

// Target is the conversation a scheduled message will be appended to.
type Target struct {
	Scope  Scope
	RoomID string
	Friend string
}

func RoomTarget(roomID string) Target {
	return Target{Scope: ScopeRoom, RoomID: roomID}
}

func DirectTarget(friend string) Target {
	return Target{Scope: ScopeDirect, Friend: friend}
}

func (t Target) Valid() bool {
	switch t.Scope {
	case ScopeRoom:
		return docstore.ValidID(t.RoomID)
	case ScopeDirect:
		return docstore.ValidID(t.Friend)
	}
	return false
}

// Field is the record field naming the conversation, used to filter a user's records.
func (t Target) Field() (string, string) {
	if t.Scope == ScopeDirect {
		return "friendUsername", t.Friend
	}
	return "roomId", t.RoomID
}

func (t Target) Collection(owner string) string {
	if t.Scope == ScopeDirect {
		return docstore.Collection("users", owner, "scheduledDirectMessages")
	}
	return docstore.Collection("users", owner, "scheduledRoomMessages")
}

func (t Target) Path(owner, id string) string {
	return t.Collection(owner) + "/" + id
}

// ScheduledMessage is a message persisted for delivery at ScheduledAt
type ScheduledMessage struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Text        string    `json:"text"`
	ScheduledAt time.Time `json:"scheduledDate"`
	Target      Target    `json:"-"`
	// Overdue marks records whose time passed while no timer was armed.
	Overdue   bool       `json:"overdue,omitempty"`
	LastError string     `json:"lastError,omitempty"`
	FailedAt  *time.Time `json:"failedAt,omitempty"`
}

// Key identifies the record across owners and scopes.
func (m *ScheduledMessage) Key() string {
	return m.Target.Path(m.Owner, m.ID)
}
