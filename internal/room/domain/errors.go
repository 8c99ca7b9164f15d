package domain

import "chattrix-backend/pkg/apperr"

var (
	ErrNameRequired      = apperr.Validation("Room name is required")
	ErrPasswordRequired  = apperr.Validation("Room password is required")
	ErrNameLeadingDigit  = apperr.Validation("Room name must not start with a number")
	ErrNameInvalid       = apperr.Validation("Room name must not contain '/' or be a reserved name")
	ErrIdentifierMissing = apperr.Validation("Room ID or name is required")

	ErrNameTaken           = apperr.Conflict("Room name already exists. Please choose another name.")
	ErrAllocationExhausted = apperr.New(apperr.KindExhausted, "Could not generate unique room ID. Please try again.")
	ErrRoomNotFound        = apperr.NotFound("Room not found.")
	ErrWrongPassword       = apperr.Forbidden("Incorrect password.")
	ErrNotMember           = apperr.Forbidden("You are not a member of this room.")
)
