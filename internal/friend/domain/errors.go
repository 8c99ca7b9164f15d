package domain

import (
	"fmt"

	"chattrix-backend/pkg/apperr"
)

var (
	ErrUsernameEmpty   = apperr.Validation("Enter a username")
	ErrSelfRequest     = apperr.Validation("You cannot add yourself as a friend.")
	ErrUsernameInvalid = apperr.Validation("Username must not contain '/' or be a reserved name")
	ErrUserNotFound    = apperr.NotFound("User does not exist.")
	ErrAlreadyFriends  = apperr.Conflict("Already friends.")
	ErrRequestNotFound = apperr.NotFound("Friend request not found.")
)

// NotFriends is returned when messaging someone outside the friend list.
func NotFriends(username string) error {
	return apperr.Forbidden(fmt.Sprintf("You are not friends with %s.", username))
}
