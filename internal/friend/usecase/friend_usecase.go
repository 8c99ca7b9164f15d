package usecase

import (
	"context"
	"strings"

	"chattrix-backend/internal/friend/domain"
	"chattrix-backend/internal/friend/repository"
	"chattrix-backend/pkg/docstore"
	"chattrix-backend/pkg/events"
	"chattrix-backend/pkg/logger"

	"github.com/rs/zerolog"
)

// friendUsecase implements FriendUsecase interface
type friendUsecase struct {
	repo      repository.FriendRepository
	publisher events.Publisher
	log       zerolog.Logger
}

// NewFriendUsecase creates a new instance of friendUsecase
func NewFriendUsecase(repo repository.FriendRepository, publisher events.Publisher) FriendUsecase {
	return &friendUsecase{
		repo:      repo,
		publisher: publisher,
		log:       logger.Component("friend"),
	}
}

func (u *friendUsecase) SendRequest(ctx context.Context, from, to string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return domain.ErrUsernameEmpty
	}
	if to == from {
		return domain.ErrSelfRequest
	}
	if !docstore.ValidID(to) {
		return domain.ErrUsernameInvalid
	}

	exists, err := u.repo.UserExists(ctx, to)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrUserNotFound
	}

	already, err := u.repo.AreFriends(ctx, from, to)
	if err != nil {
		return err
	}
	if already {
		return domain.ErrAlreadyFriends
	}

	if err := u.repo.SaveRequest(ctx, to, from); err != nil {
		return err
	}
	u.publish(ctx, events.Event{Type: events.TypeFriendRequest, Owner: to, Data: map[string]string{"from": from}})
	return nil
}

func (u *friendUsecase) Accept(ctx context.Context, username, from string) error {
	if !docstore.ValidID(from) {
		return domain.ErrRequestNotFound
	}
	if err := u.repo.Accept(ctx, username, from); err != nil {
		return err
	}
	u.log.Debug().Str("username", username).Str("friend", from).Msg("friend request accepted")
	u.publish(ctx, events.Event{Type: events.TypeFriendAccepted, Owner: from, Data: map[string]string{"by": username}})
	return nil
}

func (u *friendUsecase) Reject(ctx context.Context, username, from string) error {
	if !docstore.ValidID(from) {
		return domain.ErrRequestNotFound
	}
	return u.repo.ClearRequest(ctx, username, from)
}

func (u *friendUsecase) ListRequests(ctx context.Context, username string) ([]domain.Request, error) {
	return u.repo.ListRequests(ctx, username)
}

func (u *friendUsecase) ListFriends(ctx context.Context, username string) ([]domain.Friend, error) {
	return u.repo.ListFriends(ctx, username)
}

func (u *friendUsecase) WatchFriends(ctx context.Context, username string) (<-chan []domain.Friend, error) {
	return u.repo.WatchFriends(ctx, username)
}

func (u *friendUsecase) RequireFriend(ctx context.Context, username, other string) error {
	if !docstore.ValidID(other) {
		return domain.NotFriends(other)
	}
	ok, err := u.repo.AreFriends(ctx, username, other)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFriends(other)
	}
	return nil
}

func (u *friendUsecase) publish(ctx context.Context, evt events.Event) {
	if u.publisher == nil {
		return
	}
	if err := u.publisher.Publish(ctx, evt); err != nil {
		u.log.Warn().Err(err).Str("type", evt.Type).Msg("failed to publish event")
	}
}
