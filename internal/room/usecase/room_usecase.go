package usecase

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode"

	"chattrix-backend/internal/room/domain"
	"chattrix-backend/internal/room/repository"
	"chattrix-backend/pkg/config"
	"chattrix-backend/pkg/docstore"
	"chattrix-backend/pkg/events"
	"chattrix-backend/pkg/logger"
	"chattrix-backend/pkg/metrics"
	"chattrix-backend/pkg/password"

	"github.com/rs/zerolog"
)

// roomUsecase implements RoomUsecase interface
type roomUsecase struct {
	repo      repository.RoomRepository
	publisher events.Publisher
	hashed    bool
	randID    func() int
	log       zerolog.Logger
}

type Option func(*roomUsecase)

// WithRandomSource replaces the generator of candidate ids. fn returns an
// offset in [0, domain.RoomIDSpan).
func WithRandomSource(fn func() int) Option {
	return func(u *roomUsecase) { u.randID = fn }
}

// NewRoomUsecase creates a new instance of roomUsecase
func NewRoomUsecase(repo repository.RoomRepository, publisher events.Publisher, cfg *config.Config, opts ...Option) RoomUsecase {
	u := &roomUsecase{
		repo:      repo,
		publisher: publisher,
		hashed:    cfg.RoomPasswordMode == config.PasswordBcrypt,
		randID:    func() int { return rand.IntN(domain.RoomIDSpan) },
		log:       logger.Component("room"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *roomUsecase) CreateRoom(ctx context.Context, name, pass, owner string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if strings.TrimSpace(pass) == "" {
		return nil, domain.ErrPasswordRequired
	}
	if unicode.IsDigit([]rune(name)[0]) {
		return nil, domain.ErrNameLeadingDigit
	}
	if !docstore.ValidID(domain.NormalizeName(name)) {
		return nil, domain.ErrNameInvalid
	}

	room := &domain.Room{Name: name, CreatedBy: owner}
	if u.hashed {
		hash, err := password.Hash(pass)
		if err != nil {
			return nil, err
		}
		room.PasswordHash = hash
	} else {
		room.Password = pass
	}

	if err := u.repo.Create(ctx, room, u.allocateID); err != nil {
		return nil, err
	}

	metrics.RoomsCreatedTotal.Inc()
	u.log.Info().Str("room_id", room.ID).Str("owner", owner).Msg("room created")
	u.publish(ctx, events.Event{
		Type:  events.TypeRoomCreated,
		Owner: owner,
		Data:  map[string]string{"roomId": room.ID, "name": room.Name},
	})
	return room, nil
}

// allocateID tries up to MaxIDAttempts random ids and returns the first free one.
func (u *roomUsecase) allocateID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < domain.MaxIDAttempts; attempt++ {
		id := strconv.Itoa(domain.MinRoomID + u.randID())
		exists, err := u.repo.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
		metrics.RoomIDCollisionsTotal.Inc()
	}
	u.log.Warn().Int("attempts", domain.MaxIDAttempts).Msg("room id space exhausted")
	return "", domain.ErrAllocationExhausted
}

func (u *roomUsecase) JoinRoom(ctx context.Context, identifier, pass, username string) (*domain.Room, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, domain.ErrIdentifierMissing
	}

	room, err := u.resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	if !u.passwordMatches(room, pass) {
		return nil, domain.ErrWrongPassword
	}

	if err := u.repo.AddMember(ctx, room, username); err != nil {
		return nil, err
	}
	u.log.Debug().Str("room_id", room.ID).Str("username", username).Msg("joined room")
	return room, nil
}

// resolve treats six digit identifiers as ids and everything else as a name.
func (u *roomUsecase) resolve(ctx context.Context, identifier string) (*domain.Room, error) {
	if domain.IsRoomID(identifier) {
		return u.repo.FindByID(ctx, identifier)
	}
	// no room can be stored under a name that is not a valid path segment
	if !docstore.ValidID(domain.NormalizeName(identifier)) {
		return nil, nil
	}
	room, err := u.repo.FindByName(ctx, identifier)
	if err != nil || room != nil {
		return room, err
	}
	return u.repo.FindByReservation(ctx, domain.NormalizeName(identifier))
}

// passwordMatches accepts hashed rooms and rooms stored before hashing was enabled.
func (u *roomUsecase) passwordMatches(room *domain.Room, pass string) bool {
	if room.PasswordHash != "" {
		return password.Check(pass, room.PasswordHash)
	}
	return password.EqualPlain(room.Password, pass)
}

func (u *roomUsecase) GetRoom(ctx context.Context, roomID, username string) (*domain.Room, error) {
	room, err := u.repo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	if err := u.RequireMember(ctx, roomID, username); err != nil {
		return nil, err
	}
	return room, nil
}

func (u *roomUsecase) ListJoined(ctx context.Context, username string) ([]domain.Membership, error) {
	return u.repo.ListJoined(ctx, username)
}

func (u *roomUsecase) WatchMembers(ctx context.Context, roomID, username string) (<-chan []domain.Member, error) {
	if err := u.RequireMember(ctx, roomID, username); err != nil {
		return nil, err
	}
	return u.repo.WatchMembers(ctx, roomID)
}

func (u *roomUsecase) RequireMember(ctx context.Context, roomID, username string) error {
	ok, err := u.repo.IsMember(ctx, roomID, username)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotMember
	}
	return nil
}

func (u *roomUsecase) publish(ctx context.Context, evt events.Event) {
	if u.publisher == nil {
		return
	}
	if err := u.publisher.Publish(ctx, evt); err != nil {
		u.log.Warn().Err(err).Str("type", evt.Type).Msg("failed to publish event")
	}
}
