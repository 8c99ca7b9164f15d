package usecase

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"chattrix-backend/internal/message/domain"
	"chattrix-backend/internal/message/repository"
	"chattrix-backend/pkg/apperr"
	"chattrix-backend/pkg/config"
	"chattrix-backend/pkg/docstore"
	"chattrix-backend/pkg/events"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDenied = apperr.Forbidden("denied")

type allowList map[string]bool

func (a allowList) RequireMember(_ context.Context, roomID, username string) error {
	if !a[roomID+"/"+username] {
		return errDenied
	}
	return nil
}

func (a allowList) RequireFriend(_ context.Context, username, other string) error {
	if !a[username+"/"+other] {
		return errDenied
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

type brokenRepo struct {
	repository.MessageRepository
}

func (brokenRepo) AppendRoom(context.Context, string, *domain.Message) error {
	return errors.New("deadline exceeded")
}

func (brokenRepo) AppendDirect(context.Context, *domain.Message) error {
	return errors.New("deadline exceeded")
}

var access = allowList{"123456/alice": true, "alice/bob": true, "bob/alice": true}

func newMessages(t *testing.T, policy config.FailurePolicy) (MessageUsecase, *docstore.MemoryStore, clockwork.FakeClock, *recordingPublisher) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	store := docstore.NewMemoryStore(clock)
	pub := &recordingPublisher{}
	cfg := &config.Config{DeliveryFailurePolicy: policy}
	return NewMessageUsecase(repository.NewMessageRepository(store), access, access, pub, cfg), store, clock, pub
}

func TestSendRoomText(t *testing.T) {
	ctx := context.Background()
	uc, store, _, _ := newMessages(t, config.PolicySilent)

	_, err := uc.SendRoomText(ctx, "123456", "alice", "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyText)

	_, err = uc.SendRoomText(ctx, "123456", "mallory", "hi")
	assert.ErrorIs(t, err, errDenied)

	msg, err := uc.SendRoomText(ctx, "123456", "alice", "  hello  ")
	require.NoError(t, err)
	assert.False(t, msg.Pending)

	snap, err := store.Get(ctx, domain.RoomMessagePath("123456", msg.ID))
	require.NoError(t, err)
	require.True(t, snap.Exists)
	assert.Equal(t, "hello", snap.String("text"))
	assert.Equal(t, "alice", snap.String("senderUsername"))
	assert.False(t, snap.Time("timestamp").IsZero())
}

func TestSendRoomImage(t *testing.T) {
	ctx := context.Background()
	uc, store, _, _ := newMessages(t, config.PolicySilent)

	for _, bad := range []string{"", "ftp://host/x.png", "javascript:alert(1)", "https://"} {
		_, err := uc.SendRoomImage(ctx, "123456", "alice", bad)
		assert.ErrorIs(t, err, domain.ErrInvalidURL, bad)
	}

	msg, err := uc.SendRoomImage(ctx, "123456", "alice", "https://i.example.com/cat.png")
	require.NoError(t, err)

	snap, err := store.Get(ctx, domain.RoomMessagePath("123456", msg.ID))
	require.NoError(t, err)
	assert.Equal(t, "image", snap.String("type"))
	assert.Equal(t, "https://i.example.com/cat.png", snap.String("imageUrl"))
	assert.False(t, snap.Has("text"))
}

func TestSendDirectWritesSummaryAndNotifies(t *testing.T) {
	ctx := context.Background()
	uc, store, _, pub := newMessages(t, config.PolicySilent)

	_, err := uc.SendDirect(ctx, "alice", "carol", "hi")
	assert.ErrorIs(t, err, errDenied)

	msg, err := uc.SendDirect(ctx, "bob", "alice", "hey")
	require.NoError(t, err)

	chatID := domain.DirectChatID("bob", "alice")
	assert.Equal(t, "alice_bob", chatID)

	snap, err := store.Get(ctx, domain.DirectMessagePath(chatID, msg.ID))
	require.NoError(t, err)
	assert.Equal(t, "alice", snap.String("recipientUsername"))

	summary, err := store.Get(ctx, domain.DirectChatPath(chatID))
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "alice"}, summary.Strings("users"))
	assert.Equal(t, "hey", summary.String("lastMessage"))

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeDirectMessage, pub.events[0].Type)
	assert.Equal(t, "alice", pub.events[0].Owner)
}

func TestFailurePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("silent", func(t *testing.T) {
		pub := &recordingPublisher{}
		uc := NewMessageUsecase(brokenRepo{}, access, access, pub, &config.Config{DeliveryFailurePolicy: config.PolicySilent})

		msg, err := uc.SendRoomText(ctx, "123456", "alice", "hi")
		require.NoError(t, err)
		assert.True(t, msg.Pending)

		msg, err = uc.SendDirect(ctx, "alice", "bob", "hi")
		require.NoError(t, err)
		assert.True(t, msg.Pending)
		assert.Empty(t, pub.events)
	})

	t.Run("surface", func(t *testing.T) {
		pub := &recordingPublisher{}
		uc := NewMessageUsecase(brokenRepo{}, access, access, pub, &config.Config{DeliveryFailurePolicy: config.PolicySurface})

		_, err := uc.SendRoomText(ctx, "123456", "alice", "hi")
		assert.ErrorIs(t, err, domain.ErrSendFailed)
		assert.Equal(t, http.StatusBadGateway, apperr.HTTPStatus(err))

		require.Len(t, pub.events, 1)
		assert.Equal(t, events.TypeMessageFailed, pub.events[0].Type)
		assert.Equal(t, "alice", pub.events[0].Owner)
	})
}

func TestWatchRoomOrdersByTimestamp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	uc, _, clock, _ := newMessages(t, config.PolicySilent)

	_, err := uc.WatchRoom(ctx, "123456", "mallory")
	assert.ErrorIs(t, err, errDenied)

	for _, text := range []string{"one", "two", "three"} {
		_, err := uc.SendRoomText(ctx, "123456", "alice", text)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	ch, err := uc.WatchRoom(ctx, "123456", "alice")
	require.NoError(t, err)

	msgs := <-ch
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "two", msgs[1].Text)
	assert.Equal(t, "three", msgs[2].Text)

	_, err = uc.SendRoomText(ctx, "123456", "alice", "four")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case msgs := <-ch:
			return len(msgs) == 4 && msgs[3].Text == "four"
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestWatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	uc, _, _, _ := newMessages(t, config.PolicySilent)

	ch, err := uc.WatchDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	<-ch
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
