package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"chattrix-backend/internal/friend/domain"
	"chattrix-backend/internal/friend/repository"
	"chattrix-backend/pkg/apperr"
	"chattrix-backend/pkg/docstore"
	"chattrix-backend/pkg/events"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func newFriends(t *testing.T, users ...string) (FriendUsecase, *docstore.MemoryStore, *recordingPublisher) {
	t.Helper()
	store := docstore.NewMemoryStore(clockwork.NewFakeClock())
	for _, u := range users {
		require.NoError(t, store.Set(context.Background(), "users/"+u, map[string]any{"username": u}))
	}
	pub := &recordingPublisher{}
	return NewFriendUsecase(repository.NewFriendRepository(store), pub), store, pub
}

func TestSendRequestValidation(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newFriends(t, "alice", "bob")

	tests := []struct {
		name string
		to   string
		want error
	}{
		{"empty", "  ", domain.ErrUsernameEmpty},
		{"self", "alice", domain.ErrSelfRequest},
		{"unknown", "carol", domain.ErrUserNotFound},
		{"slash", "bob/friends/alice", domain.ErrUsernameInvalid},
		{"dotdot", "..", domain.ErrUsernameInvalid},
		{"reserved", "__bob__", domain.ErrUsernameInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, uc.SendRequest(ctx, "alice", tt.to), tt.want)
		})
	}
}

func TestInvalidUsernamesNeverReachStore(t *testing.T) {
	ctx := context.Background()
	uc, store, pub := newFriends(t, "alice", "bob")

	assert.ErrorIs(t, uc.Accept(ctx, "bob", "alice/x"), domain.ErrRequestNotFound)
	assert.ErrorIs(t, uc.Reject(ctx, "bob", ".."), domain.ErrRequestNotFound)
	err := uc.RequireFriend(ctx, "alice", "bob/friends")
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	snaps, err := store.Query(ctx, docstore.Query{Collection: "users/bob/friends"})
	require.NoError(t, err)
	assert.Empty(t, snaps)
	assert.Empty(t, pub.events)
}

func TestRequestAcceptFlow(t *testing.T) {
	ctx := context.Background()
	uc, store, pub := newFriends(t, "alice", "bob")

	require.NoError(t, uc.SendRequest(ctx, "alice", " bob "))

	reqs, err := uc.ListRequests(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "alice", reqs[0].From)

	require.NoError(t, uc.Accept(ctx, "bob", "alice"))

	for _, path := range []string{"users/bob/friends/alice", "users/alice/friends/bob"} {
		snap, err := store.Get(ctx, path)
		require.NoError(t, err)
		assert.True(t, snap.Exists, path)
	}

	// The handled request stays as an empty document and is no longer listed.
	snap, err := store.Get(ctx, "users/bob/friendRequests/alice")
	require.NoError(t, err)
	assert.True(t, snap.Exists)
	assert.Empty(t, snap.Data)

	reqs, err = uc.ListRequests(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, reqs)

	assert.NoError(t, uc.RequireFriend(ctx, "alice", "bob"))
	assert.ErrorIs(t, uc.SendRequest(ctx, "alice", "bob"), domain.ErrAlreadyFriends)

	require.Len(t, pub.events, 2)
	assert.Equal(t, events.TypeFriendRequest, pub.events[0].Type)
	assert.Equal(t, "bob", pub.events[0].Owner)
	assert.Equal(t, events.TypeFriendAccepted, pub.events[1].Type)
	assert.Equal(t, "alice", pub.events[1].Owner)
}

func TestAcceptRequiresPendingRequest(t *testing.T) {
	ctx := context.Background()
	uc, store, _ := newFriends(t, "alice", "bob")

	assert.ErrorIs(t, uc.Accept(ctx, "bob", "alice"), domain.ErrRequestNotFound)

	require.NoError(t, uc.SendRequest(ctx, "alice", "bob"))
	require.NoError(t, uc.Reject(ctx, "bob", "alice"))
	assert.ErrorIs(t, uc.Accept(ctx, "bob", "alice"), domain.ErrRequestNotFound)

	snap, err := store.Get(ctx, "users/alice/friends/bob")
	require.NoError(t, err)
	assert.False(t, snap.Exists)
}

func TestRequireFriendMessage(t *testing.T) {
	uc, _, _ := newFriends(t, "alice", "bob")
	err := uc.RequireFriend(context.Background(), "alice", "bob")
	require.Error(t, err)
	assert.Equal(t, "You are not friends with bob.", err.Error())
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestWatchFriends(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	uc, _, _ := newFriends(t, "alice", "bob")

	ch, err := uc.WatchFriends(ctx, "bob")
	require.NoError(t, err)

	first := <-ch
	assert.Empty(t, first)

	require.NoError(t, uc.SendRequest(ctx, "alice", "bob"))
	require.NoError(t, uc.Accept(ctx, "bob", "alice"))

	require.Eventually(t, func() bool {
		select {
		case friends := <-ch:
			return len(friends) == 1 && friends[0].Username == "alice"
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
