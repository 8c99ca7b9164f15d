package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*MemoryStore, clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewMemoryStore(clock), clock
}

func TestMemoryGetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	snap, err := store.Get(context.Background(), "chatrooms/123456")
	require.NoError(t, err)
	assert.False(t, snap.Exists)
	assert.Equal(t, "123456", snap.ID)
}

func TestMemoryInvalidPath(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "chatrooms")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = store.Query(context.Background(), Query{Collection: "chatrooms/123456"})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestValidID(t *testing.T) {
	for _, id := range []string{"alice", "123456", "lobby room", "a.b", "_x_", "__"} {
		assert.True(t, ValidID(id), id)
	}
	for _, id := range []string{"", ".", "..", "a/b", "/", "__x__", "____"} {
		assert.False(t, ValidID(id), id)
	}
}

func TestMemorySetMergeAndServerTimestamp(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "directChats/alice_bob", map[string]any{
		"users":         []string{"alice", "bob"},
		"lastMessage":   "hi",
		"lastTimestamp": ServerTimestamp,
	}))
	require.NoError(t, store.Set(ctx, "directChats/alice_bob", map[string]any{"lastMessage": "yo"}, Merge()))

	snap, err := store.Get(ctx, "directChats/alice_bob")
	require.NoError(t, err)
	assert.Equal(t, "yo", snap.String("lastMessage"))
	assert.Equal(t, []string{"alice", "bob"}, snap.Strings("users"))
	assert.True(t, clock.Now().Equal(snap.Time("lastTimestamp")))

	require.NoError(t, store.Set(ctx, "directChats/alice_bob", map[string]any{"lastMessage": "replaced"}))
	snap, err = store.Get(ctx, "directChats/alice_bob")
	require.NoError(t, err)
	assert.False(t, snap.Has("users"))
}

func TestMemorySnapshotIsCopy(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	data := map[string]any{"name": "general"}
	require.NoError(t, store.Set(ctx, "chatrooms/123456", data))
	data["name"] = "mutated"

	snap, err := store.Get(ctx, "chatrooms/123456")
	require.NoError(t, err)
	snap.Data["name"] = "also mutated"

	again, err := store.Get(ctx, "chatrooms/123456")
	require.NoError(t, err)
	assert.Equal(t, "general", again.String("name"))
}

func TestMemoryQuery(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "chatrooms/111111", map[string]any{"name": "general", "createdAt": int64(3)}))
	require.NoError(t, store.Set(ctx, "chatrooms/222222", map[string]any{"name": "random", "createdAt": int64(1)}))
	require.NoError(t, store.Set(ctx, "chatrooms/333333", map[string]any{"name": "general", "createdAt": int64(2)}))
	require.NoError(t, store.Set(ctx, "chatrooms/111111/members/alice", map[string]any{"username": "alice"}))

	snaps, err := store.Query(ctx, Query{Collection: "chatrooms", Where: []Filter{{Field: "name", Value: "general"}}, OrderBy: "createdAt"})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "333333", snaps[0].ID)
	assert.Equal(t, "111111", snaps[1].ID)

	snaps, err = store.Query(ctx, Query{Collection: "chatrooms", OrderBy: "createdAt", Descending: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "111111", snaps[0].ID)

	snaps, err = store.Query(ctx, Query{Collection: "chatrooms/111111/members"})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "alice", snaps[0].ID)
}

func TestMemoryDeleteIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "users/alice", map[string]any{"username": "alice"}))
	require.NoError(t, store.Delete(ctx, "users/alice"))
	require.NoError(t, store.Delete(ctx, "users/alice"))

	snap, err := store.Get(ctx, "users/alice")
	require.NoError(t, err)
	assert.False(t, snap.Exists)
}

func TestMemoryTransactionCommitsAtomically(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		tx.Set("a/1", map[string]any{"v": 1})
		tx.Set("a/2", map[string]any{"v": 2})
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		tx.Set("a/3", map[string]any{"v": 3})
		tx.Delete("a/1")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	snaps, err := store.Query(ctx, Query{Collection: "a"})
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestMemoryTransactionCoalescesWrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		tx.Set("chatroomNames/general", map[string]any{"roomId": nil})
		tx.Set("chatroomNames/general", map[string]any{"roomId": "123456"})
		tx.Set("chatroomNames/general", map[string]any{"extra": true}, Merge())
		return nil
	})
	require.NoError(t, err)

	snap, err := store.Get(ctx, "chatroomNames/general")
	require.NoError(t, err)
	assert.Equal(t, "123456", snap.String("roomId"))
	assert.Equal(t, true, snap.Data["extra"])
}

func TestMemoryTransactionRetriesOnConflict(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	interfered := false
	store.beforeCommit = func() {
		if interfered {
			return
		}
		interfered = true
		// A concurrent writer claims the name between read and commit.
		require.NoError(t, store.Set(ctx, "chatroomNames/general", map[string]any{"roomId": "999999"}))
	}

	attempts := 0
	err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		attempts++
		snap, err := tx.Get("chatroomNames/general")
		if err != nil {
			return err
		}
		if snap.Exists {
			return errors.New("taken")
		}
		tx.Set("chatroomNames/general", map[string]any{"roomId": "123456"})
		return nil
	})

	assert.EqualError(t, err, "taken")
	assert.Equal(t, 2, attempts)
}

func TestMemoryTransactionGivesUp(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	n := 0
	store.beforeCommit = func() {
		n++
		require.NoError(t, store.Set(ctx, "counters/c", map[string]any{"n": n}))
	}

	err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		_, err := tx.Get("counters/c")
		tx.Set("counters/other", map[string]any{})
		return err
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, MaxAttempts, n)
}

func TestMemoryWatch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := store.Watch(ctx, Query{Collection: "users/alice/friends", OrderBy: "username"})
	require.NoError(t, err)

	first := <-ch
	assert.Empty(t, first)

	require.NoError(t, store.Set(context.Background(), "users/alice/friends/bob", map[string]any{"username": "bob"}))
	require.NoError(t, store.Set(context.Background(), "users/bob/friends/alice", map[string]any{"username": "alice"}))

	select {
	case snaps := <-ch:
		require.Len(t, snaps, 1)
		assert.Equal(t, "bob", snaps[0].ID)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestCompareValues(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Second)

	assert.Equal(t, -1, compareValues(early, late))
	assert.Equal(t, 1, compareValues(late.Format(timeLayout), early))
	assert.Equal(t, 0, compareValues(int64(5), float64(5)))
	assert.Equal(t, -1, compareValues(nil, "a"))
	assert.Equal(t, -1, compareValues("alice", "bob"))
}
