package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(Event{Type: TypeScheduledFailed, Owner: "alice", Data: map[string]string{"id": "abc"}})
	require.NoError(t, err)

	evt, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, TypeScheduledFailed, evt.Type)
	assert.Equal(t, "alice", evt.Owner)
	assert.Equal(t, "abc", evt.Data["id"])
	assert.False(t, evt.At.IsZero())
}

func TestDecodeRejectsUntyped(t *testing.T) {
	_, err := Decode([]byte(`{"owner":"alice"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestLocalBusDelivers(t *testing.T) {
	got := make(chan Event, 1)
	bus := NewLocalBus(func(ctx context.Context, evt Event) { got <- evt })

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(ctx, Event{Type: TypeRoomCreated, Owner: "bob"}))
	cancel()

	select {
	case evt := <-got:
		assert.Equal(t, TypeRoomCreated, evt.Type)
		assert.False(t, evt.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}
