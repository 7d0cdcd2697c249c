package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(Event{Type: CommandStarted, Command: "workflow", Invocation: "01"}))
	require.NoError(t, bus.Publish(Event{Type: CommandSucceeded, Command: "workflow", Invocation: "01", DurationMS: 3}))

	first := receive(t, ch)
	assert.Equal(t, CommandStarted, first.Type)
	assert.Equal(t, "workflow", first.Command)
	assert.False(t, first.Time.IsZero())

	second := receive(t, ch)
	assert.Equal(t, CommandSucceeded, second.Type)
	assert.Equal(t, int64(3), second.DurationMS)
}

func TestSubscribeFiltersByType(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx, CommandFailed)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(Event{Type: CommandStarted, Command: "file"}))
	require.NoError(t, bus.Publish(Event{Type: CommandFailed, Command: "file", Error: "boom"}))

	ev := receive(t, ch)
	assert.Equal(t, CommandFailed, ev.Type)
	assert.Equal(t, "boom", ev.Error)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	assert.NoError(t, bus.Publish(Event{Type: CompletionRequested, Site: "panel"}))
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var bus *Bus
	assert.NoError(t, bus.Publish(Event{Type: CommandStarted}))
}

func TestClose(t *testing.T) {
	bus := NewBus()
	ch, err := bus.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(Event{Type: CommandStarted}), ErrClosed)
	_, err = bus.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
}
