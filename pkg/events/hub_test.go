package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/purchasekit/pkg/events"
)

func TestHubPublish(t *testing.T) {
	t.Parallel()

	hub := events.NewHub(8)
	t.Cleanup(hub.Close)

	first := hub.Subscribe(context.Background())
	second := hub.Subscribe(context.Background())

	hub.Publish(events.Message(events.SeveritySuccess, "Subscription successful!"))

	for _, sub := range []*events.Subscriber{first, second} {
		select {
		case e := <-sub.C():
			assert.Equal(t, events.KindMessage, e.Kind)
			assert.Equal(t, events.SeveritySuccess, e.Severity)
			assert.Equal(t, "Subscription successful!", e.Message)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	t.Parallel()

	hub := events.NewHub(1)
	t.Cleanup(hub.Close)

	sub := hub.Subscribe(context.Background())

	// Nobody drains the subscriber; extra events are dropped, not queued.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.Publish(events.Event{Kind: events.KindStateChanged})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	e, ok := <-sub.C()
	require.True(t, ok)
	assert.Equal(t, events.KindStateChanged, e.Kind)
}

func TestHubSubscriberClose(t *testing.T) {
	t.Parallel()

	hub := events.NewHub(4)
	t.Cleanup(hub.Close)

	sub := hub.Subscribe(context.Background())
	sub.Close()
	sub.Close() // idempotent

	_, ok := <-sub.C()
	assert.False(t, ok)

	// Publishing after a subscriber closed must not panic.
	hub.Publish(events.Message(events.SeverityInfo, "still running"))
}

func TestHubContextCancelUnsubscribes(t *testing.T) {
	t.Parallel()

	hub := events.NewHub(4)
	t.Cleanup(hub.Close)

	ctx, cancel := context.WithCancel(context.Background())
	sub := hub.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.C():
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond, "cancelling the context should close the subscriber")
}

func TestHubClose(t *testing.T) {
	t.Parallel()

	hub := events.NewHub(4)
	sub := hub.Subscribe(context.Background())

	hub.Close()
	hub.Close() // idempotent

	_, ok := <-sub.C()
	assert.False(t, ok)

	// A closed hub hands out already-closed subscribers and drops publishes.
	late := hub.Subscribe(context.Background())
	_, ok = <-late.C()
	assert.False(t, ok)
	hub.Publish(events.Event{Kind: events.KindPremiumShown})
}
