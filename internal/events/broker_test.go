package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubscribePublishUnsubscribe(t *testing.T) {
	b := NewBroker()

	sub := b.Subscribe("board-1")
	other := b.Subscribe("board-2")
	assert.Equal(t, 1, b.SubscriberCount("board-1"))

	event := Event{Type: "update", Entity: "card", EntityID: "card-1", BoardID: "board-1", Action: "updated"}
	b.Publish(event)

	select {
	case got := <-sub.Events():
		assert.Equal(t, event, got)
	default:
		t.Fatal("expected event to be delivered")
	}

	// events route by board id only
	select {
	case <-other.Events():
		t.Fatal("event leaked to another board's subscriber")
	default:
	}

	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount("board-1"))

	// channel is closed after unsubscribe
	_, ok := <-sub.Events()
	assert.False(t, ok)

	b.Unsubscribe(other)
}

func TestUnsubscribeTwice(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("board-1")
	b.Unsubscribe(sub)
	// second call must not panic on the closed channel
	b.Unsubscribe(sub)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := NewBroker()
	b.Publish(Event{Type: "update", Entity: "board", EntityID: "x", BoardID: "x"})
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("board-1")

	// overflow the buffer; Publish must never block
	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(Event{Type: "update", Entity: "card", EntityID: "c", BoardID: "board-1"})
	}

	received := 0
	for {
		select {
		case <-sub.Events():
			received++
			continue
		default:
		}
		break
	}
	require.Equal(t, subscriberBuffer, received)

	b.Unsubscribe(sub)
}
