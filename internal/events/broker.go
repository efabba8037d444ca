// Package events fans board change notifications out to connected clients.
// The broker keeps an explicit registry keyed by board id; subscriber handles
// are removed and closed deterministically on disconnect.
package events

import (
	"sync"

	"go.uber.org/zap"
)

// Event describes one change on a board.
type Event struct {
	Type     string `json:"type"`   // "create" | "update" | "delete"
	Entity   string `json:"entity"` // "board" | "column" | "card"
	EntityID string `json:"entityId"`
	BoardID  string `json:"boardId"`
	Action   string `json:"action,omitempty"`
}

// subscriberBuffer bounds how far a slow consumer may lag before events are
// dropped for it.
const subscriberBuffer = 16

// Subscriber is a live subscription to one board's events.
type Subscriber struct {
	boardID string
	ch      chan Event
}

// Events is the stream of events for this subscription. It is closed on
// Unsubscribe.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Broker routes published board events to that board's subscribers.
type Broker struct {
	mu     sync.Mutex
	boards map[string]map[*Subscriber]struct{}
}

func NewBroker() *Broker {
	return &Broker{boards: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a new listener for the board's events.
func (b *Broker) Subscribe(boardID string) *Subscriber {
	sub := &Subscriber{boardID: boardID, ch: make(chan Event, subscriberBuffer)}

	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.boards[boardID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		b.boards[boardID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the listener and closes its channel. Empty board
// entries are dropped from the registry. Safe to call more than once.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.boards[sub.boardID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(b.boards, sub.boardID)
	}
}

// Publish delivers the event to every subscriber of its board. Delivery never
// blocks a publisher: a subscriber whose buffer is full misses the event and
// relies on its next refetch to catch up.
func (b *Broker) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.boards[event.BoardID] {
		select {
		case sub.ch <- event:
		default:
			zap.L().Debug("Dropping event for slow subscriber",
				zap.String("boardID", event.BoardID),
				zap.String("entity", event.Entity))
		}
	}
}

// SubscriberCount reports the number of live subscriptions for a board.
func (b *Broker) SubscriberCount(boardID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.boards[boardID])
}
