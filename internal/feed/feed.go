package feed

import (
	"sync"
	"time"
)

type EventType string

const (
	MessageInserted EventType = "message.inserted"
	MessagesRead    EventType = "messages.read"
)

// Event is a change-stream notification for a single chat.
type Event struct {
	Type      EventType
	ChatID    string
	Timestamp time.Time
	Payload   any
}

// Feed is an in-process publish/subscribe change stream over chat events.
// Subscribers either follow a single chat or, with an empty chat id, every
// chat. Delivery is non-blocking: a subscriber that falls behind loses
// events rather than stalling the publisher.
type Feed struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	chatID string // "" follows all chats
	ch     chan Event
}

func New() *Feed {
	return &Feed{
		subs: make(map[int]*subscription),
	}
}

// Publish delivers evt to every subscriber of evt.ChatID and to all-chats
// subscribers.
func (f *Feed) Publish(evt Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, sub := range f.subs {
		if sub.chatID != "" && sub.chatID != evt.ChatID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// Subscribe returns a channel receiving events for chatID ("" for all chats)
// and an unsubscribe function. bufSize controls the channel buffer.
func (f *Feed) Subscribe(chatID string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = &subscription{chatID: chatID, ch: ch}
	f.mu.Unlock()

	return ch, func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}
