package feed

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	f := New()
	ch, unsub := f.Subscribe("chat-1", 10)
	defer unsub()

	f.Publish(Event{Type: MessageInserted, ChatID: "chat-1", Timestamp: time.Now()})

	select {
	case evt := <-ch:
		if evt.Type != MessageInserted {
			t.Errorf("got type %q, want %q", evt.Type, MessageInserted)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestChatFiltering(t *testing.T) {
	f := New()
	ch, unsub := f.Subscribe("chat-2", 10)
	defer unsub()

	f.Publish(Event{Type: MessageInserted, ChatID: "chat-1"})
	f.Publish(Event{Type: MessagesRead, ChatID: "chat-2"})

	select {
	case evt := <-ch:
		if evt.ChatID != "chat-2" {
			t.Errorf("got chat %q, want chat-2", evt.ChatID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAllChatsSubscription(t *testing.T) {
	f := New()
	ch, unsub := f.Subscribe("", 10)
	defer unsub()

	f.Publish(Event{Type: MessageInserted, ChatID: "chat-1"})
	f.Publish(Event{Type: MessageInserted, ChatID: "chat-2"})

	for _, want := range []string{"chat-1", "chat-2"} {
		select {
		case evt := <-ch:
			if evt.ChatID != want {
				t.Errorf("got chat %q, want %q", evt.ChatID, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %s event", want)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	f := New()
	ch, unsub := f.Subscribe("chat-1", 10)
	unsub()

	f.Publish(Event{Type: MessageInserted, ChatID: "chat-1"})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}
