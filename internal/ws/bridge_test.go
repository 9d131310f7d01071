package ws

import (
	"testing"
	"time"

	"github.com/mimochat/mimo-server/internal/feed"
	messagesdomain "github.com/mimochat/mimo-server/internal/messages"
)

func TestTranslateMessageInserted(t *testing.T) {
	msg := messagesdomain.Message{ID: "m1", ChatID: "c1", SenderID: "alice", Content: "hi"}

	evt, exclude, ok := translate(feed.Event{
		Type:      feed.MessageInserted,
		ChatID:    "c1",
		Timestamp: time.Now(),
		Payload:   msg,
	})

	if !ok {
		t.Fatal("expected event to translate")
	}
	if evt.Type != EventMessageNew || evt.ChatID != "c1" {
		t.Fatalf("wrong event: %+v", evt)
	}
	if evt.Message == nil || evt.Message.ID != "m1" {
		t.Fatalf("message payload wrong: %+v", evt.Message)
	}
	if exclude != "alice" {
		t.Fatalf("sender must be excluded from broadcast, got %q", exclude)
	}
}

func TestTranslateMessagesRead(t *testing.T) {
	receipt := messagesdomain.ReadReceipt{ChatID: "c1", ReaderID: "bob", Updated: 3}

	evt, exclude, ok := translate(feed.Event{
		Type:    feed.MessagesRead,
		ChatID:  "c1",
		Payload: receipt,
	})

	if !ok {
		t.Fatal("expected event to translate")
	}
	if evt.Type != EventMessageRead || evt.Read == nil || evt.Read.ReaderID != "bob" {
		t.Fatalf("wrong event: %+v", evt)
	}
	if exclude != "bob" {
		t.Fatalf("reader must be excluded from broadcast, got %q", exclude)
	}
}

func TestTranslateRejectsWrongPayload(t *testing.T) {
	if _, _, ok := translate(feed.Event{Type: feed.MessageInserted, Payload: "garbage"}); ok {
		t.Fatal("mismatched payload must not translate")
	}
	if _, _, ok := translate(feed.Event{Type: "unknown"}); ok {
		t.Fatal("unknown event type must not translate")
	}
}
