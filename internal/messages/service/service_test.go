package messagesservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mimochat/mimo-server/internal/feed"
	messagesdomain "github.com/mimochat/mimo-server/internal/messages"
)

type fakeRepo struct {
	participants map[string]bool // "chatID/userID"
	markReadN    int64
	inserted     []messagesdomain.Message
}

func newFakeRepo(members ...string) *fakeRepo {
	f := &fakeRepo{participants: make(map[string]bool)}
	for _, m := range members {
		f.participants[m] = true
	}
	return f
}

func (f *fakeRepo) InsertMessage(_ context.Context, chatID, senderID string, req messagesdomain.SendMessageRequest) (messagesdomain.Message, error) {
	msg := messagesdomain.Message{
		ID:          "srv-1",
		ChatID:      chatID,
		SenderID:    senderID,
		Content:     req.Content,
		MessageType: req.MessageType,
		CreatedAt:   time.Now(),
	}
	f.inserted = append(f.inserted, msg)
	return msg, nil
}

func (f *fakeRepo) GetMessages(context.Context, string, int, int) ([]messagesdomain.Message, error) {
	return nil, nil
}

func (f *fakeRepo) MarkRead(context.Context, string, string) (int64, error) {
	return f.markReadN, nil
}

func (f *fakeRepo) UnreadCount(context.Context, string, string) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) IsParticipant(_ context.Context, chatID, userID string) (bool, error) {
	return f.participants[chatID+"/"+userID], nil
}

func recvEvent(t *testing.T, ch <-chan feed.Event) feed.Event {
	t.Helper()

	select {
	case evt := <-ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("no feed event published")
		return feed.Event{}
	}
}

func TestSendPublishesEvent(t *testing.T) {
	f := feed.New()
	events, unsub := f.Subscribe("", 4)
	defer unsub()

	svc := New(newFakeRepo("c1/alice"), f)

	msg, err := svc.Send(context.Background(), "c1", "alice", messagesdomain.SendMessageRequest{
		Content: "hello",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.MessageType != messagesdomain.TypeText {
		t.Fatalf("empty type must default to text, got %s", msg.MessageType)
	}

	evt := recvEvent(t, events)
	if evt.Type != feed.MessageInserted || evt.ChatID != "c1" {
		t.Fatalf("wrong event: %+v", evt)
	}
	payload, ok := evt.Payload.(messagesdomain.Message)
	if !ok || payload.ID != msg.ID {
		t.Fatalf("event payload wrong: %+v", evt.Payload)
	}
}

func TestSendValidation(t *testing.T) {
	svc := New(newFakeRepo("c1/alice"), feed.New())
	ctx := context.Background()

	if _, err := svc.Send(ctx, "c1", "alice", messagesdomain.SendMessageRequest{Content: "   "}); !errors.Is(err, messagesdomain.ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}

	if _, err := svc.Send(ctx, "c1", "alice", messagesdomain.SendMessageRequest{
		Content: "hi", MessageType: "sticker",
	}); !errors.Is(err, messagesdomain.ErrInvalidMessageType) {
		t.Fatalf("expected ErrInvalidMessageType, got %v", err)
	}

	if _, err := svc.Send(ctx, "c1", "mallory", messagesdomain.SendMessageRequest{Content: "hi"}); !errors.Is(err, messagesdomain.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}

func TestMarkReadPublishesOnlyWhenChanged(t *testing.T) {
	f := feed.New()
	events, unsub := f.Subscribe("", 4)
	defer unsub()

	repo := newFakeRepo("c1/alice")
	svc := New(repo, f)
	ctx := context.Background()

	// Nothing flipped: no receipt.
	if _, err := svc.MarkRead(ctx, "c1", "alice"); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	select {
	case evt := <-events:
		t.Fatalf("unexpected event for no-op mark read: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}

	repo.markReadN = 2
	updated, err := svc.MarkRead(ctx, "c1", "alice")
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if updated != 2 {
		t.Fatalf("updated = %d, want 2", updated)
	}

	evt := recvEvent(t, events)
	if evt.Type != feed.MessagesRead {
		t.Fatalf("wrong event type: %s", evt.Type)
	}
	receipt, ok := evt.Payload.(messagesdomain.ReadReceipt)
	if !ok || receipt.ReaderID != "alice" || receipt.Updated != 2 {
		t.Fatalf("receipt wrong: %+v", evt.Payload)
	}
}
