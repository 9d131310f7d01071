package chatsrepo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	chatsdomain "github.com/mimochat/mimo-server/internal/chats"
	messagesdomain "github.com/mimochat/mimo-server/internal/messages"
	messagesrepo "github.com/mimochat/mimo-server/internal/messages/repo"
	"github.com/mimochat/mimo-server/internal/storage/sqlite"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func seedProfile(t *testing.T, db *sqlx.DB, id, name string) {
	t.Helper()

	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO profiles (id, display_name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, name, id+"@example.com", now, now,
	)
	if err != nil {
		t.Fatalf("seed profile %s: %v", id, err)
	}
}

func sendMessage(t *testing.T, db *sqlx.DB, chatID, senderID, content string) messagesdomain.Message {
	t.Helper()

	msg, err := messagesrepo.New(db).InsertMessage(context.Background(), chatID, senderID,
		messagesdomain.SendMessageRequest{Content: content, MessageType: messagesdomain.TypeText})
	if err != nil {
		t.Fatalf("send message: %v", err)
	}

	return msg
}

func TestEnsurePrivateChatCreatesOnce(t *testing.T) {
	db := testDB(t)
	repo := New(db)
	ctx := context.Background()

	chatID := chatsdomain.PrivateChatID("alice", "bob")

	created, err := repo.EnsurePrivateChat(ctx, chatID, "alice", "bob")
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if !created {
		t.Fatal("first ensure should create the chat")
	}

	created, err = repo.EnsurePrivateChat(ctx, chatID, "bob", "alice")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if created {
		t.Fatal("second ensure must reuse the existing chat")
	}

	ids, err := repo.ParticipantIDs(ctx, chatID)
	if err != nil {
		t.Fatalf("participant ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 participants, got %v", ids)
	}
}

func TestCreateGroupChat(t *testing.T) {
	db := testDB(t)
	repo := New(db)
	ctx := context.Background()

	seedProfile(t, db, "alice", "Alice")
	seedProfile(t, db, "bob", "Bob")
	seedProfile(t, db, "carol", "Carol")

	info, err := repo.CreateGroupChat(ctx, "alice", "Weekend plans", []string{"bob", "carol", "bob"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	if !info.IsGroup || info.Name != "Weekend plans" || info.CreatedBy != "alice" {
		t.Fatalf("unexpected chat: %+v", info.Chat)
	}
	if len(info.Participants) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(info.Participants))
	}

	var role string
	if err := db.Get(&role,
		`SELECT role FROM chat_participants WHERE chat_id = ? AND user_id = 'alice'`, info.ID,
	); err != nil {
		t.Fatalf("read creator role: %v", err)
	}
	if role != string(chatsdomain.RoleAdmin) {
		t.Fatalf("creator role = %s, want admin", role)
	}
}

func TestGetChatNotFound(t *testing.T) {
	db := testDB(t)
	repo := New(db)

	_, err := repo.GetChat(context.Background(), "no-such-chat")
	if !errors.Is(err, chatsdomain.ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

func TestListSummaries(t *testing.T) {
	db := testDB(t)
	repo := New(db)
	ctx := context.Background()

	seedProfile(t, db, "alice", "Alice")
	seedProfile(t, db, "bob", "Bob")
	seedProfile(t, db, "carol", "Carol")

	bobChat := chatsdomain.PrivateChatID("alice", "bob")
	if _, err := repo.EnsurePrivateChat(ctx, bobChat, "alice", "bob"); err != nil {
		t.Fatalf("ensure bob chat: %v", err)
	}

	group, err := repo.CreateGroupChat(ctx, "alice", "Weekend plans", []string{"bob", "carol"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	sendMessage(t, db, bobChat, "bob", "first")
	sendMessage(t, db, bobChat, "bob", "second")
	time.Sleep(5 * time.Millisecond)
	last := sendMessage(t, db, group.ID, "carol", "cake time")

	summaries, err := repo.ListSummaries(ctx, "alice")
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}

	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	// The group got the most recent message, so it sorts first.
	if summaries[0].ID != group.ID {
		t.Fatalf("expected group chat first, got %s", summaries[0].ID)
	}
	if summaries[0].Counterpart != nil {
		t.Fatal("group chat must not carry a counterpart")
	}
	if summaries[0].LastMessage == nil || summaries[0].LastMessage.ID != last.ID {
		t.Fatalf("group last message wrong: %+v", summaries[0].LastMessage)
	}
	if summaries[0].UnreadCount != 1 {
		t.Fatalf("group unread = %d, want 1", summaries[0].UnreadCount)
	}

	private := summaries[1]
	if private.ID != bobChat {
		t.Fatalf("expected private chat second, got %s", private.ID)
	}
	if private.Counterpart == nil || private.Counterpart.ID != "bob" || private.Counterpart.DisplayName != "Bob" {
		t.Fatalf("counterpart wrong: %+v", private.Counterpart)
	}
	if private.LastMessage == nil || private.LastMessage.Content != "second" {
		t.Fatalf("private last message wrong: %+v", private.LastMessage)
	}
	if private.UnreadCount != 2 {
		t.Fatalf("private unread = %d, want 2", private.UnreadCount)
	}
}

func TestListSummariesEmptyChat(t *testing.T) {
	db := testDB(t)
	repo := New(db)
	ctx := context.Background()

	seedProfile(t, db, "alice", "Alice")
	seedProfile(t, db, "bob", "Bob")

	chatID := chatsdomain.PrivateChatID("alice", "bob")
	if _, err := repo.EnsurePrivateChat(ctx, chatID, "alice", "bob"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	summaries, err := repo.ListSummaries(ctx, "alice")
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}

	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].LastMessage != nil {
		t.Fatalf("empty chat must have no last message, got %+v", summaries[0].LastMessage)
	}
	if summaries[0].UnreadCount != 0 {
		t.Fatalf("empty chat unread = %d, want 0", summaries[0].UnreadCount)
	}
}

func TestListSummariesExcludesForeignChats(t *testing.T) {
	db := testDB(t)
	repo := New(db)
	ctx := context.Background()

	seedProfile(t, db, "bob", "Bob")
	seedProfile(t, db, "carol", "Carol")

	foreign := chatsdomain.PrivateChatID("bob", "carol")
	if _, err := repo.EnsurePrivateChat(ctx, foreign, "bob", "carol"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	summaries, err := repo.ListSummaries(ctx, "alice")
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("alice must not see bob/carol chat, got %+v", summaries)
	}
}
