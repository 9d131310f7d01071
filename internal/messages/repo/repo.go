package messagesrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	messagesdomain "github.com/mimochat/mimo-server/internal/messages"
)

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// InsertMessage persists a message and bumps the owning chat's updated_at in
// the same transaction, so the chat list sort key can never lag behind the
// message it sorts by. created_at is assigned here and is the authoritative
// ordering key.
func (r *Repo) InsertMessage(
	ctx context.Context,
	chatID, senderID string,
	req messagesdomain.SendMessageRequest,
) (messagesdomain.Message, error) {

	const op = "messages.repo.InsertMessage"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return messagesdomain.Message{}, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	msg := messagesdomain.Message{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		SenderID:    senderID,
		Content:     req.Content,
		MessageType: req.MessageType,
		MediaURL:    req.MediaURL,
		IsRead:      false,
		CreatedAt:   time.Now().UTC(),
	}

	_, err = tx.ExecContext(
		ctx,
		r.db.Rebind(`
		INSERT INTO messages (id, chat_id, sender_id, content, message_type, media_url, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`),
		msg.ID, msg.ChatID, msg.SenderID, msg.Content, msg.MessageType, msg.MediaURL, msg.IsRead, msg.CreatedAt,
	)
	if err != nil {
		return messagesdomain.Message{}, fmt.Errorf("%s: insert message: %w", op, err)
	}

	res, err := tx.ExecContext(
		ctx,
		r.db.Rebind(`UPDATE chats SET updated_at = ? WHERE id = ?`),
		msg.CreatedAt, chatID,
	)
	if err != nil {
		return messagesdomain.Message{}, fmt.Errorf("%s: bump chat: %w", op, err)
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		return messagesdomain.Message{}, messagesdomain.ErrChatNotFound
	}

	if err := tx.Commit(); err != nil {
		return messagesdomain.Message{}, fmt.Errorf("%s: commit tx: %w", op, err)
	}

	return msg, nil
}

func (r *Repo) GetMessages(ctx context.Context, chatID string, limit, offset int) ([]messagesdomain.Message, error) {
	const op = "messages.repo.GetMessages"

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []messagesdomain.Message
	err := r.db.SelectContext(
		ctx,
		&rows,
		r.db.Rebind(`
		SELECT id, chat_id, sender_id, content, message_type, COALESCE(media_url, '') AS media_url, is_read, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?
		`),
		chatID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: select: %w", op, err)
	}

	if rows == nil {
		rows = []messagesdomain.Message{}
	}

	return rows, nil
}

// MarkRead flips is_read on every unread message in the chat that the viewer
// did not author. Returns the number of messages flipped.
func (r *Repo) MarkRead(ctx context.Context, chatID, viewerID string) (int64, error) {
	const op = "messages.repo.MarkRead"

	res, err := r.db.ExecContext(
		ctx,
		r.db.Rebind(`
		UPDATE messages
		SET is_read = TRUE
		WHERE chat_id = ?
		  AND is_read = FALSE
		  AND sender_id <> ?
		`),
		chatID, viewerID,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: update: %w", op, err)
	}

	updated, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}

	return updated, nil
}

func (r *Repo) UnreadCount(ctx context.Context, chatID, viewerID string) (int64, error) {
	const op = "messages.repo.UnreadCount"

	var count int64
	err := r.db.GetContext(
		ctx,
		&count,
		r.db.Rebind(`
		SELECT COUNT(*)
		FROM messages
		WHERE chat_id = ?
		  AND is_read = FALSE
		  AND sender_id <> ?
		`),
		chatID, viewerID,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: count: %w", op, err)
	}

	return count, nil
}

func (r *Repo) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	const op = "messages.repo.IsParticipant"

	var count int64
	err := r.db.GetContext(
		ctx,
		&count,
		r.db.Rebind(`SELECT COUNT(*) FROM chat_participants WHERE chat_id = ? AND user_id = ?`),
		chatID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("%s: count: %w", op, err)
	}

	return count > 0, nil
}
