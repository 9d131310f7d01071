package chatsrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	chatsdomain "github.com/mimochat/mimo-server/internal/chats"
	messagesdomain "github.com/mimochat/mimo-server/internal/messages"
	profilesdomain "github.com/mimochat/mimo-server/internal/profiles"
)

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// EnsurePrivateChat inserts the private chat row and both participant rows,
// all with conflict-tolerant upserts. chatID must be the deterministic pair
// key, so two racing resolvers land on the same primary key and exactly one
// of them observes created=true.
func (r *Repo) EnsurePrivateChat(ctx context.Context, chatID, userA, userB string) (bool, error) {
	const op = "chats.repo.EnsurePrivateChat"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	res, err := tx.ExecContext(
		ctx,
		r.db.Rebind(`
		INSERT INTO chats (id, is_group, name, created_by, created_at, updated_at)
		VALUES (?, FALSE, NULL, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
		`),
		chatID, userA, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("%s: insert chat: %w", op, err)
	}

	inserted, _ := res.RowsAffected()

	participants := []string{userA, userB}
	if userA == userB {
		participants = participants[:1]
	}

	for _, userID := range participants {
		_, err := tx.ExecContext(
			ctx,
			r.db.Rebind(`
			INSERT INTO chat_participants (chat_id, user_id, role, joined_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (chat_id, user_id) DO NOTHING
			`),
			chatID, userID, chatsdomain.RoleMember, now,
		)
		if err != nil {
			return false, fmt.Errorf("%s: insert participant %s: %w", op, userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%s: commit tx: %w", op, err)
	}

	return inserted > 0, nil
}

func (r *Repo) CreateGroupChat(ctx context.Context, creatorID, name string, userIDs []string) (chatsdomain.ChatInfo, error) {
	const op = "chats.repo.CreateGroupChat"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return chatsdomain.ChatInfo{}, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	chatID := uuid.NewString()
	now := time.Now().UTC()

	_, err = tx.ExecContext(
		ctx,
		r.db.Rebind(`
		INSERT INTO chats (id, is_group, name, created_by, created_at, updated_at)
		VALUES (?, TRUE, ?, ?, ?, ?)
		`),
		chatID, name, creatorID, now, now,
	)
	if err != nil {
		return chatsdomain.ChatInfo{}, fmt.Errorf("%s: insert chat: %w", op, err)
	}

	members := uniqueNonEmpty(append([]string{creatorID}, userIDs...))

	for _, userID := range members {
		role := chatsdomain.RoleMember
		if userID == creatorID {
			role = chatsdomain.RoleAdmin
		}

		_, err := tx.ExecContext(
			ctx,
			r.db.Rebind(`
			INSERT INTO chat_participants (chat_id, user_id, role, joined_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (chat_id, user_id) DO NOTHING
			`),
			chatID, userID, role, now,
		)
		if err != nil {
			return chatsdomain.ChatInfo{}, fmt.Errorf("%s: insert participant %s: %w", op, userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return chatsdomain.ChatInfo{}, fmt.Errorf("%s: commit tx: %w", op, err)
	}

	return r.GetChat(ctx, chatID)
}

func uniqueNonEmpty(input []string) []string {
	seen := make(map[string]bool, len(input))
	result := make([]string, 0, len(input))

	for _, v := range input {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}

	return result
}

func (r *Repo) GetChat(ctx context.Context, chatID string) (chatsdomain.ChatInfo, error) {
	const op = "chats.repo.GetChat"

	var chat chatsdomain.Chat
	err := r.db.GetContext(
		ctx,
		&chat,
		r.db.Rebind(`
		SELECT id, is_group, COALESCE(name, '') AS name, created_by, created_at, updated_at
		FROM chats
		WHERE id = ?
		`),
		chatID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return chatsdomain.ChatInfo{}, chatsdomain.ErrChatNotFound
	}
	if err != nil {
		return chatsdomain.ChatInfo{}, fmt.Errorf("%s: select chat: %w", op, err)
	}

	var participants []profilesdomain.Profile
	err = r.db.SelectContext(
		ctx,
		&participants,
		r.db.Rebind(`
		SELECT p.id, p.display_name, p.email, p.avatar_url, p.is_online, p.last_seen, p.created_at, p.updated_at
		FROM chat_participants cp
		JOIN profiles p ON p.id = cp.user_id
		WHERE cp.chat_id = ?
		ORDER BY cp.joined_at, p.id
		`),
		chatID,
	)
	if err != nil {
		return chatsdomain.ChatInfo{}, fmt.Errorf("%s: select participants: %w", op, err)
	}

	return chatsdomain.ChatInfo{
		Chat:         chat,
		Participants: participants,
	}, nil
}

func (r *Repo) ParticipantIDs(ctx context.Context, chatID string) ([]string, error) {
	const op = "chats.repo.ParticipantIDs"

	var ids []string
	err := r.db.SelectContext(
		ctx,
		&ids,
		r.db.Rebind(`SELECT user_id FROM chat_participants WHERE chat_id = ?`),
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: select: %w", op, err)
	}

	return ids, nil
}

type summaryRow struct {
	ID        string    `db:"id"`
	IsGroup   bool      `db:"is_group"`
	Name      string    `db:"name"`
	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	CounterpartID        sql.NullString `db:"counterpart_id"`
	CounterpartName      sql.NullString `db:"counterpart_name"`
	CounterpartEmail     sql.NullString `db:"counterpart_email"`
	CounterpartAvatarURL sql.NullString `db:"counterpart_avatar_url"`
	CounterpartOnline    sql.NullBool   `db:"counterpart_online"`
	CounterpartLastSeen  sql.NullTime   `db:"counterpart_last_seen"`

	LastMessageID       sql.NullString `db:"last_message_id"`
	LastMessageSenderID sql.NullString `db:"last_message_sender_id"`
	LastMessageContent  sql.NullString `db:"last_message_content"`
	LastMessageType     sql.NullString `db:"last_message_type"`
	LastMessageMediaURL sql.NullString `db:"last_message_media_url"`
	LastMessageIsRead   sql.NullBool   `db:"last_message_is_read"`
	LastMessageAt       sql.NullTime   `db:"last_message_created_at"`

	UnreadCount int64 `db:"unread_count"`
}

// ListSummaries assembles the viewer's whole chat list in one round trip:
// counterpart profile, latest message and unread count are joined in rather
// than fetched per chat.
func (r *Repo) ListSummaries(ctx context.Context, viewerID string) ([]chatsdomain.ChatSummary, error) {
	const op = "chats.repo.ListSummaries"

	var rows []summaryRow
	err := r.db.SelectContext(
		ctx,
		&rows,
		r.db.Rebind(`
		WITH my_chats AS (
			SELECT chat_id
			FROM chat_participants
			WHERE user_id = ?
		),

		last_message AS (
			SELECT chat_id, id, sender_id, content, message_type, media_url, is_read, created_at
			FROM (
				SELECT
					m.chat_id,
					m.id,
					m.sender_id,
					m.content,
					m.message_type,
					m.media_url,
					m.is_read,
					m.created_at,
					ROW_NUMBER() OVER (
						PARTITION BY m.chat_id
						ORDER BY m.created_at DESC, m.id DESC
					) AS rn
				FROM messages m
				JOIN my_chats mc ON mc.chat_id = m.chat_id
			) ranked
			WHERE rn = 1
		),

		unread_counts AS (
			SELECT m.chat_id, COUNT(*) AS unread_count
			FROM messages m
			JOIN my_chats mc ON mc.chat_id = m.chat_id
			WHERE m.is_read = FALSE
			  AND m.sender_id <> ?
			GROUP BY m.chat_id
		),

		counterparts AS (
			SELECT cp.chat_id, cp.user_id
			FROM chat_participants cp
			JOIN my_chats mc ON mc.chat_id = cp.chat_id
			WHERE cp.user_id <> ?
		)

		SELECT
			c.id                       AS id,
			c.is_group                 AS is_group,
			COALESCE(c.name, '')       AS name,
			c.created_by               AS created_by,
			c.created_at               AS created_at,
			c.updated_at               AS updated_at,

			p.id                       AS counterpart_id,
			p.display_name             AS counterpart_name,
			p.email                    AS counterpart_email,
			p.avatar_url               AS counterpart_avatar_url,
			p.is_online                AS counterpart_online,
			p.last_seen                AS counterpart_last_seen,

			lm.id                      AS last_message_id,
			lm.sender_id               AS last_message_sender_id,
			lm.content                 AS last_message_content,
			lm.message_type            AS last_message_type,
			lm.media_url               AS last_message_media_url,
			lm.is_read                 AS last_message_is_read,
			lm.created_at              AS last_message_created_at,

			COALESCE(uc.unread_count, 0) AS unread_count

		FROM chats c
		JOIN my_chats mc ON mc.chat_id = c.id
		LEFT JOIN counterparts co ON co.chat_id = c.id AND c.is_group = FALSE
		LEFT JOIN profiles p ON p.id = co.user_id
		LEFT JOIN last_message lm ON lm.chat_id = c.id
		LEFT JOIN unread_counts uc ON uc.chat_id = c.id

		ORDER BY c.updated_at DESC, c.id
		`),
		viewerID, viewerID, viewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}

	summaries := make([]chatsdomain.ChatSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, newSummaryFromRow(row))
	}

	return summaries, nil
}

func newSummaryFromRow(row summaryRow) chatsdomain.ChatSummary {
	summary := chatsdomain.ChatSummary{
		Chat: chatsdomain.Chat{
			ID:        row.ID,
			IsGroup:   row.IsGroup,
			Name:      row.Name,
			CreatedBy: row.CreatedBy,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
		UnreadCount: row.UnreadCount,
	}

	if row.CounterpartID.Valid {
		summary.Counterpart = &profilesdomain.Profile{
			ID:          row.CounterpartID.String,
			DisplayName: row.CounterpartName.String,
			Email:       row.CounterpartEmail.String,
			AvatarURL:   row.CounterpartAvatarURL.String,
			IsOnline:    row.CounterpartOnline.Bool,
			LastSeen:    row.CounterpartLastSeen.Time,
		}
	}

	if row.LastMessageID.Valid {
		summary.LastMessage = &messagesdomain.Message{
			ID:          row.LastMessageID.String,
			ChatID:      row.ID,
			SenderID:    row.LastMessageSenderID.String,
			Content:     row.LastMessageContent.String,
			MessageType: messagesdomain.MessageType(row.LastMessageType.String),
			MediaURL:    row.LastMessageMediaURL.String,
			IsRead:      row.LastMessageIsRead.Bool,
			CreatedAt:   row.LastMessageAt.Time,
		}
	}

	return summary
}
