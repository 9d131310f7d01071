// Package chatcache persists chat-list summaries on the client, so the list
// renders instantly on startup and survives without a connection. Pinned
// flags live only here; the server has no notion of favourites.
package chatcache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	chatsdomain "github.com/mimochat/mimo-server/internal/chats"
)

// StoredChat is the flattened, render-ready form of a chat summary.
type StoredChat struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	LastMessage string `json:"last_message" db:"last_message"`
	Time        string `json:"time" db:"time"`
	UnreadCount int64  `json:"unread_count" db:"unread_count"`
	IsGroup     bool   `json:"is_group" db:"is_group"`
	IsPinned    bool   `json:"is_pinned" db:"is_pinned"`
}

// Store keeps one account's summaries, keyed by the account's user id so a
// shared cache file can hold several accounts without mixing them.
type Store struct {
	db        *sqlx.DB
	namespace string
}

func New(db *sqlx.DB, namespace string) *Store {
	return &Store{db: db, namespace: namespace}
}

// Save replaces the cached list with the given summaries, preserving pinned
// flags of chats that are still present.
func (s *Store) Save(ctx context.Context, summaries []chatsdomain.ChatSummary) error {
	const op = "client.chatcache.Save"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	pinned, err := pinnedIDs(ctx, tx, s.namespace)
	if err != nil {
		return fmt.Errorf("%s: read pinned: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cached_chats WHERE namespace = ?`, s.namespace,
	); err != nil {
		return fmt.Errorf("%s: clear: %w", op, err)
	}

	now := time.Now().Unix()

	for _, summary := range summaries {
		stored := flatten(summary)
		stored.IsPinned = pinned[stored.ID]

		_, err := tx.ExecContext(ctx, `
			INSERT INTO cached_chats (namespace, id, name, last_message, time, unread_count, is_group, is_pinned, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.namespace, stored.ID, stored.Name, stored.LastMessage, stored.Time,
			stored.UnreadCount, stored.IsGroup, stored.IsPinned, now,
		)
		if err != nil {
			return fmt.Errorf("%s: insert %s: %w", op, stored.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

// List returns the cached chats, pinned first, then by recency of caching
// order.
func (s *Store) List(ctx context.Context) ([]StoredChat, error) {
	const op = "client.chatcache.List"

	var chats []StoredChat
	err := s.db.SelectContext(ctx, &chats, `
		SELECT id, name, last_message, time, unread_count, is_group, is_pinned
		FROM cached_chats
		WHERE namespace = ?
		ORDER BY is_pinned DESC, rowid`,
		s.namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return chats, nil
}

// Search narrows the cached list by case-insensitive substring over the chat
// name and last message.
func (s *Store) Search(ctx context.Context, query string) ([]StoredChat, error) {
	chats, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return chats, nil
	}

	filtered := make([]StoredChat, 0, len(chats))
	for _, chat := range chats {
		if strings.Contains(strings.ToLower(chat.Name), q) ||
			strings.Contains(strings.ToLower(chat.LastMessage), q) {
			filtered = append(filtered, chat)
		}
	}

	return filtered, nil
}

func (s *Store) SetPinned(ctx context.Context, chatID string, pinned bool) error {
	const op = "client.chatcache.SetPinned"

	_, err := s.db.ExecContext(ctx, `
		UPDATE cached_chats SET is_pinned = ?, updated_at = ?
		WHERE namespace = ? AND id = ?`,
		pinned, time.Now().Unix(), s.namespace, chatID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	const op = "client.chatcache.Clear"

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cached_chats WHERE namespace = ?`, s.namespace,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func pinnedIDs(ctx context.Context, tx *sqlx.Tx, namespace string) (map[string]bool, error) {
	var ids []string
	err := tx.SelectContext(ctx, &ids,
		`SELECT id FROM cached_chats WHERE namespace = ? AND is_pinned = TRUE`, namespace,
	)
	if err != nil {
		return nil, err
	}

	pinned := make(map[string]bool, len(ids))
	for _, id := range ids {
		pinned[id] = true
	}

	return pinned, nil
}

func flatten(summary chatsdomain.ChatSummary) StoredChat {
	stored := StoredChat{
		ID:          summary.ID,
		Name:        summary.Name,
		UnreadCount: summary.UnreadCount,
		IsGroup:     summary.IsGroup,
	}

	if !summary.IsGroup && summary.Counterpart != nil {
		stored.Name = summary.Counterpart.DisplayName
	}

	if summary.LastMessage != nil {
		stored.LastMessage = summary.LastMessage.Content
		stored.Time = summary.LastMessage.CreatedAt.Local().Format("15:04")
	}

	return stored
}
