package messagesservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mimochat/mimo-server/internal/feed"
	messagesdomain "github.com/mimochat/mimo-server/internal/messages"
)

type Service struct {
	repo messagesdomain.Repo
	feed *feed.Feed
}

func New(repo messagesdomain.Repo, f *feed.Feed) *Service {
	return &Service{repo: repo, feed: f}
}

// Send validates and persists a message, then publishes it on the change
// feed so realtime subscribers (including the sender's own other views) see
// it. The store-confirmed message is returned to the caller for optimistic
// reconciliation by client id.
func (s *Service) Send(
	ctx context.Context,
	chatID, senderID string,
	req messagesdomain.SendMessageRequest,
) (messagesdomain.Message, error) {

	const op = "messages.service.Send"

	if strings.TrimSpace(req.Content) == "" {
		return messagesdomain.Message{}, messagesdomain.ErrEmptyContent
	}

	if req.MessageType == "" {
		req.MessageType = messagesdomain.TypeText
	}
	if !req.MessageType.Valid() {
		return messagesdomain.Message{}, messagesdomain.ErrInvalidMessageType
	}

	ok, err := s.repo.IsParticipant(ctx, chatID, senderID)
	if err != nil {
		return messagesdomain.Message{}, fmt.Errorf("%s: membership: %w", op, err)
	}
	if !ok {
		return messagesdomain.Message{}, messagesdomain.ErrNotParticipant
	}

	msg, err := s.repo.InsertMessage(ctx, chatID, senderID, req)
	if err != nil {
		return messagesdomain.Message{}, fmt.Errorf("%s: insert: %w", op, err)
	}

	s.feed.Publish(feed.Event{
		Type:      feed.MessageInserted,
		ChatID:    chatID,
		Timestamp: time.Now(),
		Payload:   msg,
	})

	return msg, nil
}

func (s *Service) Messages(ctx context.Context, chatID, viewerID string, limit, offset int) ([]messagesdomain.Message, error) {
	const op = "messages.service.Messages"

	ok, err := s.repo.IsParticipant(ctx, chatID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("%s: membership: %w", op, err)
	}
	if !ok {
		return nil, messagesdomain.ErrNotParticipant
	}

	return s.repo.GetMessages(ctx, chatID, limit, offset)
}

// MarkRead bulk-flips unread counterpart messages and, when anything
// changed, publishes a read receipt for the chat.
func (s *Service) MarkRead(ctx context.Context, chatID, viewerID string) (int64, error) {
	const op = "messages.service.MarkRead"

	ok, err := s.repo.IsParticipant(ctx, chatID, viewerID)
	if err != nil {
		return 0, fmt.Errorf("%s: membership: %w", op, err)
	}
	if !ok {
		return 0, messagesdomain.ErrNotParticipant
	}

	updated, err := s.repo.MarkRead(ctx, chatID, viewerID)
	if err != nil {
		return 0, fmt.Errorf("%s: mark read: %w", op, err)
	}

	if updated > 0 {
		s.feed.Publish(feed.Event{
			Type:      feed.MessagesRead,
			ChatID:    chatID,
			Timestamp: time.Now(),
			Payload: messagesdomain.ReadReceipt{
				ChatID:   chatID,
				ReaderID: viewerID,
				Updated:  updated,
			},
		})
	}

	return updated, nil
}
