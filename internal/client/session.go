package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mimochat/mimo-server/internal/lib/logger/sl"
	messagesdomain "github.com/mimochat/mimo-server/internal/messages"
	"github.com/mimochat/mimo-server/internal/ws"
)

// Session reconciles one open conversation: the server history, optimistic
// local sends and the realtime event stream are merged into a single ordered
// message list keyed by id. All mutations are serialized under one mutex;
// results that arrive after Close are dropped.
type Session struct {
	transport Transport
	chatID    string
	viewerID  string
	log       *slog.Logger

	mu     sync.Mutex
	order  []string
	byID   map[string]*DisplayMessage
	closed bool

	updates    chan struct{}
	stopListen func()
}

// Open loads the chat history, starts the realtime stream and marks the
// conversation read, the way a chat screen does when it comes on screen.
func Open(ctx context.Context, transport Transport, chatID, viewerID string, log *slog.Logger) (*Session, error) {
	const op = "client.session.Open"

	s := &Session{
		transport: transport,
		chatID:    chatID,
		viewerID:  viewerID,
		log:       log,
		byID:      make(map[string]*DisplayMessage),
		updates:   make(chan struct{}, 1),
	}

	msgs, err := transport.Messages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%s: load history: %w", op, err)
	}

	s.mu.Lock()
	for _, msg := range msgs {
		s.insertLocked(newDisplayMessage(msg, viewerID))
	}
	s.mu.Unlock()

	events, stop, err := transport.Listen(ctx, []string{chatID})
	if err != nil {
		return nil, fmt.Errorf("%s: listen: %w", op, err)
	}
	s.stopListen = stop

	go s.eventLoop(events)

	if _, err := transport.MarkRead(ctx, chatID); err != nil {
		log.Warn("failed to mark chat read on open", sl.Err(err))
	}

	return s, nil
}

// Send appends an optimistic entry and confirms it against the server in the
// background. The returned temp id identifies the entry until the server ack
// replaces it with the store-assigned id.
func (s *Session) Send(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", messagesdomain.ErrEmptyContent
	}

	tempID := NewTempID()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	s.insertLocked(DisplayMessage{
		ID:          tempID,
		ChatID:      s.chatID,
		SenderID:    s.viewerID,
		Content:     content,
		MessageType: messagesdomain.TypeText,
		Status:      messagesdomain.StatusSending,
		IsMine:      true,
		CreatedAt:   time.Now(),
	})
	s.mu.Unlock()

	s.notify()
	go s.deliver(ctx, tempID, content)

	return tempID, nil
}

// Retry resends a failed message under its original temp id, so a send that
// eventually succeeds still reconciles to a single entry.
func (s *Session) Retry(ctx context.Context, tempID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}

	msg, ok := s.byID[tempID]
	if !ok || !IsTempID(tempID) {
		s.mu.Unlock()
		return ErrUnknownMessage
	}
	if !msg.Status.CanTransitionTo(messagesdomain.StatusSending) {
		s.mu.Unlock()
		return ErrNotRetryable
	}

	msg.Status = messagesdomain.StatusSending
	content := msg.Content
	s.mu.Unlock()

	s.notify()
	go s.deliver(ctx, tempID, content)

	return nil
}

// MarkRead flips the counterpart's unread messages, locally and on the
// server.
func (s *Session) MarkRead(ctx context.Context) error {
	const op = "client.session.MarkRead"

	s.mu.Lock()
	changed := false
	for _, id := range s.order {
		msg := s.byID[id]
		if !msg.IsMine && msg.Status != messagesdomain.StatusRead {
			msg.Status = messagesdomain.StatusRead
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}

	if _, err := s.transport.MarkRead(ctx, s.chatID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Messages returns the current conversation in display order.
func (s *Session) Messages() []DisplayMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]DisplayMessage, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, *s.byID[id])
	}

	return result
}

// Updates signals after every state change. Notifications are coalesced; a
// reader that missed several changes gets one signal.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.stopListen != nil {
		s.stopListen()
	}
}

func (s *Session) deliver(ctx context.Context, tempID, content string) {
	msg, err := s.transport.SendMessage(ctx, s.chatID, messagesdomain.SendMessageRequest{
		Content:     content,
		MessageType: messagesdomain.TypeText,
	})
	if err != nil {
		s.fail(tempID, err)
		return
	}

	s.confirm(tempID, msg)
}

// confirm reconciles the server ack with the optimistic entry. If the
// realtime echo of the same message landed first, the temp entry is dropped
// instead of promoted, so the message appears exactly once.
func (s *Session) confirm(tempID string, msg messagesdomain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	entry, ok := s.byID[tempID]
	if !ok {
		return
	}

	if _, exists := s.byID[msg.ID]; exists {
		s.removeLocked(tempID)
		s.notify()
		return
	}

	entry.ID = msg.ID
	entry.Content = msg.Content
	entry.MessageType = msg.MessageType
	entry.MediaURL = msg.MediaURL
	entry.CreatedAt = msg.CreatedAt
	if entry.Status.CanTransitionTo(messagesdomain.StatusSent) {
		entry.Status = messagesdomain.StatusSent
	}

	delete(s.byID, tempID)
	s.byID[msg.ID] = entry
	for i, id := range s.order {
		if id == tempID {
			s.order[i] = msg.ID
			break
		}
	}

	s.notify()
}

func (s *Session) fail(tempID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	entry, ok := s.byID[tempID]
	if !ok {
		return
	}

	if entry.Status.CanTransitionTo(messagesdomain.StatusFailed) {
		entry.Status = messagesdomain.StatusFailed
	}

	s.log.Warn("message delivery failed",
		slog.String("chat_id", s.chatID),
		slog.String("temp_id", tempID),
		sl.Err(err),
	)

	s.notify()
}

func (s *Session) eventLoop(events <-chan ws.ServerEvent) {
	for evt := range events {
		switch evt.Type {
		case ws.EventMessageNew:
			if evt.Message != nil {
				s.applyRemoteInsert(*evt.Message)
			}
		case ws.EventMessageRead:
			if evt.Read != nil {
				s.applyReadReceipt(*evt.Read)
			}
		}
	}
}

// applyRemoteInsert merges a realtime message. Merging is idempotent: a
// message already present (from history, a previous event or the send ack) is
// updated in place, never duplicated.
func (s *Session) applyRemoteInsert(msg messagesdomain.Message) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return
	}

	if entry, exists := s.byID[msg.ID]; exists {
		if msg.IsRead && entry.Status.CanTransitionTo(messagesdomain.StatusRead) {
			entry.Status = messagesdomain.StatusRead
		}
		s.mu.Unlock()
		s.notify()
		return
	}

	display := newDisplayMessage(msg, s.viewerID)
	if !display.IsMine {
		// The conversation is on screen, so the incoming message is read
		// immediately.
		display.Status = messagesdomain.StatusRead
	}
	s.insertLocked(display)
	mine := display.IsMine
	s.mu.Unlock()

	s.notify()

	if !mine {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := s.transport.MarkRead(ctx, s.chatID); err != nil {
				s.log.Warn("failed to ack incoming message as read", sl.Err(err))
			}
		}()
	}
}

// applyReadReceipt promotes the viewer's delivered messages to read when the
// counterpart marks the chat.
func (s *Session) applyReadReceipt(receipt messagesdomain.ReadReceipt) {
	if receipt.ReaderID == s.viewerID {
		return
	}

	s.mu.Lock()
	changed := false
	for _, id := range s.order {
		msg := s.byID[id]
		if msg.IsMine && msg.Status.CanTransitionTo(messagesdomain.StatusRead) {
			msg.Status = messagesdomain.StatusRead
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *Session) insertLocked(msg DisplayMessage) {
	m := msg
	s.byID[m.ID] = &m
	s.order = append(s.order, m.ID)
}

func (s *Session) removeLocked(id string) {
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// notify never blocks, so it is safe to call while holding mu.
func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
