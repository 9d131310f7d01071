package messages

import (
	"context"
	"time"

	response "github.com/mimochat/mimo-server/internal/lib"
)

type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeVideo    MessageType = "video"
	TypeAudio    MessageType = "audio"
	TypeDocument MessageType = "document"
)

func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeVideo, TypeAudio, TypeDocument:
		return true
	}
	return false
}

// Status is the client-side delivery state of a message.
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

var transitions = map[Status][]Status{
	StatusSending:   {StatusSent, StatusFailed},
	StatusSent:      {StatusDelivered, StatusRead},
	StatusDelivered: {StatusRead},
	StatusFailed:    {StatusSending},
}

// CanTransitionTo reports whether moving from s to next is a legal
// delivery-state transition.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Message struct {
	ID          string      `json:"id" db:"id"`
	ChatID      string      `json:"chat_id" db:"chat_id"`
	SenderID    string      `json:"sender_id" db:"sender_id"`
	Content     string      `json:"content" db:"content"`
	MessageType MessageType `json:"message_type" db:"message_type"`
	MediaURL    string      `json:"media_url,omitempty" db:"media_url"`
	IsRead      bool        `json:"is_read" db:"is_read"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// ReadReceipt is published on the change feed when a viewer bulk-marks a
// chat read.
type ReadReceipt struct {
	ChatID   string `json:"chat_id"`
	ReaderID string `json:"reader_id"`
	Updated  int64  `json:"updated"`
}

type SendMessageRequest struct {
	Content     string      `json:"content"`
	MessageType MessageType `json:"message_type"`
	MediaURL    string      `json:"media_url"`
}

type SendMessageResponse struct {
	response.Response
	Message Message `json:"message"`
}

type GetMessagesResponse struct {
	response.Response
	Messages []Message `json:"messages"`
}

type MarkReadResponse struct {
	response.Response
	Updated int64 `json:"updated"`
}

type Repo interface {
	InsertMessage(ctx context.Context, chatID, senderID string, req SendMessageRequest) (Message, error)
	GetMessages(ctx context.Context, chatID string, limit, offset int) ([]Message, error)
	MarkRead(ctx context.Context, chatID, viewerID string) (int64, error)
	UnreadCount(ctx context.Context, chatID, viewerID string) (int64, error)
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
}

type Service interface {
	Send(ctx context.Context, chatID, senderID string, req SendMessageRequest) (Message, error)
	Messages(ctx context.Context, chatID, viewerID string, limit, offset int) ([]Message, error)
	MarkRead(ctx context.Context, chatID, viewerID string) (int64, error)
}
