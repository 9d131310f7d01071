package client

import (
	"strings"
	"time"

	"github.com/google/uuid"

	messagesdomain "github.com/mimochat/mimo-server/internal/messages"
)

const tempIDPrefix = "temp-"

// NewTempID mints a provisional id for an optimistic message. The prefix
// keeps temp ids out of the server id space, so a provisional entry can never
// collide with a store-confirmed one.
func NewTempID() string {
	return tempIDPrefix + uuid.NewString()
}

func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

// DisplayMessage is one entry of the conversation view: a server message plus
// the local delivery status the UI renders (clock, tick, double tick, retry).
type DisplayMessage struct {
	ID          string                     `json:"id"`
	ChatID      string                     `json:"chat_id"`
	SenderID    string                     `json:"sender_id"`
	Content     string                     `json:"content"`
	MessageType messagesdomain.MessageType `json:"message_type"`
	MediaURL    string                     `json:"media_url,omitempty"`
	Status      messagesdomain.Status      `json:"status"`
	IsMine      bool                       `json:"is_mine"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// newDisplayMessage converts a store-confirmed message into its display form
// from the viewer's perspective.
func newDisplayMessage(msg messagesdomain.Message, viewerID string) DisplayMessage {
	status := messagesdomain.StatusSent
	if msg.IsRead {
		status = messagesdomain.StatusRead
	}

	return DisplayMessage{
		ID:          msg.ID,
		ChatID:      msg.ChatID,
		SenderID:    msg.SenderID,
		Content:     msg.Content,
		MessageType: msg.MessageType,
		MediaURL:    msg.MediaURL,
		Status:      status,
		IsMine:      msg.SenderID == viewerID,
		CreatedAt:   msg.CreatedAt,
	}
}
