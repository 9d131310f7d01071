package ws

import messagesdomain "github.com/mimochat/mimo-server/internal/messages"

const (
	EventHello       = "hello"
	EventMessageNew  = "message.new"
	EventMessageRead = "message.read"
)

type ServerEvent struct {
	Type    string                      `json:"type"`
	ChatID  string                      `json:"chat_id,omitempty"`
	Message *messagesdomain.Message     `json:"message,omitempty"`
	Read    *messagesdomain.ReadReceipt `json:"read,omitempty"`
}
