package messages

import "errors"

var (
	ErrEmptyContent       = errors.New("message content is required")
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrChatNotFound       = errors.New("chat not found")
	ErrNotParticipant     = errors.New("user is not a chat participant")
)
