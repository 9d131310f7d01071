package chats

import "errors"

var (
	ErrChatNotFound      = errors.New("chat not found")
	ErrNotParticipant    = errors.New("user is not a chat participant")
	ErrEmptyParticipants = errors.New("no participants provided")
	ErrEmptyGroupName    = errors.New("group name is required")
	ErrSameUser          = errors.New("cannot resolve a private chat without a counterpart")
)
