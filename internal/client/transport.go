package client

import (
	"context"

	chatsdomain "github.com/mimochat/mimo-server/internal/chats"
	messagesdomain "github.com/mimochat/mimo-server/internal/messages"
	profilesdomain "github.com/mimochat/mimo-server/internal/profiles"
	"github.com/mimochat/mimo-server/internal/ws"
)

// Transport is the client's view of the server. The production implementation
// speaks HTTP and websocket; tests substitute an in-memory fake.
type Transport interface {
	SignIn(ctx context.Context, credential string) (string, profilesdomain.Profile, error)

	Chats(ctx context.Context, query string, category chatsdomain.Category) ([]chatsdomain.ChatSummary, error)
	ResolvePrivateChat(ctx context.Context, otherUserID string) (chatID string, isNew bool, err error)
	GetChat(ctx context.Context, chatID string) (chatsdomain.ChatInfo, error)

	Messages(ctx context.Context, chatID string) ([]messagesdomain.Message, error)
	SendMessage(ctx context.Context, chatID string, req messagesdomain.SendMessageRequest) (messagesdomain.Message, error)
	MarkRead(ctx context.Context, chatID string) (int64, error)

	SearchProfiles(ctx context.Context, query string) ([]profilesdomain.Profile, error)

	// Listen opens the realtime event stream. chatIDs selects the chats to
	// follow; hub.ChatAll follows everything. The returned stop function
	// closes the stream and the channel.
	Listen(ctx context.Context, chatIDs []string) (<-chan ws.ServerEvent, func(), error)
}
