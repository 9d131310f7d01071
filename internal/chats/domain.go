package chats

import (
	"context"
	"time"

	response "github.com/mimochat/mimo-server/internal/lib"
	messagesdomain "github.com/mimochat/mimo-server/internal/messages"
	profilesdomain "github.com/mimochat/mimo-server/internal/profiles"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type Chat struct {
	ID        string    `json:"id" db:"id"`
	IsGroup   bool      `json:"is_group" db:"is_group"`
	Name      string    `json:"name,omitempty" db:"name"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Participant struct {
	ChatID   string    `json:"chat_id" db:"chat_id"`
	UserID   string    `json:"user_id" db:"user_id"`
	Role     Role      `json:"role" db:"role"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

type ChatInfo struct {
	Chat
	Participants []profilesdomain.Profile `json:"participants"`
}

// ChatSummary is one chat-list entry from a viewer's perspective: the chat,
// the counterpart profile (private chats only), the most recent message and
// the viewer's unread count.
type ChatSummary struct {
	Chat
	Counterpart *profilesdomain.Profile `json:"counterpart,omitempty"`
	LastMessage *messagesdomain.Message `json:"last_message,omitempty"`
	UnreadCount int64                   `json:"unread_count"`
}

type ResolvePrivateChatRequest struct {
	OtherUserID string `json:"other_user_id"`
}

type CreateGroupChatRequest struct {
	Name    string   `json:"name"`
	UserIDs []string `json:"user_ids"`
}

type ResolveChatResponse struct {
	response.Response
	ChatID string `json:"chat_id"`
	IsNew  bool   `json:"is_new"`
}

type GetChatResponse struct {
	response.Response
	Chat ChatInfo `json:"chat"`
}

type GetChatsResponse struct {
	response.Response
	Chats []ChatSummary `json:"chats"`
}

type Repo interface {
	EnsurePrivateChat(ctx context.Context, chatID, userA, userB string) (created bool, err error)
	CreateGroupChat(ctx context.Context, creatorID, name string, userIDs []string) (ChatInfo, error)
	GetChat(ctx context.Context, chatID string) (ChatInfo, error)
	ParticipantIDs(ctx context.Context, chatID string) ([]string, error)
	ListSummaries(ctx context.Context, viewerID string) ([]ChatSummary, error)
}

type Service interface {
	ResolvePrivateChat(ctx context.Context, currentUserID, otherUserID string) (chatID string, isNew bool, err error)
	CreateGroupChat(ctx context.Context, creatorID string, req CreateGroupChatRequest) (ChatInfo, error)
	GetChat(ctx context.Context, chatID, viewerID string) (ChatInfo, error)
	ListChats(ctx context.Context, viewerID, query string, category Category) ([]ChatSummary, error)
	InvalidateChat(ctx context.Context, chatID string)
}

// SummaryCache is an optional read-through cache for per-viewer chat lists.
type SummaryCache interface {
	Get(ctx context.Context, viewerID string) ([]ChatSummary, bool)
	Set(ctx context.Context, viewerID string, items []ChatSummary)
	Invalidate(ctx context.Context, viewerIDs ...string)
}
