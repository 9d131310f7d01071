package chatsservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mimochat/mimo-server/internal/auth"
	chatsdomain "github.com/mimochat/mimo-server/internal/chats"
	"github.com/mimochat/mimo-server/internal/lib/logger/sl"
	profilesdomain "github.com/mimochat/mimo-server/internal/profiles"
)

type Service struct {
	repo     chatsdomain.Repo
	profiles profilesdomain.Repo
	cache    chatsdomain.SummaryCache
	log      *slog.Logger
}

// New wires the chat service. cache may be nil, in which case every list
// request goes to the database.
func New(repo chatsdomain.Repo, profiles profilesdomain.Repo, cache chatsdomain.SummaryCache, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		profiles: profiles,
		cache:    cache,
		log:      log,
	}
}

// ResolvePrivateChat maps the unordered user pair to its canonical chat,
// creating the chat on first contact. The id is derived from the pair, so
// repeated and concurrent calls converge on the same chat.
func (s *Service) ResolvePrivateChat(ctx context.Context, currentUserID, otherUserID string) (string, bool, error) {
	const op = "chats.service.ResolvePrivateChat"

	if currentUserID == "" {
		return "", false, auth.ErrNotAuthenticated
	}
	if otherUserID == "" || otherUserID == currentUserID {
		return "", false, chatsdomain.ErrSameUser
	}

	if _, err := s.profiles.GetProfile(ctx, otherUserID); err != nil {
		if errors.Is(err, profilesdomain.ErrProfileNotFound) {
			return "", false, profilesdomain.ErrProfileNotFound
		}
		return "", false, fmt.Errorf("%s: lookup counterpart: %w", op, err)
	}

	chatID := chatsdomain.PrivateChatID(currentUserID, otherUserID)

	created, err := s.repo.EnsurePrivateChat(ctx, chatID, currentUserID, otherUserID)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	if created {
		s.invalidate(ctx, currentUserID, otherUserID)
	}

	return chatID, created, nil
}

func (s *Service) CreateGroupChat(ctx context.Context, creatorID string, req chatsdomain.CreateGroupChatRequest) (chatsdomain.ChatInfo, error) {
	const op = "chats.service.CreateGroupChat"

	if creatorID == "" {
		return chatsdomain.ChatInfo{}, auth.ErrNotAuthenticated
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return chatsdomain.ChatInfo{}, chatsdomain.ErrEmptyGroupName
	}

	members := make([]string, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		if id != "" && id != creatorID {
			members = append(members, id)
		}
	}
	if len(members) == 0 {
		return chatsdomain.ChatInfo{}, chatsdomain.ErrEmptyParticipants
	}

	info, err := s.repo.CreateGroupChat(ctx, creatorID, name, members)
	if err != nil {
		return chatsdomain.ChatInfo{}, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, append(members, creatorID)...)

	return info, nil
}

func (s *Service) GetChat(ctx context.Context, chatID, viewerID string) (chatsdomain.ChatInfo, error) {
	const op = "chats.service.GetChat"

	info, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, chatsdomain.ErrChatNotFound) {
			return chatsdomain.ChatInfo{}, chatsdomain.ErrChatNotFound
		}
		return chatsdomain.ChatInfo{}, fmt.Errorf("%s: %w", op, err)
	}

	for _, p := range info.Participants {
		if p.ID == viewerID {
			return info, nil
		}
	}

	return chatsdomain.ChatInfo{}, chatsdomain.ErrNotParticipant
}

// ListChats returns the viewer's chat list, newest activity first, narrowed
// by the optional search query and category. The unfiltered list is served
// from the summary cache when possible; filters are applied in memory so a
// cached list answers every filter combination.
func (s *Service) ListChats(ctx context.Context, viewerID, query string, category chatsdomain.Category) ([]chatsdomain.ChatSummary, error) {
	const op = "chats.service.ListChats"

	summaries, ok := s.cachedSummaries(ctx, viewerID)
	if !ok {
		var err error
		summaries, err = s.repo.ListSummaries(ctx, viewerID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if s.cache != nil {
			s.cache.Set(ctx, viewerID, summaries)
		}
	}

	return chatsdomain.ApplyFilters(summaries, query, category), nil
}

// InvalidateChat drops the cached chat list of every participant. Called when
// chat activity (new message, read receipt) makes the summaries stale.
func (s *Service) InvalidateChat(ctx context.Context, chatID string) {
	const op = "chats.service.InvalidateChat"

	if s.cache == nil {
		return
	}

	ids, err := s.repo.ParticipantIDs(ctx, chatID)
	if err != nil {
		s.log.Warn("failed to resolve participants for invalidation",
			slog.String("op", op),
			slog.String("chat_id", chatID),
			sl.Err(err),
		)
		return
	}

	s.cache.Invalidate(ctx, ids...)
}

func (s *Service) cachedSummaries(ctx context.Context, viewerID string) ([]chatsdomain.ChatSummary, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(ctx, viewerID)
}

func (s *Service) invalidate(ctx context.Context, viewerIDs ...string) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, viewerIDs...)
}
