package chatsservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	chatsdomain "github.com/mimochat/mimo-server/internal/chats"
	profilesdomain "github.com/mimochat/mimo-server/internal/profiles"
)

type fakeRepo struct {
	chats        map[string][]string // chat id -> participants
	ensureCalls  int
	listCalls    int
	summaries    []chatsdomain.ChatSummary
	summariesErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{chats: make(map[string][]string)}
}

func (f *fakeRepo) EnsurePrivateChat(_ context.Context, chatID, userA, userB string) (bool, error) {
	f.ensureCalls++
	if _, ok := f.chats[chatID]; ok {
		return false, nil
	}
	f.chats[chatID] = []string{userA, userB}
	return true, nil
}

func (f *fakeRepo) CreateGroupChat(_ context.Context, creatorID, name string, userIDs []string) (chatsdomain.ChatInfo, error) {
	chatID := "group-" + name
	f.chats[chatID] = append([]string{creatorID}, userIDs...)
	return chatsdomain.ChatInfo{Chat: chatsdomain.Chat{ID: chatID, IsGroup: true, Name: name, CreatedBy: creatorID}}, nil
}

func (f *fakeRepo) GetChat(_ context.Context, chatID string) (chatsdomain.ChatInfo, error) {
	participants, ok := f.chats[chatID]
	if !ok {
		return chatsdomain.ChatInfo{}, chatsdomain.ErrChatNotFound
	}

	info := chatsdomain.ChatInfo{Chat: chatsdomain.Chat{ID: chatID}}
	for _, id := range participants {
		info.Participants = append(info.Participants, profilesdomain.Profile{ID: id})
	}
	return info, nil
}

func (f *fakeRepo) ParticipantIDs(_ context.Context, chatID string) ([]string, error) {
	return f.chats[chatID], nil
}

func (f *fakeRepo) ListSummaries(_ context.Context, _ string) ([]chatsdomain.ChatSummary, error) {
	f.listCalls++
	return f.summaries, f.summariesErr
}

type fakeProfiles struct {
	known map[string]bool
}

func (f *fakeProfiles) GetProfile(_ context.Context, id string) (profilesdomain.Profile, error) {
	if !f.known[id] {
		return profilesdomain.Profile{}, profilesdomain.ErrProfileNotFound
	}
	return profilesdomain.Profile{ID: id}, nil
}

func (f *fakeProfiles) GetProfiles(context.Context, []string) ([]profilesdomain.Profile, error) {
	return nil, nil
}

func (f *fakeProfiles) UpsertProfile(_ context.Context, p profilesdomain.Profile) (profilesdomain.Profile, error) {
	return p, nil
}

func (f *fakeProfiles) UpdateProfile(_ context.Context, id string, _ profilesdomain.UpdateProfileRequest) (profilesdomain.Profile, error) {
	return profilesdomain.Profile{ID: id}, nil
}

func (f *fakeProfiles) SearchProfiles(context.Context, string, string, int) ([]profilesdomain.Profile, error) {
	return nil, nil
}

func (f *fakeProfiles) SetOnline(context.Context, string, bool) error { return nil }

type fakeCache struct {
	data        map[string][]chatsdomain.ChatSummary
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]chatsdomain.ChatSummary)}
}

func (f *fakeCache) Get(_ context.Context, viewerID string) ([]chatsdomain.ChatSummary, bool) {
	items, ok := f.data[viewerID]
	return items, ok
}

func (f *fakeCache) Set(_ context.Context, viewerID string, items []chatsdomain.ChatSummary) {
	f.data[viewerID] = items
}

func (f *fakeCache) Invalidate(_ context.Context, viewerIDs ...string) {
	for _, id := range viewerIDs {
		delete(f.data, id)
		f.invalidated = append(f.invalidated, id)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolvePrivateChatIdempotent(t *testing.T) {
	repo := newFakeRepo()
	profiles := &fakeProfiles{known: map[string]bool{"bob": true}}
	svc := New(repo, profiles, nil, discardLogger())
	ctx := context.Background()

	first, isNew, err := svc.ResolvePrivateChat(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if !isNew {
		t.Fatal("first resolve should create")
	}

	second, isNew, err := svc.ResolvePrivateChat(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if isNew {
		t.Fatal("second resolve must reuse")
	}
	if first != second {
		t.Fatalf("resolve is not stable: %s vs %s", first, second)
	}
}

func TestResolvePrivateChatSymmetric(t *testing.T) {
	repo := newFakeRepo()
	profiles := &fakeProfiles{known: map[string]bool{"alice": true, "bob": true}}
	svc := New(repo, profiles, nil, discardLogger())
	ctx := context.Background()

	fromAlice, _, err := svc.ResolvePrivateChat(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("resolve from alice: %v", err)
	}

	fromBob, isNew, err := svc.ResolvePrivateChat(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("resolve from bob: %v", err)
	}
	if isNew {
		t.Fatal("bob must land in alice's chat, not a new one")
	}
	if fromAlice != fromBob {
		t.Fatalf("both directions must resolve to one chat: %s vs %s", fromAlice, fromBob)
	}
}

func TestResolvePrivateChatRejectsSelf(t *testing.T) {
	svc := New(newFakeRepo(), &fakeProfiles{known: map[string]bool{"alice": true}}, nil, discardLogger())

	_, _, err := svc.ResolvePrivateChat(context.Background(), "alice", "alice")
	if !errors.Is(err, chatsdomain.ErrSameUser) {
		t.Fatalf("expected ErrSameUser, got %v", err)
	}
}

func TestResolvePrivateChatUnknownCounterpart(t *testing.T) {
	svc := New(newFakeRepo(), &fakeProfiles{known: map[string]bool{}}, nil, discardLogger())

	_, _, err := svc.ResolvePrivateChat(context.Background(), "alice", "ghost")
	if !errors.Is(err, profilesdomain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestListChatsUsesCache(t *testing.T) {
	repo := newFakeRepo()
	repo.summaries = []chatsdomain.ChatSummary{{Chat: chatsdomain.Chat{ID: "c1"}}}
	cache := newFakeCache()
	svc := New(repo, &fakeProfiles{}, cache, discardLogger())
	ctx := context.Background()

	if _, err := svc.ListChats(ctx, "alice", "", chatsdomain.FilterAll); err != nil {
		t.Fatalf("first list: %v", err)
	}
	if _, err := svc.ListChats(ctx, "alice", "", chatsdomain.FilterAll); err != nil {
		t.Fatalf("second list: %v", err)
	}

	if repo.listCalls != 1 {
		t.Fatalf("expected one repo query, got %d", repo.listCalls)
	}
}

func TestListChatsCacheServesAllFilters(t *testing.T) {
	repo := newFakeRepo()
	repo.summaries = []chatsdomain.ChatSummary{
		{Chat: chatsdomain.Chat{ID: "c1"}, UnreadCount: 1},
		{Chat: chatsdomain.Chat{ID: "c2", IsGroup: true}},
	}
	cache := newFakeCache()
	svc := New(repo, &fakeProfiles{}, cache, discardLogger())
	ctx := context.Background()

	if _, err := svc.ListChats(ctx, "alice", "", chatsdomain.FilterAll); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	unread, err := svc.ListChats(ctx, "alice", "", chatsdomain.FilterUnread)
	if err != nil {
		t.Fatalf("unread list: %v", err)
	}
	if len(unread) != 1 || unread[0].ID != "c1" {
		t.Fatalf("unread filter over cached list wrong: %+v", unread)
	}

	if repo.listCalls != 1 {
		t.Fatalf("filtered list must reuse cache, repo queried %d times", repo.listCalls)
	}
}

func TestInvalidateChatDropsParticipants(t *testing.T) {
	repo := newFakeRepo()
	repo.chats["c1"] = []string{"alice", "bob"}
	cache := newFakeCache()
	cache.data["alice"] = []chatsdomain.ChatSummary{}
	cache.data["bob"] = []chatsdomain.ChatSummary{}
	svc := New(repo, &fakeProfiles{}, cache, discardLogger())

	svc.InvalidateChat(context.Background(), "c1")

	if len(cache.data) != 0 {
		t.Fatalf("expected both viewers invalidated, cache still holds %v", cache.data)
	}
}

func TestGetChatRequiresMembership(t *testing.T) {
	repo := newFakeRepo()
	repo.chats["c1"] = []string{"alice", "bob"}
	svc := New(repo, &fakeProfiles{}, nil, discardLogger())

	if _, err := svc.GetChat(context.Background(), "c1", "mallory"); !errors.Is(err, chatsdomain.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}

	if _, err := svc.GetChat(context.Background(), "c1", "alice"); err != nil {
		t.Fatalf("member should see the chat: %v", err)
	}
}
