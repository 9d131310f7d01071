package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/mimochat/mimo-server/internal/auth"
	chatsdomain "github.com/mimochat/mimo-server/internal/chats"
	"github.com/mimochat/mimo-server/internal/client"
	"github.com/mimochat/mimo-server/internal/client/chatcache"
	"github.com/mimochat/mimo-server/internal/lib/logger/sl"
	messagesdomain "github.com/mimochat/mimo-server/internal/messages"
	"github.com/mimochat/mimo-server/internal/storage/sqlite"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8082", "server base URL")
	userID := flag.String("user", "", "user id to sign in as")
	email := flag.String("email", "", "email for the dev identity")
	cachePath := flag.String("cache", defaultCachePath(), "local chat cache file")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: mimo-cli -user <id> [-email <email>] [-server <url>]")
		os.Exit(2)
	}

	ctx := context.Background()

	transport := client.NewHTTPTransport(*serverURL)

	credential, _ := json.Marshal(auth.Identity{UserID: *userID, Email: *email})
	_, profile, err := transport.SignIn(ctx, string(credential))
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign in failed: %v\n", err)
		os.Exit(1)
	}

	color.Green("signed in as %s (%s)", profile.DisplayName, profile.ID)

	var cache *chatcache.Store
	if db, err := sqlite.New(*cachePath); err != nil {
		log.Warn("local cache unavailable", sl.Err(err))
	} else {
		defer db.Close()
		cache = chatcache.New(db, profile.ID)
	}

	app := &app{
		transport: transport,
		cache:     cache,
		viewerID:  profile.ID,
		log:       log,
	}

	app.run(ctx)
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mimo-cache.db"
	}
	return home + "/.mimo-cache.db"
}

type app struct {
	transport *client.HTTPTransport
	cache     *chatcache.Store
	viewerID  string
	log       *slog.Logger

	chats []chatsdomain.ChatSummary
}

func (a *app) run(ctx context.Context) {
	a.showCachedChats(ctx)
	a.refreshChats(ctx, "", chatsdomain.FilterAll)

	scanner := bufio.NewScanner(os.Stdin)
	a.prompt()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)

		if len(fields) == 0 {
			a.prompt()
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return
		case "chats":
			a.refreshChats(ctx, "", chatsdomain.FilterAll)
		case "unread":
			a.refreshChats(ctx, "", chatsdomain.FilterUnread)
		case "groups":
			a.refreshChats(ctx, "", chatsdomain.FilterGroups)
		case "search":
			a.refreshChats(ctx, strings.Join(fields[1:], " "), chatsdomain.FilterAll)
		case "find":
			a.findUsers(ctx, strings.Join(fields[1:], " "))
		case "msg":
			if len(fields) < 2 {
				color.Red("usage: msg <user-id>")
				break
			}
			a.openPrivate(ctx, fields[1])
		case "open":
			if len(fields) < 2 {
				color.Red("usage: open <number>")
				break
			}
			a.openByIndex(ctx, fields[1])
		case "pin", "unpin":
			if len(fields) < 2 {
				color.Red("usage: %s <number>", fields[0])
				break
			}
			a.setPinned(ctx, fields[1], fields[0] == "pin")
		default:
			color.Yellow("commands: chats | unread | groups | search <q> | find <q> | msg <user> | open <n> | pin <n> | unpin <n> | quit")
		}

		a.prompt()
	}
}

func (a *app) prompt() {
	fmt.Print(color.CyanString("> "))
}

func (a *app) showCachedChats(ctx context.Context) {
	if a.cache == nil {
		return
	}

	cached, err := a.cache.List(ctx)
	if err != nil || len(cached) == 0 {
		return
	}

	color.White("cached chats:")
	for i, chat := range cached {
		line := fmt.Sprintf("%2d. %s", i+1, chat.Name)
		if chat.LastMessage != "" {
			line += " — " + chat.LastMessage
		}
		if chat.IsPinned {
			line += " *"
		}
		fmt.Println(line)
	}
}

func (a *app) refreshChats(ctx context.Context, query string, category chatsdomain.Category) {
	chats, err := a.transport.Chats(ctx, query, category)
	if err != nil {
		color.Red("failed to load chats: %v", err)
		return
	}

	a.chats = chats

	if a.cache != nil && query == "" && category == chatsdomain.FilterAll {
		if err := a.cache.Save(ctx, chats); err != nil {
			a.log.Warn("failed to update local cache", sl.Err(err))
		}
	}

	if len(chats) == 0 {
		color.White("no chats")
		return
	}

	for i, chat := range chats {
		name := chat.Name
		if chat.Counterpart != nil {
			name = chat.Counterpart.DisplayName
		}

		line := fmt.Sprintf("%2d. %s", i+1, name)
		if chat.LastMessage != nil {
			line += " — " + truncate(chat.LastMessage.Content, 40)
		}
		if chat.UnreadCount > 0 {
			line += color.RedString(" (%d)", chat.UnreadCount)
		}
		fmt.Println(line)
	}
}

func (a *app) findUsers(ctx context.Context, query string) {
	profiles, err := a.transport.SearchProfiles(ctx, query)
	if err != nil {
		color.Red("search failed: %v", err)
		return
	}

	for _, p := range profiles {
		fmt.Printf("%s  %s <%s>\n", p.ID, p.DisplayName, p.Email)
	}
}

func (a *app) openPrivate(ctx context.Context, otherUserID string) {
	chatID, isNew, err := a.transport.ResolvePrivateChat(ctx, otherUserID)
	if err != nil {
		color.Red("failed to open chat: %v", err)
		return
	}

	if isNew {
		color.White("new conversation")
	}

	a.converse(ctx, chatID)
}

func (a *app) openByIndex(ctx context.Context, raw string) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > len(a.chats) {
		color.Red("no such chat")
		return
	}

	a.converse(ctx, a.chats[n-1].ID)
}

func (a *app) setPinned(ctx context.Context, raw string, pinned bool) {
	if a.cache == nil {
		color.Red("local cache unavailable")
		return
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > len(a.chats) {
		color.Red("no such chat")
		return
	}

	if err := a.cache.SetPinned(ctx, a.chats[n-1].ID, pinned); err != nil {
		color.Red("failed to update pin: %v", err)
	}
}

// converse runs an open conversation until the user types /back: incoming
// messages print as they arrive, anything else typed is sent.
func (a *app) converse(ctx context.Context, chatID string) {
	session, err := client.Open(ctx, a.transport, chatID, a.viewerID, a.log)
	if err != nil {
		color.Red("failed to open session: %v", err)
		return
	}
	defer session.Close()

	printed := make(map[string]bool)
	render := func() {
		for _, msg := range session.Messages() {
			if printed[msg.ID] {
				continue
			}
			printed[msg.ID] = true
			printMessage(msg)
		}
	}
	render()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-session.Updates():
				render()
			}
		}
	}()
	defer close(done)

	color.White("type a message, /back to leave")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "/back" {
			return
		}
		if line == "" {
			continue
		}

		if _, err := session.Send(ctx, line); err != nil {
			color.Red("send failed: %v", err)
		}
	}
}

func printMessage(msg client.DisplayMessage) {
	ts := msg.CreatedAt.Local().Format("15:04")

	if msg.IsMine {
		fmt.Printf("%s %s %s\n", ts, color.GreenString("me:"), msg.Content+statusMark(msg.Status))
		return
	}

	fmt.Printf("%s %s %s\n", ts, color.BlueString(msg.SenderID+":"), msg.Content)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

func statusMark(status messagesdomain.Status) string {
	switch status {
	case messagesdomain.StatusSending:
		return " …"
	case messagesdomain.StatusSent, messagesdomain.StatusDelivered:
		return " ✓"
	case messagesdomain.StatusRead:
		return " ✓✓"
	case messagesdomain.StatusFailed:
		return color.RedString(" !")
	}
	return ""
}
