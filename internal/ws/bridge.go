package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	chatsdomain "github.com/mimochat/mimo-server/internal/chats"
	"github.com/mimochat/mimo-server/internal/feed"
	"github.com/mimochat/mimo-server/internal/lib/logger/sl"
	messagesdomain "github.com/mimochat/mimo-server/internal/messages"
	"github.com/mimochat/mimo-server/internal/ws/hub"
)

// Bridge forwards change-feed events to websocket subscribers and drops the
// affected participants' cached chat lists. It runs until ctx is cancelled.
type Bridge struct {
	feed  *feed.Feed
	hub   *hub.Hub
	chats chatsdomain.Service
	log   *slog.Logger
}

func NewBridge(f *feed.Feed, h *hub.Hub, chats chatsdomain.Service, log *slog.Logger) *Bridge {
	return &Bridge{feed: f, hub: h, chats: chats, log: log}
}

func (b *Bridge) Run(ctx context.Context) {
	events, unsub := b.feed.Subscribe("", 256)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			b.handle(ctx, evt)
		}
	}
}

func (b *Bridge) handle(ctx context.Context, evt feed.Event) {
	const op = "ws.bridge.handle"

	serverEvt, excludeUser, ok := translate(evt)
	if !ok {
		b.log.Warn("unexpected feed event payload",
			slog.String("op", op),
			slog.String("event_type", string(evt.Type)),
		)
		return
	}

	payload, err := json.Marshal(serverEvt)
	if err != nil {
		b.log.Error("failed to encode server event", slog.String("op", op), sl.Err(err))
		return
	}

	b.hub.BroadcastExceptUser(evt.ChatID, payload, excludeUser)
	b.chats.InvalidateChat(ctx, evt.ChatID)
}

// translate maps a feed event to its wire form and the user whose own action
// produced it. That user already applied the change locally and is excluded
// from the broadcast.
func translate(evt feed.Event) (ServerEvent, string, bool) {
	switch evt.Type {
	case feed.MessageInserted:
		msg, ok := evt.Payload.(messagesdomain.Message)
		if !ok {
			return ServerEvent{}, "", false
		}
		return ServerEvent{
			Type:    EventMessageNew,
			ChatID:  evt.ChatID,
			Message: &msg,
		}, msg.SenderID, true

	case feed.MessagesRead:
		receipt, ok := evt.Payload.(messagesdomain.ReadReceipt)
		if !ok {
			return ServerEvent{}, "", false
		}
		return ServerEvent{
			Type:   EventMessageRead,
			ChatID: evt.ChatID,
			Read:   &receipt,
		}, receipt.ReaderID, true
	}

	return ServerEvent{}, "", false
}
