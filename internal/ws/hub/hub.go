package hub

import (
	"sync"

	"github.com/gorilla/websocket"
)

// ChatAll subscribes a connection to every chat's events. Used by clients
// that keep a chat list on screen and want updates for chats they have not
// opened.
const ChatAll = "*"

type Connection struct {
	conn      *websocket.Conn
	send      chan []byte
	chatIDs   map[string]struct{}
	userID    string
	closeOnce sync.Once
}

func (c *Connection) UserID() string { return c.userID }

type SubscribeCmd struct {
	c       *Connection
	chatIDs []string
}

type BroadcastCmd struct {
	ChatID      string
	Payload     []byte
	ExcludeUser string
}

type Hub struct {
	register   chan *Connection
	unregister chan *Connection
	subscribe  chan SubscribeCmd
	broadcast  chan BroadcastCmd
	chats      map[string]map[*Connection]struct{}
}

func NewConnection(conn *websocket.Conn, userID string) *Connection {
	return &Connection{
		conn:    conn,
		send:    make(chan []byte, 128),
		chatIDs: make(map[string]struct{}),
		userID:  userID,
	}
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Connection, 64),
		unregister: make(chan *Connection, 64),
		subscribe:  make(chan SubscribeCmd, 64),
		broadcast:  make(chan BroadcastCmd, 256),
		chats:      make(map[string]map[*Connection]struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			_ = c

		case c := <-h.unregister:
			for chatID := range c.chatIDs {
				room := h.chats[chatID]
				if room == nil {
					continue
				}
				delete(room, c)
				if len(room) == 0 {
					delete(h.chats, chatID)
				}
			}
			c.CloseSend()

		case cmd := <-h.subscribe:
			for _, chatID := range cmd.chatIDs {
				room := h.chats[chatID]
				if room == nil {
					room = make(map[*Connection]struct{})
					h.chats[chatID] = room
				}
				room[cmd.c] = struct{}{}
				cmd.c.chatIDs[chatID] = struct{}{}
			}

		case b := <-h.broadcast:
			room := h.chats[b.ChatID]
			for c := range room {
				if b.ExcludeUser != "" && c.userID == b.ExcludeUser {
					continue
				}
				c.Send(b.Payload)
			}

			// Wildcard subscribers get every broadcast, unless they are
			// already in the chat room.
			for c := range h.chats[ChatAll] {
				if b.ExcludeUser != "" && c.userID == b.ExcludeUser {
					continue
				}
				if _, inRoom := room[c]; inRoom {
					continue
				}
				c.Send(b.Payload)
			}
		}
	}
}

func (h *Hub) Register(c *Connection) {
	h.register <- c
}

func (h *Hub) Unregister(c *Connection) {
	h.unregister <- c
}

func (h *Hub) Subscribe(c *Connection, chatIDs []string) {
	h.subscribe <- SubscribeCmd{
		c:       c,
		chatIDs: chatIDs,
	}
}

func (h *Hub) Broadcast(chatID string, payload []byte) {
	h.broadcast <- BroadcastCmd{
		ChatID:  chatID,
		Payload: payload,
	}
}

func (h *Hub) BroadcastExceptUser(chatID string, payload []byte, excludeUserID string) {
	h.broadcast <- BroadcastCmd{
		ChatID:      chatID,
		Payload:     payload,
		ExcludeUser: excludeUserID,
	}
}

func (c *Connection) Send(b []byte) {
	select {
	case c.send <- b:
	default:
	}
}

func (c *Connection) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
