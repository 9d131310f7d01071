package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mimochat/mimo-server/internal/auth"
	chatsdomain "github.com/mimochat/mimo-server/internal/chats"
	response "github.com/mimochat/mimo-server/internal/lib"
	messagesdomain "github.com/mimochat/mimo-server/internal/messages"
	profilesdomain "github.com/mimochat/mimo-server/internal/profiles"
	"github.com/mimochat/mimo-server/internal/ws"
)

// HTTPTransport talks to a running server over its HTTP API and websocket
// stream. SignIn must succeed before any other call.
type HTTPTransport struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (t *HTTPTransport) SignIn(ctx context.Context, credential string) (string, profilesdomain.Profile, error) {
	const op = "client.http.SignIn"

	var resp auth.SignInResponse
	err := t.call(ctx, http.MethodPost, "/signin", auth.SignInRequest{Credential: credential}, &resp)
	if err != nil {
		return "", profilesdomain.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	t.token = resp.Token

	return resp.Token, resp.Profile, nil
}

func (t *HTTPTransport) Chats(ctx context.Context, query string, category chatsdomain.Category) ([]chatsdomain.ChatSummary, error) {
	const op = "client.http.Chats"

	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	if category != "" && category != chatsdomain.FilterAll {
		params.Set("filter", string(category))
	}

	path := "/chats"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp chatsdomain.GetChatsResponse
	if err := t.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return resp.Chats, nil
}

func (t *HTTPTransport) ResolvePrivateChat(ctx context.Context, otherUserID string) (string, bool, error) {
	const op = "client.http.ResolvePrivateChat"

	var resp chatsdomain.ResolveChatResponse
	err := t.call(ctx, http.MethodPost, "/chats/private",
		chatsdomain.ResolvePrivateChatRequest{OtherUserID: otherUserID}, &resp)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	return resp.ChatID, resp.IsNew, nil
}

func (t *HTTPTransport) GetChat(ctx context.Context, chatID string) (chatsdomain.ChatInfo, error) {
	const op = "client.http.GetChat"

	var resp chatsdomain.GetChatResponse
	if err := t.call(ctx, http.MethodGet, "/chats/"+chatID, nil, &resp); err != nil {
		return chatsdomain.ChatInfo{}, fmt.Errorf("%s: %w", op, err)
	}

	return resp.Chat, nil
}

func (t *HTTPTransport) Messages(ctx context.Context, chatID string) ([]messagesdomain.Message, error) {
	const op = "client.http.Messages"

	var resp messagesdomain.GetMessagesResponse
	if err := t.call(ctx, http.MethodGet, "/chats/"+chatID+"/messages", nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return resp.Messages, nil
}

func (t *HTTPTransport) SendMessage(ctx context.Context, chatID string, req messagesdomain.SendMessageRequest) (messagesdomain.Message, error) {
	const op = "client.http.SendMessage"

	var resp messagesdomain.SendMessageResponse
	if err := t.call(ctx, http.MethodPost, "/chats/"+chatID+"/messages", req, &resp); err != nil {
		return messagesdomain.Message{}, fmt.Errorf("%s: %w", op, err)
	}

	return resp.Message, nil
}

func (t *HTTPTransport) MarkRead(ctx context.Context, chatID string) (int64, error) {
	const op = "client.http.MarkRead"

	var resp messagesdomain.MarkReadResponse
	if err := t.call(ctx, http.MethodPost, "/chats/"+chatID+"/read", nil, &resp); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return resp.Updated, nil
}

func (t *HTTPTransport) SearchProfiles(ctx context.Context, query string) ([]profilesdomain.Profile, error) {
	const op = "client.http.SearchProfiles"

	params := url.Values{}
	params.Set("q", query)

	var resp profilesdomain.SearchProfilesResponse
	if err := t.call(ctx, http.MethodGet, "/profiles/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return resp.Profiles, nil
}

// Listen dials the websocket endpoint, subscribes to the requested chats and
// decodes server events onto the returned channel until stopped.
func (t *HTTPTransport) Listen(ctx context.Context, chatIDs []string) (<-chan ws.ServerEvent, func(), error) {
	const op = "client.http.Listen"

	if t.token == "" {
		return nil, nil, ErrNotSignedIn
	}

	wsURL, err := t.websocketURL()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	sub := map[string]any{"type": "subscribe", "chat_ids": chatIDs}
	for _, id := range chatIDs {
		if id == "*" {
			sub = map[string]any{"type": "subscribe_all"}
			break
		}
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("%s: subscribe: %w", op, err)
	}

	events := make(chan ws.ServerEvent, 64)

	go func() {
		defer close(events)
		for {
			var evt ws.ServerEvent
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			if evt.Type == ws.EventHello {
				continue
			}
			select {
			case events <- evt:
			default:
			}
		}
	}()

	stop := func() {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}

	return events, stop, nil
}

func (t *HTTPTransport) websocketURL() (string, error) {
	u, err := url.Parse(t.baseURL + "/ws")
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	q := u.Query()
	q.Set("token", t.token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (t *HTTPTransport) call(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	var envelope response.Response
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	if envelope.Status == response.StatusError {
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, envelope.Error)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server error: status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode body: %w", err)
		}
	}

	return nil
}
