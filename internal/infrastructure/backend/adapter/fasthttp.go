package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"relove-chat/internal/infrastructure/backend/port"
	chat "relove-chat/internal/pkg/chat/domain"
)

const defaultTimeout = 10 * time.Second

// Client implements port.API over fasthttp.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *fasthttp.Client
}

// NewClient builds a client for baseURL authenticating with a bearer token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "relove-chatsync",
			MaxIdleConnDuration: 30 * time.Second,
		},
	}
}

var _ port.API = (*Client)(nil)

func (c *Client) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	body, err := c.do(ctx, fasthttp.MethodGet, "/conversations", nil)
	if err != nil {
		return nil, err
	}
	return decodeConversations(body), nil
}

func (c *Client) GetMessages(ctx context.Context, conversationID int64) ([]chat.Message, error) {
	body, err := c.do(ctx, fasthttp.MethodGet, "/messages/"+strconv.FormatInt(conversationID, 10), nil)
	if err != nil {
		return nil, err
	}
	return decodeMessages(body), nil
}

func (c *Client) SendMessage(ctx context.Context, req port.SendMessageRequest) (*port.SendMessageResponse, error) {
	body, err := c.do(ctx, fasthttp.MethodPost, "/send-message", req)
	if err != nil {
		return nil, err
	}
	var out port.SendMessageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		// the send went through; an unreadable echo only loses confirmation
		return &port.SendMessageResponse{Success: true, TempID: req.TempID}, nil
	}
	return &out, nil
}

func (c *Client) MarkRead(ctx context.Context, conversationID int64) error {
	_, err := c.do(ctx, fasthttp.MethodPost, "/conversations/"+strconv.FormatInt(conversationID, 10)+"/mark-read", nil)
	return err
}

func (c *Client) StartConversation(ctx context.Context, req port.StartConversationRequest) (*port.StartConversationResponse, error) {
	body, err := c.do(ctx, fasthttp.MethodPost, "/start-conversation", req)
	if err != nil {
		return nil, err
	}
	var out port.StartConversationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("backend: decode start-conversation response: %w", err)
	}
	return &out, nil
}

func (c *Client) AuthorizeChannel(ctx context.Context, socketID, channel string) (string, error) {
	body, err := c.do(ctx, fasthttp.MethodPost, "/broadcasting/auth", map[string]string{
		"socket_id":    socketID,
		"channel_name": channel,
	})
	if err != nil {
		return "", err
	}
	var out struct {
		Auth string `json:"auth"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Auth == "" {
		return "", fmt.Errorf("backend: channel authorization returned no signature")
	}
	return out.Auth, nil
}

// do performs one request and returns a copy of the 2xx response body.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if c.token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+c.token)
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(b)
	}

	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until < timeout {
			timeout = until
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrTransport, err)
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", port.ErrTransport, method, path, err)
	}

	code := resp.StatusCode()
	if code < 200 || code >= 300 {
		return nil, &port.StatusError{Code: code, Message: errorMessage(resp.Body())}
	}
	return append([]byte(nil), resp.Body()...), nil
}

// decodeMessages accepts a bare array or an object wrapping the array under
// "message", "messages" or "data". Anything else yields an empty list.
func decodeMessages(body []byte) []chat.Message {
	var list []chat.Message
	if json.Unmarshal(body, &list) == nil {
		return nonNil(list)
	}
	var wrapped map[string]json.RawMessage
	if json.Unmarshal(body, &wrapped) != nil {
		return []chat.Message{}
	}
	for _, key := range []string{"message", "messages", "data"} {
		raw, ok := wrapped[key]
		if !ok {
			continue
		}
		if json.Unmarshal(raw, &list) == nil {
			return nonNil(list)
		}
	}
	return []chat.Message{}
}

func decodeConversations(body []byte) []chat.Conversation {
	var list []chat.Conversation
	if json.Unmarshal(body, &list) == nil {
		return nonNil(list)
	}
	var wrapped map[string]json.RawMessage
	if json.Unmarshal(body, &wrapped) != nil {
		return []chat.Conversation{}
	}
	for _, key := range []string{"conversations", "data"} {
		if raw, ok := wrapped[key]; ok && json.Unmarshal(raw, &list) == nil {
			return nonNil(list)
		}
	}
	return []chat.Conversation{}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func errorMessage(body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		return e.Message
	}
	return ""
}
