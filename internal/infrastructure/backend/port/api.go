package port

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	chat "relove-chat/internal/pkg/chat/domain"
)

var (
	// ErrUnauthorized is returned for HTTP 401 responses.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrForbidden is returned for HTTP 403 responses.
	ErrForbidden = errors.New("backend: forbidden")
	// ErrTransport wraps network level failures (dial, timeout, reset).
	ErrTransport = errors.New("backend: transport failure")
)

// StatusError is a non-2xx response. 401 and 403 unwrap to ErrUnauthorized
// and ErrForbidden.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("backend: unexpected status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	}
	return nil
}

type SendMessageRequest struct {
	Message        string    `json:"message"`
	ConversationID int64     `json:"conversation_id"`
	SenderType     chat.Role `json:"sender_type"`
	TempID         string    `json:"tempId"`
}

// SendMessageResponse echoes the persisted message and the client tempId.
type SendMessageResponse struct {
	Success bool          `json:"success"`
	Message *chat.Message `json:"message"`
	TempID  string        `json:"tempId"`
}

// StartConversationRequest opens (or reuses) the buyer's conversation with a
// seller about a product. The display names are stored on first contact.
type StartConversationRequest struct {
	SellerID   int64  `json:"seller_id"`
	ProductID  int64  `json:"product_id"`
	Message    string `json:"message"`
	Product    string `json:"product,omitempty"`
	SellerName string `json:"seller_name,omitempty"`
	BuyerName  string `json:"buyer_name,omitempty"`
}

type StartConversationResponse struct {
	Success        bool   `json:"success"`
	ConversationID int64  `json:"conversation_id"`
	Message        string `json:"message"`
}

// API is the chat backend REST contract as consumed by the client.
type API interface {
	ListConversations(ctx context.Context) ([]chat.Conversation, error)
	// GetMessages returns the conversation history oldest first.
	GetMessages(ctx context.Context, conversationID int64) ([]chat.Message, error)
	SendMessage(ctx context.Context, req SendMessageRequest) (*SendMessageResponse, error)
	MarkRead(ctx context.Context, conversationID int64) error
	StartConversation(ctx context.Context, req StartConversationRequest) (*StartConversationResponse, error)
	// AuthorizeChannel returns the signature required to subscribe socketID
	// to a private push channel.
	AuthorizeChannel(ctx context.Context, socketID, channel string) (string, error)
}
