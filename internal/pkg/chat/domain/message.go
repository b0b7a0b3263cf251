package chat

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxBodyLength caps the text of a single message, in characters.
const MaxBodyLength = 1000

// Message is one entry of a conversation as exchanged with the backend and
// the push channel.
//
// ID is zero until the backend has persisted the message. TempID is the
// client correlation key of a locally composed message; the backend echoes it
// back in the send response and in the MessageSent broadcast.
type Message struct {
	ID             int64     `json:"id,omitempty"`
	TempID         string    `json:"tempId,omitempty"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	SenderType     Role      `json:"sender_type"`
	Body           string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read"`
	IsOptimistic   bool      `json:"isOptimistic,omitempty"`

	// SendFailed is client-side state only: the POST for this optimistic
	// entry failed and the entry was kept.
	SendFailed bool `json:"-"`
}

// From reports whether the message was sent by the given identity.
func (m Message) From(id Identity) bool {
	return m.SenderType == id.Role && m.SenderID == id.ID
}

// NewMessage validates and normalizes a message before it is persisted.
func NewMessage(m Message) (*Message, error) {
	if m.ConversationID == 0 || m.SenderID == 0 {
		return nil, ErrMissingParticipants
	}
	if !m.SenderType.Valid() {
		return nil, ErrInvalidRole
	}

	body, err := NormalizeBody(m.Body)
	if err != nil {
		return nil, err
	}
	m.Body = body

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.ID = 0
	m.IsOptimistic = false

	return &m, nil
}

// NormalizeBody trims body and enforces the non-empty and length rules.
func NormalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return "", ErrMessageTooLong
	}
	return body, nil
}
