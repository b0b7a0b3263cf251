package chat

import "errors"

// Domain-level errors for chat behaviors
var (
	ErrMissingParticipants  = errors.New("chat: conversation_id and sender_id are required")
	ErrEmptyMessage         = errors.New("chat: empty message")
	ErrMessageTooLong       = errors.New("chat: message exceeds 1000 characters")
	ErrInvalidRole          = errors.New("chat: role must be buyer or seller")
	ErrInvalidChannel       = errors.New("chat: malformed private channel name")
	ErrNotParticipant       = errors.New("chat: user is not a participant in the conversation")
	ErrConversationNotFound = errors.New("chat: conversation not found")
	ErrBuyerOnly            = errors.New("chat: only buyers can start a conversation")
)
