package repository

import (
	"context"

	chat "relove-chat/internal/pkg/chat/domain"
)

// ChatRepository defines persistence operations for buyer/seller conversations.
// GetConversation returns chat.ErrConversationNotFound for unknown ids.
type ChatRepository interface {
	ListConversationsFor(ctx context.Context, viewer chat.Identity) ([]chat.ConversationRecord, error)
	GetConversation(ctx context.Context, id int64) (*chat.ConversationRecord, error)
	// FindOrCreateConversation returns the conversation for the buyer, seller
	// and product of c, inserting it when missing. created reports an insert.
	FindOrCreateConversation(ctx context.Context, c chat.ConversationRecord) (rec *chat.ConversationRecord, created bool, err error)
	// SaveMessage persists m and advances the conversation preview and the
	// counterpart unread counter in one transaction.
	SaveMessage(ctx context.Context, m chat.Message) (*chat.Message, error)
	// GetMessages returns the conversation history oldest first.
	GetMessages(ctx context.Context, conversationID int64) ([]chat.Message, error)
	// MarkRead zeroes the viewer's unread counter and flags the counterpart's
	// messages as read.
	MarkRead(ctx context.Context, conversationID int64, viewer chat.Role) error
}
