package adapter

import (
	"context"
	"sort"
	"sync"
	"time"

	chat "relove-chat/internal/pkg/chat/domain"
	repository "relove-chat/internal/pkg/chat/persistence/repository/port"
)

// MemoryChatRepository keeps conversations in process memory. It backs the
// service when no DB_URL is configured.
type MemoryChatRepository struct {
	mu            sync.RWMutex
	conversations map[int64]*chat.ConversationRecord
	messages      map[int64][]chat.Message
	nextConvID    int64
	nextMsgID     int64
}

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		conversations: make(map[int64]*chat.ConversationRecord),
		messages:      make(map[int64][]chat.Message),
	}
}

var (
	_ repository.ChatRepository = (*MemoryChatRepository)(nil)
	_ repository.ChatRepository = (*PgChatRepository)(nil)
)

func (r *MemoryChatRepository) ListConversationsFor(_ context.Context, viewer chat.Identity) ([]chat.ConversationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]chat.ConversationRecord, 0)
	for _, c := range r.conversations {
		if c.HasParticipant(viewer) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastMessageAt, out[j].LastMessageAt
		switch {
		case a == nil && b == nil:
			return out[i].ID > out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return out[i].ID > out[j].ID
		}
		return a.After(*b)
	})
	return out, nil
}

func (r *MemoryChatRepository) GetConversation(_ context.Context, id int64) (*chat.ConversationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, chat.ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryChatRepository) FindOrCreateConversation(_ context.Context, c chat.ConversationRecord) (*chat.ConversationRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.conversations {
		if existing.BuyerID == c.BuyerID && existing.SellerID == c.SellerID && existing.ProductID == c.ProductID {
			cp := *existing
			return &cp, false, nil
		}
	}
	r.nextConvID++
	c.ID = r.nextConvID
	c.CreatedAt = time.Now().UTC()
	c.LastMessage, c.LastMessageAt = "", nil
	c.UnreadCountBuyer, c.UnreadCountSeller = 0, 0
	stored := c
	r.conversations[c.ID] = &stored
	return &c, true, nil
}

func (r *MemoryChatRepository) SaveMessage(_ context.Context, m chat.Message) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[m.ConversationID]
	if !ok {
		return nil, chat.ErrConversationNotFound
	}
	r.nextMsgID++
	m.ID = r.nextMsgID
	r.messages[m.ConversationID] = append(r.messages[m.ConversationID], m)

	at := m.CreatedAt
	c.LastMessage = m.Body
	c.LastMessageAt = &at
	if m.SenderType == chat.RoleBuyer {
		c.UnreadCountSeller++
	} else {
		c.UnreadCountBuyer++
	}
	return &m, nil
}

func (r *MemoryChatRepository) GetMessages(_ context.Context, conversationID int64) ([]chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]chat.Message{}, r.messages[conversationID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryChatRepository) MarkRead(_ context.Context, conversationID int64, viewer chat.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationID]
	if !ok {
		return chat.ErrConversationNotFound
	}
	if viewer == chat.RoleSeller {
		c.UnreadCountSeller = 0
	} else {
		c.UnreadCountBuyer = 0
	}
	msgs := r.messages[conversationID]
	for i := range msgs {
		if msgs[i].SenderType != viewer {
			msgs[i].Read = true
		}
	}
	return nil
}
