package chat

import "time"

// Conversation is a buyer/seller thread about one product, as seen by one of
// its two participants. UnreadCount is the viewer's counter.
type Conversation struct {
	ID            int64      `json:"id"`
	BuyerID       int64      `json:"buyer_id"`
	SellerID      int64      `json:"seller_id"`
	BuyerName     string     `json:"buyer_name"`
	SellerName    string     `json:"seller_name"`
	ProductID     int64      `json:"product_id"`
	Product       string     `json:"product"`
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	Timestamp     string     `json:"timestamp"`
	UnreadCount   int        `json:"unread_count"`
}

// CounterpartName is the display name of the other participant.
func (c Conversation) CounterpartName(viewer Role) string {
	if viewer == RoleSeller {
		return c.BuyerName
	}
	return c.SellerName
}

// ConversationRecord is the persisted form of a conversation, holding the
// unread counters of both sides.
type ConversationRecord struct {
	ID                int64      `db:"id"`
	CreatedAt         time.Time  `db:"created_at"`
	BuyerID           int64      `db:"buyer_id"`
	SellerID          int64      `db:"seller_id"`
	BuyerName         string     `db:"buyer_name"`
	SellerName        string     `db:"seller_name"`
	ProductID         int64      `db:"product_id"`
	ProductName       string     `db:"product_name"`
	LastMessage       string     `db:"last_message"`
	LastMessageAt     *time.Time `db:"last_message_at"`
	UnreadCountBuyer  int        `db:"unread_count_buyer"`
	UnreadCountSeller int        `db:"unread_count_seller"`
}

// HasParticipant tells whether the identity is the buyer or the seller of
// this conversation.
func (c *ConversationRecord) HasParticipant(id Identity) bool {
	if c == nil {
		return false
	}
	switch id.Role {
	case RoleBuyer:
		return c.BuyerID == id.ID
	case RoleSeller:
		return c.SellerID == id.ID
	}
	return false
}

// Participant returns the identity on the given side of the conversation.
func (c *ConversationRecord) Participant(role Role) Identity {
	if role == RoleSeller {
		return Identity{ID: c.SellerID, Role: RoleSeller}
	}
	return Identity{ID: c.BuyerID, Role: RoleBuyer}
}

// PostMessage applies the conversation rules to an outgoing message and
// advances the in-memory preview and counterpart unread counter.
//
// The returned message carries the conversation id, the sender identity and
// a normalized body; it is ready to persist.
func (c *ConversationRecord) PostMessage(sender Identity, body string, now time.Time) (*Message, error) {
	if !c.HasParticipant(sender) {
		return nil, ErrNotParticipant
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	m, err := NewMessage(Message{
		ConversationID: c.ID,
		SenderID:       sender.ID,
		SenderType:     sender.Role,
		Body:           body,
		CreatedAt:      now.UTC(),
	})
	if err != nil {
		return nil, err
	}

	ts := m.CreatedAt
	c.LastMessage = m.Body
	c.LastMessageAt = &ts
	if sender.Role == RoleBuyer {
		c.UnreadCountSeller++
	} else {
		c.UnreadCountBuyer++
	}
	return m, nil
}

// UnreadFor returns the counter of the given side.
func (c *ConversationRecord) UnreadFor(role Role) int {
	if role == RoleSeller {
		return c.UnreadCountSeller
	}
	return c.UnreadCountBuyer
}

// ViewFor projects the record for one participant. timestamp is the display
// form of LastMessageAt, computed by the caller.
func (c *ConversationRecord) ViewFor(viewer Role, timestamp string) Conversation {
	return Conversation{
		ID:            c.ID,
		BuyerID:       c.BuyerID,
		SellerID:      c.SellerID,
		BuyerName:     c.BuyerName,
		SellerName:    c.SellerName,
		ProductID:     c.ProductID,
		Product:       c.ProductName,
		LastMessage:   c.LastMessage,
		LastMessageAt: c.LastMessageAt,
		Timestamp:     timestamp,
		UnreadCount:   c.UnreadFor(viewer),
	}
}
