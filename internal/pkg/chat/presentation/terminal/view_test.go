package terminal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	push "relove-chat/internal/infrastructure/push/port"
	"relove-chat/internal/pkg/chat/chatsync"
	chat "relove-chat/internal/pkg/chat/domain"
)

var (
	me  = chat.Identity{ID: 1, Role: chat.RoleBuyer}
	now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
)

func newTestView() (*View, *bytes.Buffer) {
	var buf bytes.Buffer
	v := New(&buf)
	v.now = func() time.Time { return now }
	return v, &buf
}

func TestView_PrintsOnlyChanges(t *testing.T) {
	v, buf := newTestView()
	conv := chat.Conversation{ID: 7, SellerName: "Vintage Vault", Product: "Denim Jacket"}
	history := []chat.Message{
		{ID: 100, ConversationID: 7, SenderID: 9, SenderType: chat.RoleSeller, Body: "Still available", CreatedAt: now.Add(-3 * time.Minute)},
	}

	snap := chatsync.Snapshot{Identity: me, Active: &conv, Messages: history, Status: push.StateConnected}
	v.Render(snap)
	v.Render(snap)

	pending := chat.Message{TempID: "1714557600000", ConversationID: 7, SenderID: 1, SenderType: chat.RoleBuyer, Body: "Great, I'll take it", CreatedAt: now, IsOptimistic: true}
	snap.Messages = append(history, pending)
	v.Render(snap)

	confirmed := pending
	confirmed.ID, confirmed.IsOptimistic = 101, false
	snap.Messages = append(history, confirmed)
	v.Render(snap)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "== Vintage Vault | Denim Jacket =="))
	assert.Equal(t, 1, strings.Count(out, "Still available"))
	assert.Equal(t, 1, strings.Count(out, "You: Great, I'll take it"))
	assert.Contains(t, out, "[3 minutes ago] Vintage Vault: Still available")
	assert.Contains(t, out, "* connected")
}

func TestView_FailedSendAndBanner(t *testing.T) {
	v, buf := newTestView()
	conv := chat.Conversation{ID: 7, SellerName: "Vintage Vault", Product: "Denim Jacket"}
	pending := chat.Message{TempID: "1", ConversationID: 7, SenderID: 1, SenderType: chat.RoleBuyer, Body: "hello", CreatedAt: now, IsOptimistic: true}

	v.Render(chatsync.Snapshot{Identity: me, Active: &conv, Messages: []chat.Message{pending}})
	pending.SendFailed = true
	v.Render(chatsync.Snapshot{Identity: me, Active: &conv, Messages: []chat.Message{pending}, Banner: chatsync.BannerLoginAgain})

	out := buf.String()
	assert.Contains(t, out, "! Please log in again.")
	assert.Contains(t, out, "(not sent) hello")
}

func TestPrintConversations(t *testing.T) {
	var buf bytes.Buffer
	at := now.Add(-2 * time.Hour)
	PrintConversations(&buf, []chat.Conversation{
		{ID: 7, BuyerName: "Ana", SellerName: "Vintage Vault", Product: "Denim Jacket", LastMessage: "Is it available?", LastMessageAt: &at, UnreadCount: 2},
		{ID: 8, BuyerName: "Ana", SellerName: "Retro Rack", Product: "Boots", Timestamp: "No messages"},
	}, chat.RoleSeller, now)

	out := buf.String()
	assert.Contains(t, out, "#7     Ana | Denim Jacket (2 unread)")
	assert.Contains(t, out, "Is it available? | 2 hours ago")
	assert.Contains(t, out, "#8     Ana | Boots\n")

	buf.Reset()
	PrintConversations(&buf, nil, chat.RoleBuyer, now)
	assert.Equal(t, "No conversations.\n", buf.String())
}

func TestView_ShowConversationList(t *testing.T) {
	v, buf := newTestView()
	v.Render(chatsync.Snapshot{Identity: me, Conversations: []chat.Conversation{{ID: 3, SellerName: "Lamp Co", Product: "Lamp"}}})
	v.ShowPanel(chatsync.PanelConversations)
	v.ShowPanel(chatsync.PanelMessages)

	assert.Equal(t, 1, strings.Count(buf.String(), "#3     Lamp Co | Lamp"))
}
