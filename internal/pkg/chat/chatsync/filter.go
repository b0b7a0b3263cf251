package chatsync

import (
	"strings"

	chat "relove-chat/internal/pkg/chat/domain"
)

// filterConversations keeps the conversations whose counterpart name or
// product contains search, ignoring case. An empty search keeps everything.
func filterConversations(list []chat.Conversation, viewer chat.Role, search string) []chat.Conversation {
	q := strings.ToLower(strings.TrimSpace(search))
	out := make([]chat.Conversation, 0, len(list))
	for _, c := range list {
		if q == "" ||
			strings.Contains(strings.ToLower(c.CounterpartName(viewer)), q) ||
			strings.Contains(strings.ToLower(c.Product), q) {
			out = append(out, c)
		}
	}
	return out
}
