package chatsync

import (
	"time"

	chat "relove-chat/internal/pkg/chat/domain"
)

// DuplicateWindow is how close two messages with the same body and sender
// must be to count as the same message. Buyers and sellers have separate id
// spaces, so the sender is its id and role.
const DuplicateWindow = 5 * time.Second

// findDuplicate returns the index of the entry that represents the same
// logical message as m, or -1. Matching by id is tried over the whole list
// first, then by tempId, then by body, sender and time proximity.
func findDuplicate(list []chat.Message, m chat.Message) int {
	if m.ID != 0 {
		for i := range list {
			if list[i].ID == m.ID {
				return i
			}
		}
	}
	if m.TempID != "" {
		for i := range list {
			if list[i].TempID == m.TempID {
				return i
			}
		}
	}
	for i := range list {
		if sameContent(list[i], m) {
			return i
		}
	}
	return -1
}

func sameContent(a, b chat.Message) bool {
	if a.Body != b.Body || a.SenderID != b.SenderID || a.SenderType != b.SenderType {
		return false
	}
	d := a.CreatedAt.Sub(b.CreatedAt)
	if d < 0 {
		d = -d
	}
	return d < DuplicateWindow
}

// confirm turns an optimistic entry into the persisted message echoed by the
// backend. Body, time and tempId stay local; a tempId is only adopted when
// the entry had none.
func confirm(entry *chat.Message, saved chat.Message) {
	entry.ID = saved.ID
	if entry.TempID == "" {
		entry.TempID = saved.TempID
	}
	entry.Read = entry.Read || saved.Read
	entry.IsOptimistic = false
	entry.SendFailed = false
}
