package chatsync

import (
	push "relove-chat/internal/infrastructure/push/port"
	chat "relove-chat/internal/pkg/chat/domain"
)

// Panel is the part of the screen shown on a narrow viewport.
type Panel string

const (
	PanelConversations Panel = "conversations"
	PanelMessages      Panel = "messages"
)

// Snapshot is a copy of the synchronizer state taken for rendering.
type Snapshot struct {
	Identity      chat.Identity
	Conversations []chat.Conversation // filtered by Search
	Active        *chat.Conversation
	Messages      []chat.Message
	Search        string
	Draft         string
	Status        push.State
	Banner        string
	Loading       bool
	Sending       bool
	Panel         Panel
}

// View receives the state to display. Calls are made without the
// synchronizer lock held, possibly from timer goroutines.
type View interface {
	Render(Snapshot)
	ScrollToBottom(smooth bool)
	ShowPanel(Panel)
}

// NopView discards everything.
type NopView struct{}

func (NopView) Render(Snapshot)     {}
func (NopView) ScrollToBottom(bool) {}
func (NopView) ShowPanel(Panel)     {}
