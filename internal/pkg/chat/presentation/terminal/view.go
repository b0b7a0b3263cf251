// Package terminal renders the synchronizer state as plain text lines.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	push "relove-chat/internal/infrastructure/push/port"
	"relove-chat/internal/pkg/chat/chatsync"
	chat "relove-chat/internal/pkg/chat/domain"
)

// View prints what changed since the previous Render: connection state,
// banners and messages of the open conversation that were not shown yet.
type View struct {
	out io.Writer
	now func() time.Time

	mu       sync.Mutex
	last     chatsync.Snapshot
	status   push.State
	banner   string
	activeID int64
	shown    map[string]bool // message key -> printed as failed
}

func New(out io.Writer) *View {
	return &View{out: out, now: time.Now, shown: map[string]bool{}}
}

var _ chatsync.View = (*View)(nil)

func (v *View) Render(s chatsync.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = s

	if s.Status != v.status {
		v.status = s.Status
		fmt.Fprintf(v.out, "* %s\n", s.Status)
	}
	if s.Banner != v.banner {
		v.banner = s.Banner
		if s.Banner != "" {
			fmt.Fprintf(v.out, "! %s\n", s.Banner)
		}
	}

	var activeID int64
	if s.Active != nil {
		activeID = s.Active.ID
	}
	if activeID != v.activeID {
		v.activeID = activeID
		v.shown = map[string]bool{}
		if s.Active != nil {
			fmt.Fprintf(v.out, "== %s | %s ==\n", s.Active.CounterpartName(s.Identity.Role), s.Active.Product)
		}
	}
	if s.Active == nil {
		return
	}

	for _, m := range s.Messages {
		key := messageKey(m)
		failed, seen := v.shown[key]
		switch {
		case !seen:
			v.shown[key] = m.SendFailed
			fmt.Fprintln(v.out, FormatMessage(m, s.Identity, *s.Active, v.now()))
		case m.SendFailed && !failed:
			v.shown[key] = true
			fmt.Fprintf(v.out, "  (not sent) %s\n", m.Body)
		}
	}
}

// ScrollToBottom is a no-op: new lines always land at the bottom.
func (v *View) ScrollToBottom(bool) {}

func (v *View) ShowPanel(p chatsync.Panel) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if p != chatsync.PanelConversations {
		return
	}
	v.activeID = 0
	v.shown = map[string]bool{}
	PrintConversations(v.out, v.last.Conversations, v.last.Identity.Role, v.now())
}

// messageKey identifies an entry across renders. Optimistic entries keep
// their tempId key after confirmation so they are not printed twice.
func messageKey(m chat.Message) string {
	if m.TempID != "" {
		return "t:" + m.TempID
	}
	return fmt.Sprintf("i:%d", m.ID)
}

// FormatMessage renders one message line.
func FormatMessage(m chat.Message, me chat.Identity, conv chat.Conversation, now time.Time) string {
	who := conv.CounterpartName(me.Role)
	if m.SenderType == me.Role {
		who = "You"
	}
	if who == "" {
		who = string(m.SenderType)
	}
	line := fmt.Sprintf("[%s] %s: %s", humanize.RelTime(m.CreatedAt, now, "ago", "from now"), who, m.Body)
	if m.SendFailed {
		line += "  (not sent)"
	}
	return line
}

// PrintConversations writes one line per conversation.
func PrintConversations(w io.Writer, list []chat.Conversation, viewer chat.Role, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No conversations.")
		return
	}
	for _, c := range list {
		var b strings.Builder
		fmt.Fprintf(&b, "#%-5d %s | %s", c.ID, c.CounterpartName(viewer), c.Product)
		if c.UnreadCount > 0 {
			fmt.Fprintf(&b, " (%d unread)", c.UnreadCount)
		}
		if c.LastMessage != "" {
			fmt.Fprintf(&b, "\n       %s", c.LastMessage)
			switch {
			case c.LastMessageAt != nil:
				fmt.Fprintf(&b, " | %s", humanize.RelTime(*c.LastMessageAt, now, "ago", "from now"))
			case c.Timestamp != "":
				fmt.Fprintf(&b, " | %s", c.Timestamp)
			}
		}
		fmt.Fprintln(w, b.String())
	}
}
