// Package chatsync keeps a participant's conversation list and the open
// conversation's messages in sync with the chat backend and its push channel.
package chatsync

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	backend "relove-chat/internal/infrastructure/backend/port"
	push "relove-chat/internal/infrastructure/push/port"
	chat "relove-chat/internal/pkg/chat/domain"
)

const (
	// NoticeTTL is how long a banner stays up before it is dismissed.
	NoticeTTL = 5 * time.Second
	// HistoryScrollDelay delays the scroll after a history load.
	HistoryScrollDelay = 100 * time.Millisecond
	// IncomingScrollDelay delays the smooth scroll after a pushed message.
	IncomingScrollDelay = 150 * time.Millisecond

	JustNow = "Just now"

	backgroundTimeout = 10 * time.Second
)

// Banner texts.
const (
	BannerLoadConversations = "Failed to load conversations"
	BannerLoadMessages      = "Failed to load messages"
	BannerLoginAgain        = "Please log in again."
	BannerSendFailed        = "Failed to send message. Please check your connection."
	BannerStartFailed       = "Failed to start conversation. Please try again."
)

var (
	ErrNoActiveConversation = errors.New("chatsync: no active conversation")
	ErrSendInProgress       = errors.New("chatsync: a message is already being sent")
	ErrUnknownConversation  = errors.New("chatsync: conversation is not in the list")
)

type bannerKind int

const (
	bannerNone bannerKind = iota
	bannerNotice
	bannerStatus
)

// Options tune a Synchronizer. Zero values select the defaults.
type Options struct {
	// Narrow switches between the list and message panels instead of
	// showing both.
	Narrow bool
	Log    *zap.Logger
	Now    func() time.Time
	// AfterFunc schedules delayed view work. It must not run f before
	// returning.
	AfterFunc func(d time.Duration, f func())
	// Go runs fire-and-forget backend calls such as read receipts.
	Go func(f func())
}

// Synchronizer is safe for concurrent use. Backend calls are made without
// the internal lock held.
type Synchronizer struct {
	api    backend.API
	view   View
	me     chat.Identity
	narrow bool
	log    *zap.Logger
	now    func() time.Time
	after  func(time.Duration, func())
	spawn  func(func())

	mu            sync.Mutex
	conversations []chat.Conversation
	active        *chat.Conversation
	generation    uint64
	messages      []chat.Message
	search        string
	draft         string
	loading       bool
	sending       bool
	status        statusMachine
	banner        string
	bannerKind    bannerKind
	bannerSeq     uint64
	panel         Panel
	lastTempID    int64
}

func New(api backend.API, view View, me chat.Identity, opts Options) *Synchronizer {
	if view == nil {
		view = NopView{}
	}
	s := &Synchronizer{
		api:    api,
		view:   view,
		me:     me,
		narrow: opts.Narrow,
		log:    opts.Log,
		now:    opts.Now,
		after:  opts.AfterFunc,
		spawn:  opts.Go,
		status: newStatusMachine(),
		panel:  PanelConversations,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.after == nil {
		s.after = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	if s.spawn == nil {
		s.spawn = func(f func()) { go f() }
	}
	return s
}

// Identity is the participant this synchronizer acts for.
func (s *Synchronizer) Identity() chat.Identity { return s.me }

// Snapshot copies the current state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Synchronizer) snapshotLocked() Snapshot {
	snap := Snapshot{
		Identity:      s.me,
		Conversations: filterConversations(s.conversations, s.me.Role, s.search),
		Messages:      slices.Clone(s.messages),
		Search:        s.search,
		Draft:         s.draft,
		Status:        s.status.state,
		Banner:        s.banner,
		Loading:       s.loading,
		Sending:       s.sending,
		Panel:         s.panel,
	}
	if s.active != nil {
		a := *s.active
		snap.Active = &a
	}
	return snap
}

func (s *Synchronizer) render() {
	s.view.Render(s.Snapshot())
}

// VisibleConversations returns the conversations matching the current search.
func (s *Synchronizer) VisibleConversations() []chat.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterConversations(s.conversations, s.me.Role, s.search)
}

func (s *Synchronizer) SetSearch(text string) {
	s.mu.Lock()
	s.search = text
	s.mu.Unlock()
	s.render()
}

func (s *Synchronizer) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
	s.render()
}

// LoadConversations replaces the conversation list with the backend's. On
// failure the list is emptied and a banner is raised.
func (s *Synchronizer) LoadConversations(ctx context.Context) error {
	list, err := s.api.ListConversations(ctx)

	s.mu.Lock()
	if err != nil {
		s.conversations = nil
		seq := s.raiseLocked(BannerLoadConversations, bannerNotice)
		s.mu.Unlock()
		s.log.Warn("loading conversations failed", zap.Error(err))
		s.scheduleDismiss(seq)
		s.render()
		return err
	}
	s.conversations = slices.Clone(list)
	if s.active != nil {
		if c, ok := s.findLocked(s.active.ID); ok {
			s.active = &c
		}
	}
	s.mu.Unlock()

	s.render()
	return nil
}

// ActivateConversation opens conv, loads its history and sends a read
// receipt. Only a history failure is returned.
func (s *Synchronizer) ActivateConversation(ctx context.Context, conv chat.Conversation) error {
	s.mu.Lock()
	s.active = &conv
	s.generation++
	s.messages = nil
	switchPanel := s.narrow && s.panel != PanelMessages
	if s.narrow {
		s.panel = PanelMessages
	}
	s.mu.Unlock()

	if switchPanel {
		s.view.ShowPanel(PanelMessages)
	}
	s.render()

	err := s.LoadMessages(ctx, conv.ID)
	_ = s.MarkRead(ctx, conv.ID)
	return err
}

// ActivateConversationByID activates a conversation of the loaded list.
func (s *Synchronizer) ActivateConversationByID(ctx context.Context, id int64) error {
	s.mu.Lock()
	conv, ok := s.findLocked(id)
	s.mu.Unlock()
	if !ok {
		return ErrUnknownConversation
	}
	return s.ActivateConversation(ctx, conv)
}

// ShowConversationList closes the active conversation and shows the list.
func (s *Synchronizer) ShowConversationList() {
	s.mu.Lock()
	s.active = nil
	s.generation++
	s.messages = nil
	s.loading = false
	s.panel = PanelConversations
	s.mu.Unlock()

	s.view.ShowPanel(PanelConversations)
	s.render()
}

// LoadMessages replaces the message list with the history of conversation
// id. The result is dropped if another conversation was activated while the
// request was in flight.
func (s *Synchronizer) LoadMessages(ctx context.Context, id int64) error {
	s.mu.Lock()
	gen := s.generation
	s.loading = true
	s.mu.Unlock()
	s.render()

	history, err := s.api.GetMessages(ctx, id)

	s.mu.Lock()
	if s.generation != gen || s.active == nil || s.active.ID != id {
		// only the latest activation clears loading
		if s.generation == gen {
			s.loading = false
		}
		s.mu.Unlock()
		s.log.Debug("discarding history of inactive conversation", zap.Int64("conversation_id", id), zap.Error(err))
		s.render()
		return err
	}
	s.loading = false
	if err != nil {
		seq := s.raiseLocked(BannerLoadMessages, bannerNotice)
		s.mu.Unlock()
		s.log.Warn("loading messages failed", zap.Int64("conversation_id", id), zap.Error(err))
		s.scheduleDismiss(seq)
		s.render()
		return err
	}

	merged := slices.Clone(history)
	for _, m := range s.messages {
		if m.IsOptimistic && m.ConversationID == id && findDuplicate(merged, m) < 0 {
			merged = append(merged, m)
		}
	}
	s.messages = merged
	s.mu.Unlock()

	s.render()
	s.after(HistoryScrollDelay, func() { s.view.ScrollToBottom(false) })
	return nil
}

// SendMessage appends body to the active conversation right away and posts
// it. A failed post keeps the entry, flagged SendFailed, and raises a banner.
func (s *Synchronizer) SendMessage(ctx context.Context, body string) error {
	text := strings.TrimSpace(body)

	s.mu.Lock()
	switch {
	case text == "":
		s.mu.Unlock()
		return chat.ErrEmptyMessage
	case s.active == nil:
		s.mu.Unlock()
		return ErrNoActiveConversation
	case s.sending:
		s.mu.Unlock()
		return ErrSendInProgress
	}

	now := s.now().UTC()
	convID := s.active.ID
	tempID := s.nextTempIDLocked(now)
	s.messages = append(s.messages, chat.Message{
		TempID:         tempID,
		ConversationID: convID,
		SenderID:       s.me.ID,
		SenderType:     s.me.Role,
		Body:           text,
		CreatedAt:      now,
		IsOptimistic:   true,
	})
	s.patchPreviewLocked(convID, text, now, func(int) int { return 0 })
	s.draft = ""
	s.sending = true
	s.mu.Unlock()

	s.render()
	s.view.ScrollToBottom(true)

	resp, err := s.api.SendMessage(ctx, backend.SendMessageRequest{
		Message:        text,
		ConversationID: convID,
		SenderType:     s.me.Role,
		TempID:         tempID,
	})

	s.mu.Lock()
	s.sending = false
	if err != nil {
		for i := range s.messages {
			if s.messages[i].TempID == tempID && s.messages[i].IsOptimistic {
				s.messages[i].SendFailed = true
			}
		}
		banner := BannerSendFailed
		if errors.Is(err, backend.ErrUnauthorized) {
			banner = BannerLoginAgain
		}
		seq := s.raiseLocked(banner, bannerNotice)
		s.mu.Unlock()

		s.log.Warn("sending message failed",
			zap.Int64("conversation_id", convID),
			zap.String("temp_id", tempID),
			zap.Error(err))
		s.scheduleDismiss(seq)
		s.render()
		return err
	}
	if resp != nil && resp.Message != nil {
		s.confirmLocked(tempID, *resp.Message)
	}
	s.mu.Unlock()

	s.render()
	return nil
}

func (s *Synchronizer) confirmLocked(tempID string, saved chat.Message) {
	idx := slices.IndexFunc(s.messages, func(m chat.Message) bool {
		return m.IsOptimistic && m.TempID == tempID
	})
	if idx >= 0 {
		s.confirmAtLocked(idx, saved)
	}
}

// confirmAtLocked confirms the optimistic entry at idx with saved. If another
// entry already holds saved's id the optimistic one is dropped instead.
func (s *Synchronizer) confirmAtLocked(idx int, saved chat.Message) {
	for i := range s.messages {
		if i == idx {
			continue
		}
		if saved.ID != 0 && s.messages[i].ID == saved.ID {
			s.messages = slices.Delete(s.messages, idx, idx+1)
			return
		}
		if saved.TempID != "" && s.messages[i].TempID == saved.TempID {
			saved.TempID = ""
		}
	}
	confirm(&s.messages[idx], saved)
}

// HandleIncomingMessage merges a pushed message.
//
// An echo of the participant's own message only confirms the matching
// optimistic entry, if any. Any other message for the open conversation is
// appended unless it duplicates an entry. The owning conversation's preview
// is updated whether or not the message was appended.
func (s *Synchronizer) HandleIncomingMessage(msg chat.Message) {
	if msg.From(s.me) && !msg.IsOptimistic {
		s.confirmEcho(msg)
		return
	}

	s.mu.Lock()
	fromCounterpart := msg.SenderType != s.me.Role
	isActive := s.active != nil && s.active.ID == msg.ConversationID
	receipt := fromCounterpart && isActive
	if receipt {
		msg.Read = true
	}

	appended := false
	if isActive && findDuplicate(s.messages, msg) < 0 {
		s.messages = append(s.messages, msg)
		appended = true
	}

	known := s.patchPreviewLocked(msg.ConversationID, msg.Body, msg.CreatedAt, func(n int) int {
		switch {
		case !fromCounterpart:
			return n
		case isActive:
			return 0
		}
		return n + 1
	})
	s.mu.Unlock()

	s.render()
	if appended {
		s.after(IncomingScrollDelay, func() { s.view.ScrollToBottom(true) })
	}
	if receipt {
		s.background(func(ctx context.Context) { _ = s.MarkRead(ctx, msg.ConversationID) })
	}
	if !known {
		s.background(func(ctx context.Context) { _ = s.LoadConversations(ctx) })
	}
}

func (s *Synchronizer) confirmEcho(msg chat.Message) {
	s.mu.Lock()
	confirmed := false
	if s.active != nil && s.active.ID == msg.ConversationID && msg.ID != 0 {
		if idx := findDuplicate(s.messages, msg); idx >= 0 && s.messages[idx].IsOptimistic {
			s.confirmAtLocked(idx, msg)
			confirmed = true
		}
	}
	s.mu.Unlock()

	if !confirmed {
		s.log.Debug("dropping own echo", zap.Int64("message_id", msg.ID), zap.String("temp_id", msg.TempID))
		return
	}
	s.render()
}

// MarkRead sends a read receipt, then zeroes the unread counter and flags
// the loaded counterpart messages read. Failures are logged and returned;
// local state is left as is.
func (s *Synchronizer) MarkRead(ctx context.Context, id int64) error {
	if err := s.api.MarkRead(ctx, id); err != nil {
		s.log.Warn("marking conversation read failed", zap.Int64("conversation_id", id), zap.Error(err))
		return err
	}

	s.mu.Lock()
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			s.conversations[i].UnreadCount = 0
		}
	}
	if s.active != nil && s.active.ID == id {
		s.active.UnreadCount = 0
		for i := range s.messages {
			m := &s.messages[i]
			if m.ConversationID == id && m.SenderType != s.me.Role {
				m.Read = true
			}
		}
	}
	s.mu.Unlock()

	s.render()
	return nil
}

// StartConversation contacts a seller about a product, reloads the list and
// opens the conversation. Only buyers can start conversations.
func (s *Synchronizer) StartConversation(ctx context.Context, sellerID, productID int64, body string) (*chat.Conversation, error) {
	if s.me.Role != chat.RoleBuyer {
		return nil, chat.ErrBuyerOnly
	}
	text := strings.TrimSpace(body)
	if text == "" {
		return nil, chat.ErrEmptyMessage
	}

	resp, err := s.api.StartConversation(ctx, backend.StartConversationRequest{
		SellerID:  sellerID,
		ProductID: productID,
		Message:   text,
	})
	if err != nil {
		s.mu.Lock()
		seq := s.raiseLocked(BannerStartFailed, bannerNotice)
		s.mu.Unlock()
		s.log.Warn("starting conversation failed",
			zap.Int64("seller_id", sellerID),
			zap.Int64("product_id", productID),
			zap.Error(err))
		s.scheduleDismiss(seq)
		s.render()
		return nil, err
	}

	if err := s.LoadConversations(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	conv, ok := s.findLocked(resp.ConversationID)
	s.mu.Unlock()
	if !ok {
		return nil, ErrUnknownConversation
	}
	if err := s.ActivateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// HandleState applies a push connection change.
func (s *Synchronizer) HandleState(state push.State, cause error) {
	s.mu.Lock()
	from := s.status.state
	if !s.status.transition(state) {
		s.mu.Unlock()
		s.log.Debug("ignoring push state", zap.String("from", string(from)), zap.String("to", string(state)))
		return
	}

	var seq uint64
	if text := statusBanner(state); text != "" {
		seq = s.raiseLocked(text, bannerStatus)
	} else if state == push.StateConnected && s.bannerKind == bannerStatus {
		s.clearBannerLocked()
	}
	s.mu.Unlock()

	if cause != nil {
		s.log.Warn("push connection", zap.String("state", string(state)), zap.Error(cause))
	} else {
		s.log.Info("push connection", zap.String("state", string(state)))
	}
	if seq != 0 {
		s.scheduleDismiss(seq)
	}
	s.render()
}

func (s *Synchronizer) findLocked(id int64) (chat.Conversation, bool) {
	for _, c := range s.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return chat.Conversation{}, false
}

// patchPreviewLocked updates the last message of conversation id and
// reports whether the conversation is in the list.
func (s *Synchronizer) patchPreviewLocked(id int64, body string, at time.Time, unread func(int) int) bool {
	found := false
	for i := range s.conversations {
		c := &s.conversations[i]
		if c.ID != id {
			continue
		}
		ts := at
		c.LastMessage = body
		c.LastMessageAt = &ts
		c.Timestamp = JustNow
		c.UnreadCount = unread(c.UnreadCount)
		if s.active != nil && s.active.ID == id {
			*s.active = *c
		}
		found = true
	}
	return found
}

// nextTempIDLocked returns the send time in Unix milliseconds, bumped so
// that ids stay unique within this client.
func (s *Synchronizer) nextTempIDLocked(now time.Time) string {
	ms := now.UnixMilli()
	if ms <= s.lastTempID {
		ms = s.lastTempID + 1
	}
	s.lastTempID = ms
	return strconv.FormatInt(ms, 10)
}

func (s *Synchronizer) raiseLocked(text string, kind bannerKind) uint64 {
	s.bannerSeq++
	s.banner = text
	s.bannerKind = kind
	return s.bannerSeq
}

func (s *Synchronizer) clearBannerLocked() {
	s.bannerSeq++
	s.banner = ""
	s.bannerKind = bannerNone
}

func (s *Synchronizer) scheduleDismiss(seq uint64) {
	s.after(NoticeTTL, func() {
		s.mu.Lock()
		if s.bannerSeq != seq {
			s.mu.Unlock()
			return
		}
		s.clearBannerLocked()
		s.mu.Unlock()
		s.render()
	})
}

func (s *Synchronizer) background(f func(ctx context.Context)) {
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		f(ctx)
	})
}
