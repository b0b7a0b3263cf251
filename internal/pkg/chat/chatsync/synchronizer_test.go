package chatsync

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	backend "relove-chat/internal/infrastructure/backend/port"
	push "relove-chat/internal/infrastructure/push/port"
	chat "relove-chat/internal/pkg/chat/domain"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]chat.Conversation)
	return list, args.Error(1)
}

func (m *mockAPI) GetMessages(ctx context.Context, id int64) ([]chat.Message, error) {
	args := m.Called(ctx, id)
	list, _ := args.Get(0).([]chat.Message)
	return list, args.Error(1)
}

func (m *mockAPI) SendMessage(ctx context.Context, req backend.SendMessageRequest) (*backend.SendMessageResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*backend.SendMessageResponse)
	return resp, args.Error(1)
}

func (m *mockAPI) MarkRead(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAPI) StartConversation(ctx context.Context, req backend.StartConversationRequest) (*backend.StartConversationResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*backend.StartConversationResponse)
	return resp, args.Error(1)
}

func (m *mockAPI) AuthorizeChannel(ctx context.Context, socketID, channel string) (string, error) {
	args := m.Called(ctx, socketID, channel)
	return args.String(0), args.Error(1)
}

type recordingView struct {
	mu      sync.Mutex
	renders int
	scrolls []bool
	panels  []Panel
	last    Snapshot
}

func (v *recordingView) Render(s Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders++
	v.last = s
}

func (v *recordingView) ScrollToBottom(smooth bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrolls = append(v.scrolls, smooth)
}

func (v *recordingView) ShowPanel(p Panel) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panels = append(v.panels, p)
}

func (v *recordingView) scrollCalls() []bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]bool(nil), v.scrolls...)
}

type scheduled struct {
	delay time.Duration
	f     func()
}

// manualClock collects scheduled work until the test fires it.
type manualClock struct {
	mu      sync.Mutex
	pending []scheduled
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, scheduled{delay: d, f: f})
}

// fire runs and removes every pending callback scheduled with delay d.
func (c *manualClock) fire(d time.Duration) int {
	c.mu.Lock()
	var run []func()
	kept := c.pending[:0]
	for _, p := range c.pending {
		if p.delay == d {
			run = append(run, p.f)
		} else {
			kept = append(kept, p)
		}
	}
	c.pending = kept
	c.mu.Unlock()

	for _, f := range run {
		f()
	}
	return len(run)
}

// fireNext runs and removes the oldest pending callback with delay d.
func (c *manualClock) fireNext(d time.Duration) bool {
	c.mu.Lock()
	for i, p := range c.pending {
		if p.delay == d {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			c.mu.Unlock()
			p.f()
			return true
		}
	}
	c.mu.Unlock()
	return false
}

var (
	buyer   = chat.Identity{ID: 1, Role: chat.RoleBuyer}
	seller  = chat.Identity{ID: 9, Role: chat.RoleSeller}
	fixedAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
)

type harness struct {
	api   *mockAPI
	view  *recordingView
	clock *manualClock
	sync  *Synchronizer
	// at is what the synchronizer sees as the current time.
	at time.Time
}

func newHarness(t *testing.T, me chat.Identity, narrow bool) *harness {
	t.Helper()
	h := &harness{api: &mockAPI{}, view: &recordingView{}, clock: &manualClock{}, at: fixedAt}
	h.sync = New(h.api, h.view, me, Options{
		Narrow:    narrow,
		Now:       func() time.Time { return h.at },
		AfterFunc: h.clock.AfterFunc,
		Go:        func(f func()) { f() },
	})
	t.Cleanup(func() { h.api.AssertExpectations(t) })
	return h
}

func conversations() []chat.Conversation {
	return []chat.Conversation{
		{ID: 7, BuyerID: 1, SellerID: 9, BuyerName: "Ana", SellerName: "Vintage Vault", Product: "Denim Jacket", LastMessage: "Is it available?", UnreadCount: 2},
		{ID: 8, BuyerID: 1, SellerID: 10, BuyerName: "Ana", SellerName: "Retro Rack", Product: "Leather Boots", UnreadCount: 0},
	}
}

func history() []chat.Message {
	return []chat.Message{
		{ID: 100, ConversationID: 7, SenderID: 1, SenderType: chat.RoleBuyer, Body: "Is it available?", CreatedAt: fixedAt.Add(-time.Hour), Read: true},
		{ID: 101, ConversationID: 7, SenderID: 9, SenderType: chat.RoleSeller, Body: "Yes!", CreatedAt: fixedAt.Add(-30 * time.Minute)},
	}
}

// openConversation loads the list and activates conversation 7.
func (h *harness) openConversation(t *testing.T) {
	t.Helper()
	h.api.On("ListConversations", mock.Anything).Return(conversations(), nil).Once()
	h.api.On("GetMessages", mock.Anything, int64(7)).Return(history(), nil).Once()
	h.api.On("MarkRead", mock.Anything, int64(7)).Return(nil).Once()

	require.NoError(t, h.sync.LoadConversations(context.Background()))
	require.NoError(t, h.sync.ActivateConversationByID(context.Background(), 7))
}

func findConversation(t *testing.T, list []chat.Conversation, id int64) chat.Conversation {
	t.Helper()
	for _, c := range list {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("conversation %d not found", id)
	return chat.Conversation{}
}

func TestLoadConversations(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.api.On("ListConversations", mock.Anything).Return(conversations(), nil).Once()

	require.NoError(t, h.sync.LoadConversations(context.Background()))

	snap := h.sync.Snapshot()
	assert.Len(t, snap.Conversations, 2)
	assert.Empty(t, snap.Banner)
	assert.Equal(t, push.StateConnecting, snap.Status)
	assert.Equal(t, 2, h.view.last.Conversations[0].UnreadCount)
}

func TestLoadConversations_FailureEmptiesListAndRaisesBanner(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.api.On("ListConversations", mock.Anything).Return(conversations(), nil).Once()
	h.api.On("ListConversations", mock.Anything).Return(nil, backend.ErrTransport).Once()

	require.NoError(t, h.sync.LoadConversations(context.Background()))
	err := h.sync.LoadConversations(context.Background())
	require.ErrorIs(t, err, backend.ErrTransport)

	snap := h.sync.Snapshot()
	assert.Empty(t, snap.Conversations)
	assert.Equal(t, BannerLoadConversations, snap.Banner)

	assert.Equal(t, 1, h.clock.fire(NoticeTTL))
	assert.Empty(t, h.sync.Snapshot().Banner)
}

func TestActivateConversation_LoadsHistoryAndMarksRead(t *testing.T) {
	h := newHarness(t, buyer, true)
	h.openConversation(t)

	snap := h.sync.Snapshot()
	require.NotNil(t, snap.Active)
	assert.Equal(t, int64(7), snap.Active.ID)
	assert.Equal(t, PanelMessages, snap.Panel)
	assert.Equal(t, []Panel{PanelMessages}, h.view.panels)
	assert.False(t, snap.Loading)

	require.Len(t, snap.Messages, 2)
	assert.True(t, snap.Messages[1].Read, "counterpart messages are flagged read")
	assert.Equal(t, 0, findConversation(t, snap.Conversations, 7).UnreadCount)

	assert.Empty(t, h.view.scrollCalls())
	assert.Equal(t, 1, h.clock.fire(HistoryScrollDelay))
	assert.Equal(t, []bool{false}, h.view.scrollCalls())
}

func TestActivateConversation_WideViewportKeepsPanels(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.openConversation(t)

	assert.Empty(t, h.view.panels)
	assert.Equal(t, PanelConversations, h.sync.Snapshot().Panel)
}

func TestActivateConversation_HistoryFailure(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.api.On("GetMessages", mock.Anything, int64(8)).Return(nil, &backend.StatusError{Code: 500}).Once()
	h.api.On("MarkRead", mock.Anything, int64(8)).Return(nil).Once()

	err := h.sync.ActivateConversation(context.Background(), conversations()[1])
	require.Error(t, err)

	snap := h.sync.Snapshot()
	assert.Equal(t, BannerLoadMessages, snap.Banner)
	assert.Empty(t, snap.Messages)
	assert.False(t, snap.Loading)
}

func TestLoadMessages_DiscardsResultForInactiveConversation(t *testing.T) {
	h := newHarness(t, buyer, false)
	convs := conversations()

	started := make(chan struct{})
	release := make(chan struct{})
	h.api.On("GetMessages", mock.Anything, int64(7)).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(history(), nil).Once()
	h.api.On("MarkRead", mock.Anything, int64(7)).Return(nil).Once()

	later := []chat.Message{{ID: 200, ConversationID: 8, SenderID: 10, SenderType: chat.RoleSeller, Body: "Boots are size 42", CreatedAt: fixedAt}}
	h.api.On("GetMessages", mock.Anything, int64(8)).Return(later, nil).Once()
	h.api.On("MarkRead", mock.Anything, int64(8)).Return(nil).Once()

	done := make(chan error, 1)
	go func() { done <- h.sync.ActivateConversation(context.Background(), convs[0]) }()
	<-started

	require.NoError(t, h.sync.ActivateConversation(context.Background(), convs[1]))
	close(release)
	require.NoError(t, <-done)

	snap := h.sync.Snapshot()
	require.NotNil(t, snap.Active)
	assert.Equal(t, int64(8), snap.Active.ID)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, int64(200), snap.Messages[0].ID)
}

func TestLoadMessages_InactiveConversation(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.api.On("GetMessages", mock.Anything, int64(8)).Return(nil, backend.ErrTransport).Once()
	h.api.On("GetMessages", mock.Anything, int64(8)).Return(history(), nil).Once()

	require.ErrorIs(t, h.sync.LoadMessages(context.Background(), 8), backend.ErrTransport)
	snap := h.sync.Snapshot()
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Messages)
	assert.Empty(t, snap.Banner)

	require.NoError(t, h.sync.LoadMessages(context.Background(), 8))
	snap = h.sync.Snapshot()
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Messages)
}

func TestSendMessage_OptimisticThenConfirmed(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.openConversation(t)
	h.sync.SetDraft("  Can you ship tomorrow?  ")

	tempID := strconv.FormatInt(fixedAt.UnixMilli(), 10)
	want := backend.SendMessageRequest{
		Message:        "Can you ship tomorrow?",
		ConversationID: 7,
		SenderType:     chat.RoleBuyer,
		TempID:         tempID,
	}
	saved := &chat.Message{ID: 102, TempID: tempID, ConversationID: 7, SenderID: 1, SenderType: chat.RoleBuyer, Body: "Can you ship tomorrow?", CreatedAt: fixedAt.Add(time.Second)}

	var during Snapshot
	h.api.On("SendMessage", mock.Anything, want).Run(func(mock.Arguments) {
		during = h.sync.Snapshot()
	}).Return(&backend.SendMessageResponse{Success: true, Message: saved, TempID: tempID}, nil).Once()

	require.NoError(t, h.sync.SendMessage(context.Background(), "  Can you ship tomorrow?  "))

	require.Len(t, during.Messages, 3)
	pending := during.Messages[2]
	assert.True(t, pending.IsOptimistic)
	assert.Equal(t, tempID, pending.TempID)
	assert.Zero(t, pending.ID)
	assert.True(t, during.Sending)
	assert.Empty(t, during.Draft)
	preview := findConversation(t, during.Conversations, 7)
	assert.Equal(t, "Can you ship tomorrow?", preview.LastMessage)
	assert.Equal(t, JustNow, preview.Timestamp)
	assert.Equal(t, 0, preview.UnreadCount)
	assert.Contains(t, h.view.scrollCalls(), true)

	snap := h.sync.Snapshot()
	require.Len(t, snap.Messages, 3)
	sent := snap.Messages[2]
	assert.False(t, sent.IsOptimistic)
	assert.Equal(t, int64(102), sent.ID)
	assert.Equal(t, fixedAt, sent.CreatedAt, "the local send time is kept")
	assert.False(t, snap.Sending)
}

func TestSendMessage_Preconditions(t *testing.T) {
	h := newHarness(t, buyer, false)

	assert.ErrorIs(t, h.sync.SendMessage(context.Background(), "hello"), ErrNoActiveConversation)

	h.openConversation(t)
	assert.ErrorIs(t, h.sync.SendMessage(context.Background(), " \n\t "), chat.ErrEmptyMessage)

	started := make(chan struct{})
	release := make(chan struct{})
	h.api.On("SendMessage", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(&backend.SendMessageResponse{Success: true}, nil).Once()

	done := make(chan error, 1)
	go func() { done <- h.sync.SendMessage(context.Background(), "first") }()
	<-started
	assert.ErrorIs(t, h.sync.SendMessage(context.Background(), "second"), ErrSendInProgress)
	close(release)
	require.NoError(t, <-done)

	assert.Len(t, h.sync.Snapshot().Messages, 3)
	h.api.AssertNumberOfCalls(t, "SendMessage", 1)
}

func TestSendMessage_FailureKeepsEntry(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		banner string
	}{
		{"unauthorized", &backend.StatusError{Code: 401}, BannerLoginAgain},
		{"network", backend.ErrTransport, BannerSendFailed},
		{"server", &backend.StatusError{Code: 500, Message: "boom"}, BannerSendFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, buyer, false)
			h.openConversation(t)
			h.api.On("SendMessage", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			err := h.sync.SendMessage(context.Background(), "hello")
			require.ErrorIs(t, err, tt.err)

			snap := h.sync.Snapshot()
			require.Len(t, snap.Messages, 3)
			last := snap.Messages[2]
			assert.True(t, last.IsOptimistic)
			assert.True(t, last.SendFailed)
			assert.Equal(t, tt.banner, snap.Banner)
			assert.False(t, snap.Sending)

			h.clock.fire(NoticeTTL)
			assert.Empty(t, h.sync.Snapshot().Banner)
		})
	}
}

func TestSendMessage_TempIDsAreUniqueWithinAMillisecond(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.openConversation(t)

	var ids []string
	h.api.On("SendMessage", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		ids = append(ids, args.Get(1).(backend.SendMessageRequest).TempID)
	}).Return(&backend.SendMessageResponse{Success: true}, nil).Twice()

	require.NoError(t, h.sync.SendMessage(context.Background(), "one"))
	require.NoError(t, h.sync.SendMessage(context.Background(), "two"))

	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestHandleIncomingMessage_CounterpartOnActiveConversation(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.openConversation(t)
	h.clock.fire(HistoryScrollDelay)
	h.api.On("MarkRead", mock.Anything, int64(7)).Return(nil).Once()

	h.sync.HandleIncomingMessage(chat.Message{ID: 103, ConversationID: 7, SenderID: 9, SenderType: chat.RoleSeller, Body: "I can ship Friday", CreatedAt: fixedAt})

	snap := h.sync.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.True(t, snap.Messages[2].Read)
	conv := findConversation(t, snap.Conversations, 7)
	assert.Equal(t, "I can ship Friday", conv.LastMessage)
	assert.Equal(t, JustNow, conv.Timestamp)
	assert.Equal(t, 0, conv.UnreadCount)

	assert.Equal(t, 1, h.clock.fire(IncomingScrollDelay))
	assert.Equal(t, []bool{false, true}, h.view.scrollCalls())
}

func TestHandleIncomingMessage_CounterpartOnInactiveConversation(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.openConversation(t)

	h.sync.HandleIncomingMessage(chat.Message{ID: 300, ConversationID: 8, SenderID: 10, SenderType: chat.RoleSeller, Body: "Still interested?", CreatedAt: fixedAt})

	snap := h.sync.Snapshot()
	assert.Len(t, snap.Messages, 2, "only the open conversation's messages are listed")
	conv := findConversation(t, snap.Conversations, 8)
	assert.Equal(t, 1, conv.UnreadCount)
	assert.Equal(t, "Still interested?", conv.LastMessage)
	assert.Zero(t, h.clock.fire(IncomingScrollDelay))
}

func TestHandleIncomingMessage_DropsDuplicates(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.openConversation(t)
	h.api.On("MarkRead", mock.Anything, int64(7)).Return(nil)

	h.sync.HandleIncomingMessage(chat.Message{ID: 101, ConversationID: 7, SenderID: 9, SenderType: chat.RoleSeller, Body: "Yes!", CreatedAt: fixedAt})
	assert.Len(t, h.sync.Snapshot().Messages, 2, "same id")

	h.sync.HandleIncomingMessage(chat.Message{ID: 104, ConversationID: 7, SenderID: 9, SenderType: chat.RoleSeller, Body: "Yes!", CreatedAt: fixedAt.Add(-30*time.Minute + 2*time.Second)})
	assert.Len(t, h.sync.Snapshot().Messages, 2, "same body and sender within the window")

	h.sync.HandleIncomingMessage(chat.Message{ID: 105, ConversationID: 7, SenderID: 9, SenderType: chat.RoleSeller, Body: "Yes!", CreatedAt: fixedAt})
	assert.Len(t, h.sync.Snapshot().Messages, 3, "same body outside the window")

	conv := findConversation(t, h.sync.Snapshot().Conversations, 7)
	assert.Equal(t, 0, conv.UnreadCount)
}

func TestHandleIncomingMessage_OwnEcho(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.openConversation(t)

	tempID := strconv.FormatInt(fixedAt.UnixMilli(), 10)
	echo := chat.Message{ID: 110, TempID: tempID, ConversationID: 7, SenderID: 1, SenderType: chat.RoleBuyer, Body: "On my way", CreatedAt: fixedAt.Add(time.Second)}

	h.api.On("SendMessage", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		// the push echo overtakes the POST response
		h.sync.HandleIncomingMessage(echo)
	}).Return(&backend.SendMessageResponse{Success: true, Message: &echo, TempID: tempID}, nil).Once()

	require.NoError(t, h.sync.SendMessage(context.Background(), "On my way"))

	snap := h.sync.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, int64(110), snap.Messages[2].ID)
	assert.False(t, snap.Messages[2].IsOptimistic)

	// a second delivery of the same echo changes nothing
	h.sync.HandleIncomingMessage(echo)
	assert.Len(t, h.sync.Snapshot().Messages, 3)
	assert.Zero(t, h.clock.fire(IncomingScrollDelay))
}

func TestHandleIncomingMessage_UnknownConversationReloadsList(t *testing.T) {
	h := newHarness(t, seller, false)
	h.api.On("ListConversations", mock.Anything).Return([]chat.Conversation{}, nil).Once()
	require.NoError(t, h.sync.LoadConversations(context.Background()))

	fresh := []chat.Conversation{{ID: 12, BuyerID: 3, SellerID: 9, BuyerName: "Ben", Product: "Lamp", LastMessage: "Hi", UnreadCount: 1}}
	h.api.On("ListConversations", mock.Anything).Return(fresh, nil).Once()

	h.sync.HandleIncomingMessage(chat.Message{ID: 1, ConversationID: 12, SenderID: 3, SenderType: chat.RoleBuyer, Body: "Hi", CreatedAt: fixedAt})

	assert.Equal(t, fresh, h.sync.VisibleConversations())
}

func TestMarkRead_FailureLeavesState(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.api.On("ListConversations", mock.Anything).Return(conversations(), nil).Once()
	h.api.On("MarkRead", mock.Anything, int64(7)).Return(backend.ErrTransport).Once()

	require.NoError(t, h.sync.LoadConversations(context.Background()))
	require.Error(t, h.sync.MarkRead(context.Background(), 7))

	assert.Equal(t, 2, findConversation(t, h.sync.VisibleConversations(), 7).UnreadCount)
	assert.Empty(t, h.sync.Snapshot().Banner)
}

func TestVisibleConversations_Search(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.api.On("ListConversations", mock.Anything).Return(conversations(), nil).Once()
	require.NoError(t, h.sync.LoadConversations(context.Background()))

	h.sync.SetSearch("VINTAGE")
	got := h.sync.VisibleConversations()
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ID)

	h.sync.SetSearch("boots")
	got = h.sync.VisibleConversations()
	require.Len(t, got, 1)
	assert.Equal(t, int64(8), got[0].ID)

	h.sync.SetSearch("Ana")
	assert.Empty(t, h.sync.VisibleConversations(), "a buyer searches seller names")

	h.sync.SetSearch("")
	assert.Len(t, h.sync.VisibleConversations(), 2)
}

func TestShowConversationList(t *testing.T) {
	h := newHarness(t, buyer, true)
	h.openConversation(t)

	h.sync.ShowConversationList()

	snap := h.sync.Snapshot()
	assert.Nil(t, snap.Active)
	assert.Empty(t, snap.Messages)
	assert.Equal(t, PanelConversations, snap.Panel)
	assert.Equal(t, []Panel{PanelMessages, PanelConversations}, h.view.panels)
	assert.ErrorIs(t, h.sync.SendMessage(context.Background(), "hi"), ErrNoActiveConversation)
}

func TestStartConversation(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.api.On("StartConversation", mock.Anything, backend.StartConversationRequest{SellerID: 9, ProductID: 55, Message: "Is this available?"}).
		Return(&backend.StartConversationResponse{Success: true, ConversationID: 7}, nil).Once()
	h.api.On("ListConversations", mock.Anything).Return(conversations(), nil).Once()
	h.api.On("GetMessages", mock.Anything, int64(7)).Return(history(), nil).Once()
	h.api.On("MarkRead", mock.Anything, int64(7)).Return(nil).Once()

	conv, err := h.sync.StartConversation(context.Background(), 9, 55, " Is this available? ")
	require.NoError(t, err)
	assert.Equal(t, int64(7), conv.ID)

	snap := h.sync.Snapshot()
	require.NotNil(t, snap.Active)
	assert.Equal(t, int64(7), snap.Active.ID)
	assert.Len(t, snap.Messages, 2)
}

func TestStartConversation_Rejects(t *testing.T) {
	h := newHarness(t, seller, false)
	_, err := h.sync.StartConversation(context.Background(), 9, 55, "hi")
	assert.ErrorIs(t, err, chat.ErrBuyerOnly)

	b := newHarness(t, buyer, false)
	_, err = b.sync.StartConversation(context.Background(), 9, 55, "   ")
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)

	b.api.On("StartConversation", mock.Anything, mock.Anything).Return(nil, &backend.StatusError{Code: 422}).Once()
	_, err = b.sync.StartConversation(context.Background(), 9, 55, "hi")
	require.Error(t, err)
	assert.Equal(t, BannerStartFailed, b.sync.Snapshot().Banner)
}

func TestHandleState(t *testing.T) {
	h := newHarness(t, buyer, false)
	cause := errors.New("dial tcp: connection refused")

	h.sync.HandleState(push.StateFailed, cause)
	snap := h.sync.Snapshot()
	assert.Equal(t, push.StateFailed, snap.Status)
	assert.Equal(t, bannerConnectionFailed, snap.Banner)

	h.sync.HandleState(push.StateConnecting, nil)
	h.sync.HandleState(push.StateConnected, nil)
	snap = h.sync.Snapshot()
	assert.Equal(t, push.StateConnected, snap.Status)
	assert.Empty(t, snap.Banner, "connected clears the connection banner")

	h.sync.HandleState(push.StateDisconnected, cause)
	assert.Equal(t, bannerConnectionLost, h.sync.Snapshot().Banner)

	// the dismissal scheduled for the first banner leaves the newer one up
	require.True(t, h.clock.fireNext(NoticeTTL))
	assert.Equal(t, bannerConnectionLost, h.sync.Snapshot().Banner)
	require.True(t, h.clock.fireNext(NoticeTTL))
	assert.Empty(t, h.sync.Snapshot().Banner)

	h.sync.HandleState(push.StateConnecting, nil)
	assert.Equal(t, push.StateConnecting, h.sync.Snapshot().Status)
}

func TestHandleState_ConnectedKeepsNotice(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.api.On("ListConversations", mock.Anything).Return(nil, backend.ErrTransport).Once()
	_ = h.sync.LoadConversations(context.Background())

	h.sync.HandleState(push.StateConnected, nil)
	assert.Equal(t, BannerLoadConversations, h.sync.Snapshot().Banner)
}

func TestHandleState_IgnoresInvalidTransitions(t *testing.T) {
	h := newHarness(t, buyer, false)

	h.sync.HandleState(push.StateDisconnected, nil)
	assert.Equal(t, push.StateConnecting, h.sync.Snapshot().Status)

	h.sync.HandleState(push.StateConnected, nil)
	h.sync.HandleState(push.StateConnecting, nil)
	assert.Equal(t, push.StateConnected, h.sync.Snapshot().Status)
}
