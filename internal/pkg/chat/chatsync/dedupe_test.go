package chatsync

import (
	"context"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	backend "relove-chat/internal/infrastructure/backend/port"
	chat "relove-chat/internal/pkg/chat/domain"
)

// requireDistinct fails when two entries share an id, a tempId, or the same
// body and sender within DuplicateWindow.
func requireDistinct(t *testing.T, msgs []chat.Message) {
	t.Helper()
	for i := range msgs {
		for j := i + 1; j < len(msgs); j++ {
			a, b := msgs[i], msgs[j]
			require.Falsef(t, a.ID != 0 && a.ID == b.ID, "entries %d and %d share id %d", i, j, a.ID)
			require.Falsef(t, a.TempID != "" && a.TempID == b.TempID, "entries %d and %d share tempId %s", i, j, a.TempID)
			require.Falsef(t, sameContent(a, b), "entries %d and %d repeat %q at %s and %s",
				i, j, a.Body, a.CreatedAt.Format(time.TimeOnly), b.CreatedAt.Format(time.TimeOnly))
		}
	}
}

func TestHandleIncomingMessage_EchoKeepsLocalSendTime(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.openConversation(t)
	h.api.On("SendMessage", mock.Anything, mock.Anything).Return(&backend.SendMessageResponse{Success: true}, nil).Twice()

	require.NoError(t, h.sync.SendMessage(context.Background(), "ok"))
	first := strconv.FormatInt(fixedAt.UnixMilli(), 10)
	h.at = fixedAt.Add(10 * time.Second)
	require.NoError(t, h.sync.SendMessage(context.Background(), "ok"))

	h.sync.HandleIncomingMessage(chat.Message{
		ID: 50, TempID: first, ConversationID: 7,
		SenderID: 1, SenderType: chat.RoleBuyer,
		Body: "ok", CreatedAt: fixedAt.Add(9 * time.Second),
	})

	msgs := h.sync.Snapshot().Messages
	require.Len(t, msgs, 4)
	require.Equal(t, int64(50), msgs[2].ID)
	require.False(t, msgs[2].IsOptimistic)
	require.Equal(t, fixedAt, msgs[2].CreatedAt)
	require.True(t, msgs[3].IsOptimistic)
	requireDistinct(t, msgs)
}

func TestConfirm_DropsEntryWhoseIDIsTaken(t *testing.T) {
	h := newHarness(t, buyer, false)
	h.openConversation(t)
	tempID := strconv.FormatInt(fixedAt.UnixMilli(), 10)
	// the saved message already arrived with the history
	saved := &chat.Message{ID: 100, TempID: tempID, ConversationID: 7, SenderID: 1, SenderType: chat.RoleBuyer, Body: "again", CreatedAt: fixedAt}
	h.api.On("SendMessage", mock.Anything, mock.Anything).Return(&backend.SendMessageResponse{Success: true, Message: saved}, nil).Once()

	require.NoError(t, h.sync.SendMessage(context.Background(), "again"))

	msgs := h.sync.Snapshot().Messages
	require.Len(t, msgs, 2)
	requireDistinct(t, msgs)
}

// sequenceAPI answers sends at random: failures, bare acknowledgements and
// saved messages whose ids may collide with existing entries.
type sequenceAPI struct {
	backend.API
	rng *rand.Rand
	at  func() time.Time
}

func (a *sequenceAPI) ListConversations(context.Context) ([]chat.Conversation, error) {
	return conversations(), nil
}

func (a *sequenceAPI) GetMessages(context.Context, int64) ([]chat.Message, error) {
	return history(), nil
}

func (a *sequenceAPI) MarkRead(context.Context, int64) error { return nil }

func (a *sequenceAPI) SendMessage(_ context.Context, req backend.SendMessageRequest) (*backend.SendMessageResponse, error) {
	switch a.rng.Intn(4) {
	case 0:
		return nil, backend.ErrTransport
	case 1:
		return &backend.SendMessageResponse{Success: true, TempID: req.TempID}, nil
	}
	return &backend.SendMessageResponse{Success: true, TempID: req.TempID, Message: &chat.Message{
		ID:             100 + a.rng.Int63n(30),
		TempID:         req.TempID,
		ConversationID: req.ConversationID,
		SenderID:       buyer.ID,
		SenderType:     chat.RoleBuyer,
		Body:           req.Message,
		CreatedAt:      a.at().Add(time.Duration(a.rng.Intn(8000)) * time.Millisecond),
	}}, nil
}

func TestHandleIncomingMessage_RandomSequencesKeepEntriesDistinct(t *testing.T) {
	bodies := []string{"ok", "Yes!", "deal", "Is it available?"}

	for seed := int64(1); seed <= 25; seed++ {
		t.Run("seed_"+strconv.FormatInt(seed, 10), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			now := fixedAt
			clock := func() time.Time { return now }
			api := &sequenceAPI{rng: rng, at: clock}
			s := New(api, nil, buyer, Options{
				Now:       clock,
				AfterFunc: func(time.Duration, func()) {},
				Go:        func(f func()) { f() },
			})
			ctx := context.Background()
			require.NoError(t, s.LoadConversations(ctx))
			require.NoError(t, s.ActivateConversationByID(ctx, 7))

			var sent []string
			tempID := func() string {
				switch {
				case len(sent) > 0 && rng.Intn(2) == 0:
					return sent[rng.Intn(len(sent))]
				case rng.Intn(3) == 0:
					return "p" + strconv.Itoa(rng.Intn(5))
				}
				return ""
			}
			pushed := func(sender chat.Identity) chat.Message {
				conv := int64(7)
				if rng.Intn(5) == 0 {
					conv = 8
				}
				return chat.Message{
					ID:             100 + rng.Int63n(30),
					ConversationID: conv,
					SenderID:       sender.ID,
					SenderType:     sender.Role,
					Body:           bodies[rng.Intn(len(bodies))],
					CreatedAt:      now.Add(-time.Duration(rng.Intn(8000)) * time.Millisecond),
				}
			}

			for step := 0; step < 300; step++ {
				switch rng.Intn(4) {
				case 0:
					// sends never overlap earlier entries in time
					now = now.Add(DuplicateWindow + time.Second)
					_ = s.SendMessage(ctx, bodies[rng.Intn(len(bodies))])
					sent = append(sent, strconv.FormatInt(now.UnixMilli(), 10))
				case 1:
					m := pushed(buyer)
					m.TempID = tempID()
					s.HandleIncomingMessage(m)
				case 2:
					m := pushed(seller)
					if rng.Intn(4) == 0 {
						m.TempID = tempID()
					}
					s.HandleIncomingMessage(m)
				default:
					m := pushed(buyer)
					m.ID = 0
					m.TempID = tempID()
					m.IsOptimistic = true
					s.HandleIncomingMessage(m)
				}
				requireDistinct(t, s.Snapshot().Messages)
			}
		})
	}
}
