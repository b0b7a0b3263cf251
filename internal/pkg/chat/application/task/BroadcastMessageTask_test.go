package task

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	broadcast "relove-chat/internal/infrastructure/broadcast/port"
	qadapter "relove-chat/internal/infrastructure/queue/adapter"
	qport "relove-chat/internal/infrastructure/queue/port"
	"relove-chat/internal/pkg/chat/application/usecase"
	chat "relove-chat/internal/pkg/chat/domain"
)

func TestBroadcastTaskRoundTripThroughInlineQueue(t *testing.T) {
	var mu sync.Mutex
	var channels []string
	pub := broadcast.PublisherFunc(func(_ context.Context, channel, _ string, _ []byte) error {
		mu.Lock()
		channels = append(channels, channel)
		mu.Unlock()
		return nil
	})

	q := qadapter.NewInline(zap.NewNop())
	RegisterBroadcastMessageTask(q, usecase.NewBroadcastMessageUseCase(pub), zap.NewNop())

	notifier := NewBroadcastMessageTask(q)
	err := notifier.NotifyMessage(context.Background(),
		chat.Identity{ID: 4, Role: chat.RoleBuyer},
		chat.Identity{ID: 8, Role: chat.RoleSeller},
		chat.Message{ID: 1, ConversationID: 2, Body: "hi"})
	require.NoError(t, err)

	assert.Equal(t, []string{"private-user.4.buyer", "private-user.8.seller"}, channels)
}

func TestMalformedPayloadIsDropped(t *testing.T) {
	q := qadapter.NewInline(zap.NewNop())
	called := false
	pub := broadcast.PublisherFunc(func(context.Context, string, string, []byte) error {
		called = true
		return nil
	})
	RegisterBroadcastMessageTask(q, usecase.NewBroadcastMessageUseCase(pub), zap.NewNop())

	_, err := q.Enqueue(context.Background(), qport.Task{Type: BroadcastMessageTaskType, Payload: []byte("{")})
	require.NoError(t, err)
	assert.False(t, called)
}
