package chatsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	push "relove-chat/internal/infrastructure/push/port"
	"relove-chat/internal/infrastructure/realtime"
	chat "relove-chat/internal/pkg/chat/domain"
)

var errMissingMessage = errors.New("chatsync: MessageSent event without message")

// Run subscribes to the participant's private channel and feeds its events
// into the synchronizer until ctx is done.
func (s *Synchronizer) Run(ctx context.Context, source push.Source) error {
	sub, err := source.Subscribe(ctx, s.me.Channel(), listener{s: s})
	if err != nil {
		s.HandleState(push.StateFailed, err)
		return fmt.Errorf("chatsync: subscribe %s: %w", s.me.Channel(), err)
	}
	<-ctx.Done()
	sub.Unsubscribe()
	return nil
}

type listener struct {
	s *Synchronizer
}

func (l listener) HandleEvent(ev push.Event) {
	if ev.Name != realtime.EventMessageSent {
		return
	}
	msg, err := decodeMessageSent(ev.Data)
	if err != nil {
		l.s.log.Warn("dropping malformed event", zap.String("event", ev.Name), zap.Error(err))
		return
	}
	l.s.HandleIncomingMessage(msg)
}

func (l listener) HandleState(state push.State, err error) {
	l.s.HandleState(state, err)
}

// decodeMessageSent reads the {"message": {...}} payload of a MessageSent
// event.
func decodeMessageSent(data json.RawMessage) (chat.Message, error) {
	var payload struct {
		Message *chat.Message `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return chat.Message{}, err
	}
	if payload.Message == nil {
		return chat.Message{}, errMissingMessage
	}
	return *payload.Message, nil
}
