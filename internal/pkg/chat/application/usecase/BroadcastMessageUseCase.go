package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	broadcast "relove-chat/internal/infrastructure/broadcast/port"
	"relove-chat/internal/infrastructure/realtime"
	chat "relove-chat/internal/pkg/chat/domain"
)

// MessageSentPayload is the data of a MessageSent push event.
type MessageSentPayload struct {
	Message chat.Message `json:"message"`
}

type BroadcastMessageInput struct {
	Buyer   chat.Identity
	Seller  chat.Identity
	Message chat.Message
}

// BroadcastMessageUseCase publishes MessageSent on the private channels of
// both participants. The sender's own tabs rely on the echo to confirm their
// optimistic copy.
type BroadcastMessageUseCase struct {
	Publisher broadcast.Publisher
}

func NewBroadcastMessageUseCase(pub broadcast.Publisher) *BroadcastMessageUseCase {
	return &BroadcastMessageUseCase{Publisher: pub}
}

func (uc *BroadcastMessageUseCase) Execute(ctx context.Context, in BroadcastMessageInput) error {
	data, err := json.Marshal(MessageSentPayload{Message: in.Message})
	if err != nil {
		return fmt.Errorf("encode MessageSent: %w", err)
	}
	var errs []error
	for _, to := range []chat.Identity{in.Buyer, in.Seller} {
		if err := uc.Publisher.Publish(ctx, to.Channel(), realtime.EventMessageSent, data); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", to.Channel(), err))
		}
	}
	return errors.Join(errs...)
}
