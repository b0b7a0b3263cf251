package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	qport "relove-chat/internal/infrastructure/queue/port"
	"relove-chat/internal/pkg/chat/application/usecase"
	chat "relove-chat/internal/pkg/chat/domain"
)

// BroadcastMessageTaskType is the queue task name for pushing a persisted
// message to both participants.
const BroadcastMessageTaskType = "chat:broadcast_message"

// BroadcastMessageTaskPayload is the JSON payload transported via the queue.
type BroadcastMessageTaskPayload struct {
	BuyerID  int64        `json:"buyerId"`
	SellerID int64        `json:"sellerId"`
	Message  chat.Message `json:"message"`
}

// BroadcastMessageTask enqueues broadcasts; it is the usecase.MessageNotifier
// of the send path.
type BroadcastMessageTask struct {
	Client qport.Client
}

func NewBroadcastMessageTask(client qport.Client) *BroadcastMessageTask {
	return &BroadcastMessageTask{Client: client}
}

var _ usecase.MessageNotifier = (*BroadcastMessageTask)(nil)

func (t *BroadcastMessageTask) NotifyMessage(ctx context.Context, buyer, seller chat.Identity, msg chat.Message) error {
	payload, err := json.Marshal(BroadcastMessageTaskPayload{
		BuyerID:  buyer.ID,
		SellerID: seller.ID,
		Message:  msg,
	})
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", BroadcastMessageTaskType, err)
	}
	_, err = t.Client.Enqueue(ctx, qport.Task{Type: BroadcastMessageTaskType, Payload: payload}, qport.EnqueueOption{
		Queue:    "chat",
		MaxRetry: 3,
		Timeout:  10 * time.Second,
	})
	return err
}

// RegisterBroadcastMessageTask binds the task handler to the provided server.
func RegisterBroadcastMessageTask(srv qport.Server, uc *usecase.BroadcastMessageUseCase, log *zap.Logger) {
	srv.Register(BroadcastMessageTaskType, func(ctx context.Context, t qport.Task) error {
		var p BroadcastMessageTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: retrying will not help
			log.Error("dropping malformed broadcast task", zap.Error(err))
			return nil
		}

		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		return uc.Execute(ctx, usecase.BroadcastMessageInput{
			Buyer:   chat.Identity{ID: p.BuyerID, Role: chat.RoleBuyer},
			Seller:  chat.Identity{ID: p.SellerID, Role: chat.RoleSeller},
			Message: p.Message,
		})
	})
}
