package usecase

import (
	"context"
	"fmt"

	chat "relove-chat/internal/pkg/chat/domain"
)

type StartConversationInput struct {
	Buyer      chat.Identity
	SellerID   int64
	ProductID  int64
	Body       string
	Product    string
	SellerName string
	BuyerName  string
}

type StartConversationOutput struct {
	Conversation *chat.ConversationRecord
	Message      *chat.Message
	Created      bool
}

// StartConversationUseCase lets a buyer contact the seller of a product. An
// existing conversation for the same buyer, seller and product is reused and
// the opening message is appended to it.
type StartConversationUseCase struct {
	Send *SendMessageUseCase
}

func NewStartConversationUseCase(send *SendMessageUseCase) *StartConversationUseCase {
	return &StartConversationUseCase{Send: send}
}

func (uc *StartConversationUseCase) Execute(ctx context.Context, in StartConversationInput) (*StartConversationOutput, error) {
	if in.Buyer.Role != chat.RoleBuyer {
		return nil, chat.ErrBuyerOnly
	}
	if in.SellerID <= 0 || in.ProductID <= 0 {
		return nil, chat.ErrMissingParticipants
	}
	if _, err := chat.NormalizeBody(in.Body); err != nil {
		return nil, err
	}

	rec, created, err := uc.Send.Repo.FindOrCreateConversation(ctx, chat.ConversationRecord{
		BuyerID:     in.Buyer.ID,
		SellerID:    in.SellerID,
		ProductID:   in.ProductID,
		BuyerName:   in.BuyerName,
		SellerName:  in.SellerName,
		ProductName: in.Product,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	msg, err := uc.Send.post(ctx, rec, SendMessageInput{
		Sender:         in.Buyer,
		ConversationID: rec.ID,
		Body:           in.Body,
	})
	if err != nil {
		return nil, err
	}
	return &StartConversationOutput{Conversation: rec, Message: msg, Created: created}, nil
}
