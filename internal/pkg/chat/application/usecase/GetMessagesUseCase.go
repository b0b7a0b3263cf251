package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "relove-chat/internal/pkg/chat/domain"
	repository "relove-chat/internal/pkg/chat/persistence/repository/port"
)

type GetMessagesInput struct {
	Viewer         chat.Identity
	ConversationID int64
}

// GetMessagesUseCase returns a conversation's history, oldest first, to one
// of its participants.
type GetMessagesUseCase struct {
	Repo repository.ChatRepository
}

func NewGetMessagesUseCase(repo repository.ChatRepository) *GetMessagesUseCase {
	return &GetMessagesUseCase{Repo: repo}
}

func (uc *GetMessagesUseCase) Execute(ctx context.Context, in GetMessagesInput) ([]chat.Message, error) {
	if _, err := loadParticipantConversation(ctx, uc.Repo, in.ConversationID, in.Viewer); err != nil {
		return nil, err
	}
	msgs, err := uc.Repo.GetMessages(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}

// loadParticipantConversation fetches the conversation and checks that
// identity takes part in it.
func loadParticipantConversation(ctx context.Context, repo repository.ChatRepository, id int64, identity chat.Identity) (*chat.ConversationRecord, error) {
	rec, err := repo.GetConversation(ctx, id)
	if errors.Is(err, chat.ErrConversationNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !rec.HasParticipant(identity) {
		return nil, chat.ErrNotParticipant
	}
	return rec, nil
}
