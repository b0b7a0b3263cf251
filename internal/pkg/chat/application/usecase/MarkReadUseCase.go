package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	cache "relove-chat/internal/infrastructure/cache/port"
	chat "relove-chat/internal/pkg/chat/domain"
	repository "relove-chat/internal/pkg/chat/persistence/repository/port"
)

type MarkReadInput struct {
	Viewer         chat.Identity
	ConversationID int64
}

// MarkReadUseCase clears the viewer's unread counter and flags the other
// side's messages as read.
type MarkReadUseCase struct {
	Repo  repository.ChatRepository
	Cache cache.Cache
	Log   *zap.Logger
}

func NewMarkReadUseCase(repo repository.ChatRepository, c cache.Cache, log *zap.Logger) *MarkReadUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &MarkReadUseCase{Repo: repo, Cache: c, Log: log}
}

func (uc *MarkReadUseCase) Execute(ctx context.Context, in MarkReadInput) error {
	if _, err := loadParticipantConversation(ctx, uc.Repo, in.ConversationID, in.Viewer); err != nil {
		return err
	}
	if err := uc.Repo.MarkRead(ctx, in.ConversationID, in.Viewer.Role); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	invalidateConversations(ctx, uc.Cache, uc.Log, in.Viewer)
	return nil
}
