package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	cache "relove-chat/internal/infrastructure/cache/port"
	chat "relove-chat/internal/pkg/chat/domain"
	repository "relove-chat/internal/pkg/chat/persistence/repository/port"
)

// MessageNotifier fans a persisted message out to both participants.
type MessageNotifier interface {
	NotifyMessage(ctx context.Context, buyer, seller chat.Identity, msg chat.Message) error
}

// SendMessageInput carries the data needed to send a new message.
// TempID is the client's correlation id and is echoed back untouched.
type SendMessageInput struct {
	Sender         chat.Identity
	ConversationID int64
	Body           string
	TempID         string
}

// SendMessageUseCase persists a message and schedules its push broadcast.
type SendMessageUseCase struct {
	Repo     repository.ChatRepository
	Notifier MessageNotifier
	Cache    cache.Cache
	Log      *zap.Logger
	Now      func() time.Time
}

func NewSendMessageUseCase(repo repository.ChatRepository, notifier MessageNotifier, c cache.Cache, log *zap.Logger) *SendMessageUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &SendMessageUseCase{Repo: repo, Notifier: notifier, Cache: c, Log: log, Now: time.Now}
}

// Execute validates, persists and broadcasts the message. A failed broadcast
// does not fail the send: the message is stored and will show up on the next
// history load.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.Message, error) {
	rec, err := loadParticipantConversation(ctx, uc.Repo, in.ConversationID, in.Sender)
	if err != nil {
		return nil, err
	}
	return uc.post(ctx, rec, in)
}

func (uc *SendMessageUseCase) post(ctx context.Context, rec *chat.ConversationRecord, in SendMessageInput) (*chat.Message, error) {
	msg, err := rec.PostMessage(in.Sender, in.Body, uc.Now())
	if err != nil {
		return nil, err
	}
	msg.TempID = in.TempID

	saved, err := uc.Repo.SaveMessage(ctx, *msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	buyer, seller := rec.Participant(chat.RoleBuyer), rec.Participant(chat.RoleSeller)
	invalidateConversations(ctx, uc.Cache, uc.Log, buyer, seller)

	if uc.Notifier != nil {
		if err := uc.Notifier.NotifyMessage(ctx, buyer, seller, *saved); err != nil {
			uc.Log.Error("message broadcast not scheduled",
				zap.Int64("conversation_id", saved.ConversationID),
				zap.Int64("message_id", saved.ID),
				zap.Error(err))
		}
	}
	return saved, nil
}
