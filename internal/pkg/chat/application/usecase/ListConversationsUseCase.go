package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	cache "relove-chat/internal/infrastructure/cache/port"
	chat "relove-chat/internal/pkg/chat/domain"
	repository "relove-chat/internal/pkg/chat/persistence/repository/port"
)

// NoMessagesLabel is the display timestamp of a conversation without messages.
const NoMessagesLabel = "No messages"

// ListConversationsUseCase returns the viewer's conversations, most recent
// first. Records are cached per viewer; the display timestamp is computed on
// every call so it never goes stale in the cache.
type ListConversationsUseCase struct {
	Repo  repository.ChatRepository
	Cache cache.Cache
	TTL   time.Duration
	Log   *zap.Logger
	Now   func() time.Time
}

func NewListConversationsUseCase(repo repository.ChatRepository, c cache.Cache, ttl time.Duration, log *zap.Logger) *ListConversationsUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &ListConversationsUseCase{Repo: repo, Cache: c, TTL: ttl, Log: log, Now: time.Now}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, viewer chat.Identity) ([]chat.Conversation, error) {
	records, err := uc.records(ctx, viewer)
	if err != nil {
		return nil, err
	}

	now := uc.Now()
	out := make([]chat.Conversation, 0, len(records))
	for i := range records {
		out = append(out, records[i].ViewFor(viewer.Role, displayTime(records[i].LastMessageAt, now)))
	}
	return out, nil
}

func (uc *ListConversationsUseCase) records(ctx context.Context, viewer chat.Identity) ([]chat.ConversationRecord, error) {
	key := conversationsKey(viewer)
	if uc.Cache != nil {
		raw, err := uc.Cache.Get(ctx, key)
		switch {
		case err == nil:
			var cached []chat.ConversationRecord
			if jerr := json.Unmarshal([]byte(raw), &cached); jerr == nil {
				return cached, nil
			}
		case !errors.Is(err, cache.ErrMiss):
			uc.Log.Warn("conversation cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	records, err := uc.Repo.ListConversationsFor(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if uc.Cache != nil {
		if b, err := json.Marshal(records); err == nil {
			if err := uc.Cache.Set(ctx, key, string(b), uc.TTL); err != nil {
				uc.Log.Warn("conversation cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return records, nil
}

func displayTime(at *time.Time, now time.Time) string {
	if at == nil {
		return NoMessagesLabel
	}
	return humanize.RelTime(*at, now, "ago", "from now")
}
