package usecase

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	cache "relove-chat/internal/infrastructure/cache/port"
	chat "relove-chat/internal/pkg/chat/domain"
)

func conversationsKey(viewer chat.Identity) string {
	return "chat:conversations:" + string(viewer.Role) + ":" + strconv.FormatInt(viewer.ID, 10)
}

// invalidateConversations drops the cached lists of the given identities.
// A failed delete only delays freshness until the TTL runs out.
func invalidateConversations(ctx context.Context, c cache.Cache, log *zap.Logger, ids ...chat.Identity) {
	if c == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, conversationsKey(id))
	}
	if _, err := c.Del(ctx, keys...); err != nil && log != nil {
		log.Warn("conversation cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
