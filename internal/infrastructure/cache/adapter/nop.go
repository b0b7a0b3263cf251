package adapter

import (
	"context"
	"time"

	"relove-chat/internal/infrastructure/cache/port"
)

// NopCache always misses. It stands in when REDIS_URL is not configured.
type NopCache struct{}

var _ port.Cache = NopCache{}

func (NopCache) Get(context.Context, string) (string, error) { return "", port.ErrMiss }

func (NopCache) Set(context.Context, string, string, time.Duration) error { return nil }

func (NopCache) Del(context.Context, ...string) (int64, error) { return 0, nil }

func (NopCache) Ping(context.Context) error { return nil }

func (NopCache) Close() error { return nil }
