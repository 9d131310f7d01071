// Package chatcache caches per-viewer chat list summaries in Redis so the
// chat list endpoint does not hit the aggregate query on every poll.
package chatcache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	chatsdomain "github.com/mimochat/mimo-server/internal/chats"
	"github.com/mimochat/mimo-server/internal/lib/logger/sl"
)

const keyPrefix = "chatlist:"

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func New(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, log: log}
}

func (c *Cache) Get(ctx context.Context, viewerID string) ([]chatsdomain.ChatSummary, bool) {
	const op = "chatcache.Get"

	raw, err := c.rdb.Get(ctx, keyPrefix+viewerID).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache read failed", slog.String("op", op), sl.Err(err))
		}
		return nil, false
	}

	var items []chatsdomain.ChatSummary
	if err := json.Unmarshal(raw, &items); err != nil {
		c.log.Warn("cache entry corrupted, dropping", slog.String("op", op), sl.Err(err))
		c.rdb.Del(ctx, keyPrefix+viewerID)
		return nil, false
	}

	return items, true
}

func (c *Cache) Set(ctx context.Context, viewerID string, items []chatsdomain.ChatSummary) {
	const op = "chatcache.Set"

	raw, err := json.Marshal(items)
	if err != nil {
		c.log.Warn("cache encode failed", slog.String("op", op), sl.Err(err))
		return
	}

	if err := c.rdb.Set(ctx, keyPrefix+viewerID, raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", slog.String("op", op), sl.Err(err))
	}
}

func (c *Cache) Invalidate(ctx context.Context, viewerIDs ...string) {
	const op = "chatcache.Invalidate"

	if len(viewerIDs) == 0 {
		return
	}

	keys := make([]string, 0, len(viewerIDs))
	for _, id := range viewerIDs {
		keys = append(keys, keyPrefix+id)
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("cache invalidation failed", slog.String("op", op), sl.Err(err))
	}
}
