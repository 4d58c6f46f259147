package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"telegram-support-bot/internal/domain/model"
	"telegram-support-bot/internal/infra/metrics"
)

// TopicCache is a lookaside over the persisted topic bindings, in both
// directions. Entries are written only after a binding is committed, so a
// hit is always authoritative; a miss falls through to Postgres.
type TopicCache struct {
	client *Client
	ttl    time.Duration
}

func NewTopicCache(client *Client, ttl time.Duration) *TopicCache {
	return &TopicCache{client: client, ttl: ttl}
}

func threadKey(userID int64, c model.Category) string {
	return fmt.Sprintf("topic_thread:%d:%s", userID, c)
}

func ownerKey(c model.Category, threadID int) string {
	return fmt.Sprintf("topic_owner:%s:%d", c, threadID)
}

func (t *TopicCache) GetThread(ctx context.Context, userID int64, c model.Category) (int, bool) {
	raw, err := t.client.Get(ctx, threadKey(userID, c))
	if err != nil {
		metrics.IncCacheRequest("topic_binding", "miss")
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id == 0 {
		metrics.IncCacheRequest("topic_binding", "miss")
		return 0, false
	}
	metrics.IncCacheRequest("topic_binding", "hit")
	return id, true
}

func (t *TopicCache) PutThread(ctx context.Context, userID int64, c model.Category, threadID int) {
	_ = t.client.Set(ctx, threadKey(userID, c), threadID, t.ttl)
}

func (t *TopicCache) GetOwner(ctx context.Context, c model.Category, threadID int) (int64, bool) {
	raw, err := t.client.Get(ctx, ownerKey(c, threadID))
	if err != nil {
		metrics.IncCacheRequest("topic_owner", "miss")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		metrics.IncCacheRequest("topic_owner", "miss")
		return 0, false
	}
	metrics.IncCacheRequest("topic_owner", "hit")
	return id, true
}

func (t *TopicCache) PutOwner(ctx context.Context, c model.Category, threadID int, userID int64) {
	_ = t.client.Set(ctx, ownerKey(c, threadID), userID, t.ttl)
}
