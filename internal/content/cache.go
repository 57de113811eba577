package content

import (
	"context"
	"log/slog"
	"time"

	platformredis "backoffice/internal/platform/redis"
)

// existsCacheTTL bounds staleness of positive existence answers. Content
// records are never hard-deleted by the platform, so positives are safe to
// cache; negatives are not cached because ingestion may create the record at
// any moment.
const existsCacheTTL = 5 * time.Minute

const existsKeyPrefix = "backoffice:content:exists:"

// ExistsCache fronts a content store with a Redis existence cache. Weight
// assignment validates batches of identifiers against the content table and
// the same identifiers tend to repeat across operator sessions.
//
// Redis failures degrade to the inner store, never to an error.
type ExistsCache struct {
	inner  Store
	client *platformredis.Client
	log    *slog.Logger
}

// NewExistsCache wraps inner. A nil client disables caching.
func NewExistsCache(inner Store, client *platformredis.Client, log *slog.Logger) *ExistsCache {
	return &ExistsCache{inner: inner, client: client, log: log}
}

func (c *ExistsCache) Exists(ctx context.Context, contentID string) (bool, error) {
	if c.client == nil {
		return c.inner.Exists(ctx, contentID)
	}

	key := existsKeyPrefix + contentID
	if hit, err := c.client.Get(ctx, key).Result(); err == nil && hit == "1" {
		return true, nil
	}

	exists, err := c.inner.Exists(ctx, contentID)
	if err != nil {
		return false, err
	}
	if exists {
		if err := c.client.Set(ctx, key, "1", existsCacheTTL).Err(); err != nil {
			c.log.Warn("content exists cache write failed", "content_id", contentID, "error", err)
		}
	}
	return exists, nil
}

func (c *ExistsCache) SetGroupVisibility(ctx context.Context, groupID string, v Visibility) (int, error) {
	return c.inner.SetGroupVisibility(ctx, groupID, v)
}
