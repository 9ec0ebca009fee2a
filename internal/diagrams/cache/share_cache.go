package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowcraft-ai/flowcraft-backend/internal/diagrams/domain"
	"github.com/redis/go-redis/v9"
)

const (
	sharedKeyPrefix      = "share:resolved:" // share:resolved:{token}
	diagramTokensPrefix  = "share:diagram:"  // set of tokens issued for a diagram: share:diagram:{diagram_id}
	defaultProjectionTTL = 5 * time.Minute
)

// ShareCache keeps resolved share projections in Redis so hot public
// links skip the join query. Entries are short-lived and additionally
// invalidated whenever the diagram's history changes.
type ShareCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewShareCache(client *redis.Client) *ShareCache {
	return &ShareCache{client: client, ttl: defaultProjectionTTL}
}

// entry is the cached record: the projection plus the token's expiry,
// so a hit can re-enforce expiry instead of outliving the token.
type entry struct {
	Shared    domain.SharedDiagram `json:"shared"`
	ExpiresAt *time.Time           `json:"expiresAt,omitempty"`
}

// Get returns the cached projection for a token, or (nil, nil) on a
// miss. An entry whose token has expired at now is a miss: the durable
// store owns the expiry verdict. Cache failures also degrade to a
// miss.
func (c *ShareCache) Get(ctx context.Context, token string, now time.Time) (*domain.SharedDiagram, error) {
	data, err := c.client.Get(ctx, sharedKeyPrefix+token).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("share cache get: %w", err)
	}

	var e entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, fmt.Errorf("share cache decode: %w", err)
	}
	if e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
		return nil, nil
	}
	return &e.Shared, nil
}

// Put stores a resolved projection and indexes the token under its
// diagram so Invalidate can find it. The Redis TTL is capped at the
// token's remaining lifetime; a token already past its expiry is not
// cached at all.
func (c *ShareCache) Put(ctx context.Context, token string, shared *domain.SharedDiagram, expiresAt *time.Time) error {
	ttl := c.ttl
	if expiresAt != nil {
		remaining := time.Until(*expiresAt)
		if remaining <= 0 {
			return nil
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	data, err := json.Marshal(entry{Shared: *shared, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("share cache encode: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, sharedKeyPrefix+token, data, ttl)
	pipe.SAdd(ctx, diagramTokensPrefix+shared.ID, token)
	pipe.Expire(ctx, diagramTokensPrefix+shared.ID, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("share cache put: %w", err)
	}
	return nil
}

// Invalidate drops every cached projection for a diagram. Called after
// append, rollback and delete so a shared link never serves stale
// history past the TTL window.
func (c *ShareCache) Invalidate(ctx context.Context, diagramID string) error {
	setKey := diagramTokensPrefix + diagramID

	tokens, err := c.client.SMembers(ctx, setKey).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("share cache members: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, tok := range tokens {
		keys = append(keys, sharedKeyPrefix+tok)
	}
	keys = append(keys, setKey)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("share cache invalidate: %w", err)
	}
	return nil
}
