package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/flowcraft-ai/flowcraft-backend/internal/diagrams/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*ShareCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewShareCache(client), mr
}

func sampleProjection() *domain.SharedDiagram {
	return &domain.SharedDiagram{
		ID:            "diag-1",
		Title:         "Login Flow",
		Description:   "login flow",
		MermaidCode:   "graph TD\n  A-->B",
		VersionNumber: 2,
		Owner:         domain.OwnerInfo{ID: "user-1", Username: "alice"},
	}
}

func TestShareCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	now := time.Now()

	miss, err := c.Get(ctx, "tok-1", now)
	require.NoError(t, err)
	assert.Nil(t, miss, "a cold cache must report a miss, not an error")

	require.NoError(t, c.Put(ctx, "tok-1", sampleProjection(), nil))

	hit, err := c.Get(ctx, "tok-1", now)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, 2, hit.VersionNumber)
	assert.Equal(t, "alice", hit.Owner.Username)
}

func TestShareCacheExpiry(t *testing.T) {
	t.Run("entries lapse with the redis ttl", func(t *testing.T) {
		c, mr := newTestCache(t)
		ctx := context.Background()

		require.NoError(t, c.Put(ctx, "tok-1", sampleProjection(), nil))

		mr.FastForward(6 * time.Minute)

		hit, err := c.Get(ctx, "tok-1", time.Now())
		require.NoError(t, err)
		assert.Nil(t, hit)
	})

	t.Run("an entry for an expired token is a miss", func(t *testing.T) {
		c, _ := newTestCache(t)
		ctx := context.Background()
		exp := time.Now().Add(time.Hour)

		require.NoError(t, c.Put(ctx, "tok-1", sampleProjection(), &exp))

		hit, err := c.Get(ctx, "tok-1", exp.Add(-time.Minute))
		require.NoError(t, err)
		assert.NotNil(t, hit, "token still live, entry should serve")

		hit, err = c.Get(ctx, "tok-1", exp.Add(time.Minute))
		require.NoError(t, err)
		assert.Nil(t, hit, "token expired, entry must not serve")
	})

	t.Run("a token already past expiry is never cached", func(t *testing.T) {
		c, _ := newTestCache(t)
		ctx := context.Background()
		exp := time.Now().Add(-time.Minute)

		require.NoError(t, c.Put(ctx, "tok-1", sampleProjection(), &exp))

		hit, err := c.Get(ctx, "tok-1", time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Nil(t, hit)
	})
}

func TestShareCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	// Two tokens pointing at the same diagram, one at another.
	require.NoError(t, c.Put(ctx, "tok-1", sampleProjection(), nil))
	require.NoError(t, c.Put(ctx, "tok-2", sampleProjection(), nil))

	other := sampleProjection()
	other.ID = "diag-2"
	require.NoError(t, c.Put(ctx, "tok-other", other, nil))

	require.NoError(t, c.Invalidate(ctx, "diag-1"))

	now := time.Now()
	for _, tok := range []string{"tok-1", "tok-2"} {
		hit, err := c.Get(ctx, tok, now)
		require.NoError(t, err)
		assert.Nil(t, hit, "token %s should have been dropped", tok)
	}

	hit, err := c.Get(ctx, "tok-other", now)
	require.NoError(t, err)
	assert.NotNil(t, hit, "other diagrams' tokens must survive")
}

func TestShareCacheInvalidateEmpty(t *testing.T) {
	c, _ := newTestCache(t)

	assert.NoError(t, c.Invalidate(context.Background(), "diag-without-tokens"))
}
