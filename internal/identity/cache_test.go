package identity

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { log.SetOutput(io.Discard) }

func setupCache(t *testing.T) (*CachedResolver, *stubBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	b := newBackend()
	return NewCachedResolver(b, client, time.Hour), b, mr
}

func TestCachedResolver_HitsCache(t *testing.T) {
	c, b, mr := setupCache(t)
	ctx := context.Background()

	p, err := c.Resolve(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, p.IsManager)
	assert.True(t, mr.Exists(cacheKey("m1")))
	assert.Equal(t, time.Hour, mr.TTL(cacheKey("m1")))

	p, err = c.Resolve(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, p.IsManager)
	assert.Equal(t, 1, b.calls)
}

func TestCachedResolver_ExpiresAndInvalidates(t *testing.T) {
	c, b, mr := setupCache(t)
	ctx := context.Background()

	_, err := c.Resolve(ctx, "m1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = c.Resolve(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, b.calls)

	require.NoError(t, c.Invalidate(ctx, "m1"))
	assert.False(t, mr.Exists(cacheKey("m1")))
}

func TestCachedResolver_UnknownNotCached(t *testing.T) {
	c, _, mr := setupCache(t)

	_, err := c.Resolve(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUnknownUser)
	assert.False(t, mr.Exists(cacheKey("nobody")))
}

func TestCachedResolver_RedisDownFallsBack(t *testing.T) {
	c, b, mr := setupCache(t)
	mr.Close()

	p, err := c.Resolve(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", p.UserID)
	assert.Equal(t, 1, b.calls)
}
