//go:build integration

package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blogcms/pkg/cache"
	"github.com/dmitrymomot/blogcms/pkg/redis"
)

type item struct {
	Title string `json:"title"`
	Views int    `json:"views"`
}

func TestRedis(t *testing.T) {
	t.Parallel()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	ctx := context.Background()
	client, err := redis.Open(ctx, redis.Config{URL: url, RetryAttempts: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	c := cache.NewRedis[item](client, cache.WithPrefix("test-cache:"+t.Name()))

	require.NoError(t, c.Set(ctx, "a", item{Title: "Hello", Views: 3}, time.Minute))
	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, item{Title: "Hello", Views: 3}, got)

	ttl, err := client.TTL(ctx, "test-cache:"+t.Name()+":a").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Delete(ctx, "a"))
	_, err = c.Get(ctx, "a")
	require.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, client.Set(ctx, "test-cache:"+t.Name()+":bad", "{", 0).Err())
	_, err = c.Get(ctx, "bad")
	require.ErrorIs(t, err, cache.ErrUnmarshal)
	_ = client.Del(ctx, "test-cache:"+t.Name()+":bad")
}
