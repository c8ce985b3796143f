package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/haystack/common/logger"
)

func startShards(t *testing.T, n int) ([]*miniredis.Miniredis, []string) {
	t.Helper()
	shards := make([]*miniredis.Miniredis, n)
	addrs := make([]string, n)
	for i := range shards {
		shards[i] = miniredis.RunT(t)
		addrs[i] = shards[i].Addr()
	}
	return shards, addrs
}

func TestRedisCache_MissIsAbsent(t *testing.T) {
	_, addrs := startShards(t, 2)
	c, err := NewRedisCache(addrs, "", logger.Discard())
	require.NoError(t, err)
	defer c.Close()

	data, found, err := c.Get(context.Background(), "photo:2:42abc")

	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, data)
}

func TestRedisCache_KeyLivesOnExactlyOneShard(t *testing.T) {
	shards, addrs := startShards(t, 3)
	c, err := NewRedisCache(addrs, "", logger.Discard())
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("photo:%d:abc", i)
		require.NoError(t, c.Set(ctx, key, []byte("v"), 0))

		holders := 0
		for _, s := range shards {
			if s.Exists(key) {
				holders++
			}
		}
		assert.Equal(t, 1, holders, "key %s", key)
	}
}

func TestRedisCache_RoutingIndependentOfEndpointOrder(t *testing.T) {
	_, addrs := startShards(t, 3)
	writer, err := NewRedisCache(addrs, "", logger.Discard())
	require.NoError(t, err)
	defer writer.Close()

	reversed := []string{addrs[2], addrs[1], addrs[0]}
	reader, err := NewRedisCache(reversed, "", logger.Discard())
	require.NoError(t, err)
	defer reader.Close()
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("dir:%d", i)
		value := []byte(fmt.Sprintf("http://lb/%d", i))
		require.NoError(t, writer.Set(ctx, key, value, 0))

		got, found, err := reader.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, found, "key %s", key)
		assert.Equal(t, value, got)
	}
}

func TestRedisCache_TTL(t *testing.T) {
	shards, addrs := startShards(t, 1)
	c, err := NewRedisCache(addrs, "", logger.Discard())
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	shards[0].FastForward(2 * time.Minute)

	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_PingAndUnreachable(t *testing.T) {
	shards, addrs := startShards(t, 2)
	c, err := NewRedisCache(addrs, "", logger.Discard())
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	shards[1].Close()
	assert.Error(t, c.Ping(ctx))
}

func TestNewRedisCache_Validation(t *testing.T) {
	_, err := NewRedisCache(nil, "", logger.Discard())
	assert.Error(t, err)

	_, err = NewRedisCache([]string{"a:6379", "a:6379"}, "", logger.Discard())
	assert.Error(t, err)
}
