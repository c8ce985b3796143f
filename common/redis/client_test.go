package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Debug(msg string, keysAndValues ...interface{}) {}

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewClient(rdb, nopLogger{}), mr
}

func TestClient_GetMissingKey(t *testing.T) {
	c, _ := newTestClient(t)

	val, found, err := c.GetBytes(context.Background(), "nope")

	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestClient_SetGetDelete(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte{0x00, 0xff, 0x10}, 0))
	assert.True(t, mr.Exists("k"))

	val, found, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte{0x00, 0xff, 0x10}, val)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestClient_SetWithExpiry(t *testing.T) {
	c, mr := newTestClient(t)

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))

	assert.Equal(t, time.Minute, mr.TTL("k"))
}

func TestClient_Ping(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	mr.Close()
	assert.Error(t, c.Ping(ctx))
}

func TestClient_ErrorsWhenUnreachable(t *testing.T) {
	c, mr := newTestClient(t)
	mr.Close()

	_, found, err := c.GetBytes(context.Background(), "k")

	assert.Error(t, err)
	assert.False(t, found)
}
