package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(config.RedisConfig{Addr: mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestNewClientFailsWithoutServer(t *testing.T) {
	_, err := NewClient(config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestGetSetDel(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.True(t, IsNilError(err))

	require.NoError(t, c.Set(ctx, "k2", "v", 0))
	require.NoError(t, c.Del(ctx, "k2"))
	_, err = c.Get(ctx, "k2")
	assert.True(t, IsNilError(err))
}

func TestHGetMany(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.HSet(ctx, "h1", "java", 3))
	require.NoError(t, c.HSet(ctx, "h2", "python", 1))

	values, err := c.HGetMany(ctx, []string{"h1", "h2", "missing"}, "java")
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, HashValue{Value: "3", OK: true}, values[0])
	assert.False(t, values[1].OK)
	assert.False(t, values[2].OK)

	values, err = c.HGetMany(ctx, nil, "java")
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestAddMemberWithHash(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	err := c.AddMemberWithHash(ctx, []string{"set:a", "set:b"}, "m1", "hash:m1", map[string]interface{}{"a": 2, "b": 1})
	require.NoError(t, err)

	for _, key := range []string{"set:a", "set:b"} {
		ok, err := mr.SIsMember(key, "m1")
		require.NoError(t, err)
		assert.True(t, ok, key)
	}
	assert.Equal(t, "2", mr.HGet("hash:m1", "a"))
	assert.Equal(t, "1", mr.HGet("hash:m1", "b"))

	mr.Close()
	assert.Error(t, c.AddMemberWithHash(ctx, []string{"set:c"}, "m2", "hash:m2", map[string]interface{}{"c": 1}))
}

func TestSMembers(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SAdd(ctx, "set", "a", "b"))
	members, err := c.SMembers(ctx, "set")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)

	members, err = c.SMembers(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestFlushByPattern(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for _, k := range []string{"search:1", "search:2", "other"} {
		require.NoError(t, c.Set(ctx, k, "x", 0))
	}
	deleted, err := c.FlushByPattern(ctx, "search:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = c.Get(ctx, "other")
	assert.NoError(t, err)
}
