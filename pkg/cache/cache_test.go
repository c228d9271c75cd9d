package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string    `json:"name"`
	Items []float64 `json:"items"`
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMemory(t *testing.T, size int) (*MemoryCache, *clock) {
	t.Helper()
	mc := NewMemoryCache(MemoryConfig{MaxSize: size})
	t.Cleanup(func() { _ = mc.Close() })
	clk := &clock{t: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	mc.now = clk.now
	return mc, clk
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t, 0)

	require.NoError(t, mc.Set(ctx, "k", payload{Name: "a", Items: []float64{1, 2}}, time.Minute))
	var got payload
	require.NoError(t, mc.Get(ctx, "k", &got))
	assert.Equal(t, payload{Name: "a", Items: []float64{1, 2}}, got)

	require.NoError(t, mc.Set(ctx, "s", "plain", 0))
	var s string
	require.NoError(t, mc.Get(ctx, "s", &s))
	assert.Equal(t, "plain", s)
}

func TestMemoryCache_MissAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc, clk := newTestMemory(t, 0)

	var v payload
	assert.ErrorIs(t, mc.Get(ctx, "absent", &v), ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "short", payload{}, time.Minute))
	clk.advance(59 * time.Second)
	assert.NoError(t, mc.Get(ctx, "short", &v))
	clk.advance(2 * time.Second)
	assert.ErrorIs(t, mc.Get(ctx, "short", &v), ErrCacheMiss)
	assert.Equal(t, 0, mc.Len())

	// No TTL means the configured default.
	require.NoError(t, mc.Set(ctx, "forever", 1, 0))
	clk.advance(167 * time.Hour)
	var n int
	assert.NoError(t, mc.Get(ctx, "forever", &n))
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t, 2)

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	var n int
	require.NoError(t, mc.Get(ctx, "a", &n))
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &n), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &n))
	assert.Equal(t, 1, n)
	require.NoError(t, mc.Get(ctx, "c", &n))
	assert.Equal(t, 3, n)
}

func TestMemoryCache_OverwriteKeepsSize(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t, 2)

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, mc.Set(ctx, "a", 2, time.Minute))
	assert.Equal(t, 1, mc.Len())
	var n int
	require.NoError(t, mc.Get(ctx, "a", &n))
	assert.Equal(t, 2, n)
}

func TestMemoryCache_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t, 0)

	for _, k := range []string{"bars:AAPL:1", "bars:AAPL:2", "bars:AAPLX:1", "bars:MSFT:1"} {
		require.NoError(t, mc.Set(ctx, k, 1, time.Minute))
	}
	require.NoError(t, mc.DeletePrefix(ctx, Key("bars", "AAPL")+":"))
	assert.Equal(t, 2, mc.Len())

	var n int
	assert.NoError(t, mc.Get(ctx, "bars:AAPLX:1", &n))
	assert.NoError(t, mc.Get(ctx, "bars:MSFT:1", &n))
}

func TestLayeredCache_ReadsThroughAndPopulatesL1(t *testing.T) {
	ctx := context.Background()
	remote, _ := newTestMemory(t, 0)
	lc := NewLayeredCache(remote, LayeredConfig{})
	defer lc.Close()

	require.NoError(t, remote.Set(ctx, "k", payload{Name: "remote"}, time.Minute))

	var got payload
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, "remote", got.Name)

	// Served from L1 after the remote entry is gone.
	require.NoError(t, remote.Delete(ctx, "k"))
	got = payload{}
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, "remote", got.Name)

	require.NoError(t, lc.Delete(ctx, "k"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestLayeredCache_WriteThroughAndPrefixDelete(t *testing.T) {
	ctx := context.Background()
	remote, _ := newTestMemory(t, 0)
	lc := NewLayeredCache(remote, LayeredConfig{MemoryTTL: time.Minute})
	defer lc.Close()

	require.NoError(t, lc.Set(ctx, "meta:X", payload{Name: "x"}, time.Hour))
	var got payload
	require.NoError(t, remote.Get(ctx, "meta:X", &got))
	assert.Equal(t, "x", got.Name)
	assert.Equal(t, time.Minute, lc.memoryTTL(time.Hour))
	assert.Equal(t, 10*time.Second, lc.memoryTTL(10*time.Second))

	require.NoError(t, lc.DeletePrefix(ctx, "meta:"))
	assert.ErrorIs(t, lc.Get(ctx, "meta:X", &got), ErrCacheMiss)
}

func TestDefaults(t *testing.T) {
	r := withDefaults(RedisConfig{Host: "cache.internal"})
	assert.Equal(t, "cache.internal:6379", r.Addr())
	assert.Equal(t, 10, r.PoolSize)
	assert.Equal(t, 4*time.Second, r.PoolTimeout)
	assert.Equal(t, "trendlens", r.Prefix)

	l := withDefaults(LayeredConfig{})
	assert.Equal(t, time.Hour, l.MemoryTTL)
	assert.Equal(t, 1024, l.Memory.MaxSize)
}

func TestRedisCache_KeyNamespacing(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	assert.Equal(t, "tl:bars:^VIX", newRedisCache(client, "tl").key("bars:^VIX"))
	assert.Equal(t, "bars", newRedisCache(client, "").key("bars"))
	assert.Equal(t, `tl:a\*b\?\[c\]`, escapeGlob("tl:a*b?[c]"))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "bars:AAPL:0:0", Key("bars", "AAPL", 0, 0))
	assert.Equal(t, "meta:AAPL", Key("meta", "AAPL"))
}
