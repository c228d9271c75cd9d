package cache

import (
	"context"
	"time"
)

// LayeredCache reads from an in-process L1 before a remote L2 and writes through both.
type LayeredCache struct {
	l1    *MemoryCache
	l2    Service
	l1TTL time.Duration
}

// NewLayeredCache creates a layered cache in front of remote. Closing it closes remote.
func NewLayeredCache(remote Service, cfg LayeredConfig) *LayeredCache {
	cfg = withDefaults(cfg)
	return &LayeredCache{
		l1:    NewMemoryCache(cfg.Memory),
		l2:    remote,
		l1TTL: cfg.MemoryTTL,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := lc.l2.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	return lc.l1.Set(ctx, key, data, lc.memoryTTL(ttl))
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	var raw []byte
	if err := lc.l1.Get(ctx, key, &raw); err == nil {
		return decode(raw, dest)
	}
	if err := lc.l2.Get(ctx, key, &raw); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, raw, lc.l1TTL)
	return decode(raw, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) DeletePrefix(ctx context.Context, prefix string) error {
	_ = lc.l1.DeletePrefix(ctx, prefix)
	return lc.l2.DeletePrefix(ctx, prefix)
}

func (lc *LayeredCache) Close() error {
	_ = lc.l1.Close()
	return lc.l2.Close()
}

// memoryTTL keeps L1 entries no longer than the remote entry.
func (lc *LayeredCache) memoryTTL(ttl time.Duration) time.Duration {
	if ttl > 0 && ttl < lc.l1TTL {
		return ttl
	}
	return lc.l1TTL
}

var _ Service = (*LayeredCache)(nil)
