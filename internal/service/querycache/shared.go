package querycache

import (
	"context"
	"encoding/json"
	"time"
)

// sharedRecord is the Redis representation of a settled success.
// FetchedAt travels with the data so every process applies the same staleness window.
type sharedRecord[T any] struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Data      T         `json:"data"`
}

// loaded is the value produced by one deduplicated load.
type loaded[T any] struct {
	value     T
	fetchedAt time.Time
	tier      CacheTier
}

func (c *Client[T]) sharedKey(k Key) string {
	return c.sharedPrefix + k.String()
}

// readShared returns a fresh record from the shared tier. Errors are logged and treated as a miss.
func (c *Client[T]) readShared(ctx context.Context, k Key, staleTime time.Duration) (loaded[T], bool) {
	var zero loaded[T]
	if c.shared == nil || staleTime <= 0 {
		return zero, false
	}

	raw, err := c.shared.Get(ctx, c.sharedKey(k))
	if err != nil {
		c.logger.WarnContext(ctx, "shared cache read failed", "key", k.String(), "error", err)
		c.record(CacheEvent{Scope: k.Scope(), Tier: TierShared, Op: OpMiss})
		return zero, false
	}
	if raw == nil {
		c.record(CacheEvent{Scope: k.Scope(), Tier: TierShared, Op: OpMiss, Ok: true})
		return zero, false
	}

	var rec sharedRecord[T]
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.logger.WarnContext(ctx, "shared cache record undecodable", "key", k.String(), "error", err)
		c.record(CacheEvent{Scope: k.Scope(), Tier: TierShared, Op: OpMiss})
		return zero, false
	}
	if c.now().Sub(rec.FetchedAt) >= staleTime {
		c.record(CacheEvent{Scope: k.Scope(), Tier: TierShared, Op: OpMiss, Ok: true})
		return zero, false
	}

	c.record(CacheEvent{Scope: k.Scope(), Tier: TierShared, Op: OpHit, Ok: true})
	return loaded[T]{value: rec.Data, fetchedAt: rec.FetchedAt, tier: TierShared}, true
}

// writeShared stores a fresh success with a TTL equal to the stale time.
func (c *Client[T]) writeShared(ctx context.Context, k Key, staleTime time.Duration, v loaded[T]) {
	if c.shared == nil || staleTime <= 0 {
		return
	}

	raw, err := json.Marshal(sharedRecord[T]{FetchedAt: v.fetchedAt, Data: v.value})
	if err != nil {
		c.logger.WarnContext(ctx, "shared cache encode failed", "key", k.String(), "error", err)
		c.record(CacheEvent{Scope: k.Scope(), Tier: TierShared, Op: OpWrite})
		return
	}

	err = c.shared.Set(ctx, c.sharedKey(k), raw, staleTime)
	if err != nil {
		c.logger.WarnContext(ctx, "shared cache write failed", "key", k.String(), "error", err)
	}
	c.record(CacheEvent{Scope: k.Scope(), Tier: TierShared, Op: OpWrite, Ok: err == nil})
}

func (c *Client[T]) deleteShared(ctx context.Context, k Key) {
	if c.shared == nil {
		return
	}
	if _, err := c.shared.Delete(ctx, c.sharedKey(k)); err != nil {
		c.logger.WarnContext(ctx, "shared cache delete failed", "key", k.String(), "error", err)
	}
}
