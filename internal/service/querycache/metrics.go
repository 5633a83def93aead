package querycache

import "time"

// Cache metrics hooks. Callers adapt them to StatsD (see internal/observability/metrics).

type CacheTier string

type CacheOp string

const (
	TierLocal  CacheTier = "local"
	TierShared CacheTier = "redis"
	TierRemote CacheTier = "remote"
)

const (
	OpHit   CacheOp = "hit"
	OpMiss  CacheOp = "miss"
	OpWrite CacheOp = "write"
	OpFetch CacheOp = "fetch"
	OpShare CacheOp = "share"
	OpEvict CacheOp = "evict"
)

// CacheEvent is a compact event describing a cache metric occurrence.
// Scope: first key element (e.g. "job-item")
// Tier:  local/redis/remote
// Op:    hit/miss/write/fetch/share/evict
// Ok:    whether the operation succeeded
// Duration is set for remote fetches only.
type CacheEvent struct {
	Scope    string
	Tier     CacheTier
	Op       CacheOp
	Ok       bool
	Duration time.Duration
}

// CacheMetrics is an optional hook; implementations may aggregate counters.
type CacheMetrics interface {
	RecordCacheEvent(e CacheEvent)
}

// NoopCacheMetrics is the default when no metrics are provided.
type NoopCacheMetrics struct{}

func (NoopCacheMetrics) RecordCacheEvent(_ CacheEvent) {}
