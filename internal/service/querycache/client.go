package querycache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/target/mmk-jobitems/internal/core"
)

// DefaultGCTime is how long an unobserved entry is kept when Options.GCTime is unset.
const DefaultGCTime = 5 * time.Minute

var (
	// ErrNoFetchFunc is returned when an enabled query carries no fetch function.
	ErrNoFetchFunc = errors.New("querycache: query has no fetch function")
	// ErrSubscriptionClosed is returned by Await when its subscription was closed underneath it.
	ErrSubscriptionClosed = errors.New("querycache: subscription closed")
)

// Options configures a Client.
type Options struct {
	// Capacity bounds the number of in-process entries. Defaults to 1024.
	Capacity int
	// GCTime is how long an entry survives without access before Sweep drops it.
	// Entries are never dropped before their own stale time elapses.
	GCTime time.Duration
	// Shared is the optional cross-process tier. Nil disables it.
	Shared core.CacheRepository
	// SharedPrefix namespaces keys in the shared tier.
	SharedPrefix string
	Metrics      CacheMetrics
	Logger       *slog.Logger
	// Now is an injectable clock for tests.
	Now func() time.Time
}

// Stats are counters for observability.
type Stats struct {
	Hits, Misses, Evictions uint64
	Fetches, Shared         uint64
	Entries, InFlight       int
	Capacity                int
}

// Client is a keyed get-or-fetch cache with in-flight deduplication.
// Concurrency: methods are safe for concurrent use.
type Client[T any] struct {
	mu      sync.Mutex
	entries *entryLRU[T]
	subs    map[string]map[uint64]chan Result[T]
	nextSub uint64

	group    singleflight.Group
	inflight sync.WaitGroup
	running  atomic.Int64

	shared       core.CacheRepository
	sharedPrefix string
	gcTime       time.Duration
	metrics      CacheMetrics
	logger       *slog.Logger
	now          func() time.Time

	hits    atomic.Uint64
	misses  atomic.Uint64
	fetches atomic.Uint64
	joined  atomic.Uint64
}

// New creates a Client.
func New[T any](opts Options) *Client[T] {
	gc := opts.GCTime
	if gc <= 0 {
		gc = DefaultGCTime
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopCacheMetrics{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "querycache")
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	return &Client[T]{
		entries:      newEntryLRU[T](opts.Capacity),
		subs:         make(map[string]map[uint64]chan Result[T]),
		shared:       opts.Shared,
		sharedPrefix: opts.SharedPrefix,
		gcTime:       gc,
		metrics:      metrics,
		logger:       logger,
		now:          nowFn,
	}
}

// Query returns a snapshot for q without blocking.
// When q is enabled and the entry is missing or stale, a background fetch is started unless one is
// already in flight. A disabled query only reads the cache.
func (c *Client[T]) Query(ctx context.Context, q Query[T]) Result[T] {
	now := c.now()
	key := q.Key.String()

	c.mu.Lock()
	e, ok := c.entries.get(key)
	if !ok {
		if !q.Enabled {
			c.mu.Unlock()
			return Result[T]{Key: q.Key, Status: StatusPending, IsStale: true}
		}
		e = &entry[T]{key: q.Key}
		for _, ev := range c.entries.add(e) {
			c.record(CacheEvent{Scope: ev.key.Scope(), Tier: TierLocal, Op: OpEvict, Ok: true})
		}
	}
	e.lastAccess = now

	fresh := !e.isStale(now, q.StaleTime)
	start := false
	if q.Enabled {
		e.fn = q.Fn
		e.staleTime = q.StaleTime
		e.refetchOnFocus = q.RefetchOnFocus
		e.retry = q.Retry
		e.onError = q.OnError
		if !fresh && !e.fetching {
			e.fetching = true
			start = true
		}
	}
	snap := e.snapshot(now, q.StaleTime)
	c.mu.Unlock()

	if fresh {
		c.hits.Add(1)
		c.record(CacheEvent{Scope: q.Key.Scope(), Tier: TierLocal, Op: OpHit, Ok: true})
	} else {
		c.misses.Add(1)
		c.record(CacheEvent{Scope: q.Key.Scope(), Tier: TierLocal, Op: OpMiss, Ok: true})
	}

	if start {
		c.startFetch(ctx, q)
	}
	return snap
}

// Queries runs Query for every element. Results are independent and keep input order.
func (c *Client[T]) Queries(ctx context.Context, qs []Query[T]) []Result[T] {
	out := make([]Result[T], len(qs))
	for i, q := range qs {
		out[i] = c.Query(ctx, q)
	}
	return out
}

// Await behaves like Query and then blocks until the entry is no longer fetching.
// A fresh or disabled entry returns immediately. The context bounds only the wait; the fetch
// itself keeps running and its result is stored.
func (c *Client[T]) Await(ctx context.Context, q Query[T]) (Result[T], error) {
	if !q.Enabled {
		return c.Query(ctx, q), nil
	}

	updates, cancel := c.Subscribe(q.Key)
	defer cancel()

	res := c.Query(ctx, q)
	for res.IsFetching {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case next, ok := <-updates:
			if !ok {
				return res, ErrSubscriptionClosed
			}
			res = next
		}
	}
	return res, nil
}

// Subscribe returns a channel that receives a snapshot each time the entry for key settles.
// Only the most recent undelivered snapshot is kept. The returned func unsubscribes and closes
// the channel; it is safe to call more than once.
func (c *Client[T]) Subscribe(key Key) (<-chan Result[T], func()) {
	ch := make(chan Result[T], 1)

	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	set, ok := c.subs[key.String()]
	if !ok {
		set = make(map[uint64]chan Result[T])
		c.subs[key.String()] = set
	}
	set[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if set, ok := c.subs[key.String()]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(c.subs, key.String())
				}
			}
			close(ch)
		})
	}
}

// Invalidate marks the entry stale so the next enabled Query refetches it.
// The shared tier copy is dropped as well. Returns false when the key is not cached locally.
func (c *Client[T]) Invalidate(ctx context.Context, key Key) bool {
	c.mu.Lock()
	e, ok := c.entries.peek(key.String())
	if ok {
		e.invalidated = true
	}
	c.mu.Unlock()

	c.deleteShared(ctx, key)
	return ok
}

// Remove drops the entry from every tier. An in-flight fetch still settles into a new entry.
func (c *Client[T]) Remove(ctx context.Context, key Key) bool {
	c.mu.Lock()
	ok := c.entries.remove(key.String())
	c.mu.Unlock()

	c.deleteShared(ctx, key)
	return ok
}

// NotifyFocus refetches stale entries whose most recent observer enabled RefetchOnFocus.
// Returns the number of fetches started.
func (c *Client[T]) NotifyFocus(ctx context.Context) int {
	now := c.now()
	var queries []Query[T]

	c.mu.Lock()
	c.entries.each(func(e *entry[T]) {
		if !e.refetchOnFocus || e.fn == nil || e.fetching || !e.isStale(now, e.staleTime) {
			return
		}
		e.fetching = true
		queries = append(queries, e.query())
	})
	c.mu.Unlock()

	for _, q := range queries {
		c.startFetch(ctx, q)
	}
	return len(queries)
}

// Sweep drops entries that are idle for longer than the GC time (and their own stale time),
// have no subscribers, and are not fetching. Returns the number removed.
func (c *Client[T]) Sweep(now time.Time) int {
	var expired []Key

	c.mu.Lock()
	c.entries.each(func(e *entry[T]) {
		if e.fetching {
			return
		}
		if _, watched := c.subs[e.key.String()]; watched {
			return
		}
		ttl := max(c.gcTime, e.staleTime)
		if now.Sub(e.lastAccess) >= ttl {
			expired = append(expired, e.key)
		}
	})
	for _, k := range expired {
		c.entries.remove(k.String())
	}
	c.mu.Unlock()

	for _, k := range expired {
		c.record(CacheEvent{Scope: k.Scope(), Tier: TierLocal, Op: OpEvict, Ok: true})
	}
	if len(expired) > 0 {
		c.logger.Debug("query cache sweep", "removed", len(expired))
	}
	return len(expired)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (c *Client[T]) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.gcTime
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(c.now())
		}
	}
}

// Wait blocks until every fetch started so far has settled and its error callback returned.
func (c *Client[T]) Wait() {
	c.inflight.Wait()
}

// Stats returns a snapshot of counters and sizes.
func (c *Client[T]) Stats() Stats {
	c.mu.Lock()
	size := c.entries.len()
	evicts := c.entries.evicts
	capacity := c.entries.cap
	c.mu.Unlock()

	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: evicts,
		Fetches:   c.fetches.Load(),
		Shared:    c.joined.Load(),
		Entries:   size,
		InFlight:  int(c.running.Load()),
		Capacity:  capacity,
	}
}

// Health reports the shared tier health. It is always nil without a shared tier.
func (c *Client[T]) Health(ctx context.Context) error {
	if c.shared == nil {
		return nil
	}
	return c.shared.Health(ctx)
}

func (e *entry[T]) query() Query[T] {
	return Query[T]{
		Key:            e.key,
		Fn:             e.fn,
		StaleTime:      e.staleTime,
		RefetchOnFocus: e.refetchOnFocus,
		Retry:          e.retry,
		Enabled:        true,
		OnError:        e.onError,
	}
}

// startFetch runs the deduplicated load in the background. The caller must already have marked
// the entry as fetching.
func (c *Client[T]) startFetch(ctx context.Context, q Query[T]) {
	bg := context.WithoutCancel(ctx)
	c.inflight.Add(1)
	c.running.Add(1)
	go func() {
		defer c.inflight.Done()
		defer c.running.Add(-1)
		c.fetch(bg, q)
	}()
}

func (c *Client[T]) fetch(ctx context.Context, q Query[T]) {
	// Only the caller that ran load reports; Do sets shared for the leader too once anyone joined.
	var led bool
	v, err, shared := c.group.Do(q.Key.String(), func() (any, error) {
		led = true
		return c.load(ctx, q)
	})
	if shared {
		c.joined.Add(1)
		c.record(CacheEvent{Scope: q.Key.Scope(), Tier: TierLocal, Op: OpShare, Ok: err == nil})
	}

	var got loaded[T]
	if err == nil {
		got, _ = v.(loaded[T])
	}
	c.settle(q.Key, got, err)

	if err != nil {
		c.logger.DebugContext(ctx, "query fetch failed", "key", q.Key.String(), "error", err)
		if led && q.OnError != nil {
			c.inflight.Add(1)
			go func() {
				defer c.inflight.Done()
				q.OnError(ctx, err)
			}()
		}
	}
}

// load consults the shared tier, then calls the fetch function up to Retry+1 times.
func (c *Client[T]) load(ctx context.Context, q Query[T]) (loaded[T], error) {
	if hit, ok := c.readShared(ctx, q.Key, q.StaleTime); ok {
		return hit, nil
	}
	if q.Fn == nil {
		return loaded[T]{}, ErrNoFetchFunc
	}

	attempts := max(q.Retry, 0) + 1
	var (
		value T
		err   error
	)
	for range attempts {
		c.fetches.Add(1)
		start := c.now()
		value, err = q.Fn(ctx)
		c.record(CacheEvent{
			Scope:    q.Key.Scope(),
			Tier:     TierRemote,
			Op:       OpFetch,
			Ok:       err == nil,
			Duration: c.now().Sub(start),
		})
		if err == nil {
			break
		}
	}
	if err != nil {
		return loaded[T]{}, err
	}

	got := loaded[T]{value: value, fetchedAt: c.now(), tier: TierRemote}
	c.writeShared(ctx, q.Key, q.StaleTime, got)
	return got, nil
}

// settle stores the outcome on the current entry for key and notifies subscribers.
func (c *Client[T]) settle(key Key, got loaded[T], err error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.get(key.String())
	if !ok {
		e = &entry[T]{key: key, lastAccess: now}
		for _, ev := range c.entries.add(e) {
			c.record(CacheEvent{Scope: ev.key.Scope(), Tier: TierLocal, Op: OpEvict, Ok: true})
		}
	}

	e.fetching = false
	e.invalidated = false
	if err != nil {
		e.err = err
		e.errorUpdatedAt = now
	} else {
		e.data = got.value
		e.hasData = true
		e.err = nil
		e.dataUpdatedAt = got.fetchedAt
		c.record(CacheEvent{Scope: key.Scope(), Tier: TierLocal, Op: OpWrite, Ok: true})
	}

	snap := e.snapshot(now, e.staleTime)
	for _, ch := range c.subs[key.String()] {
		deliver(ch, snap)
	}
}

// deliver replaces any undelivered snapshot with r. Caller holds c.mu, so ch is open.
func deliver[T any](ch chan Result[T], r Result[T]) {
	select {
	case ch <- r:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- r:
	default:
	}
}

func (c *Client[T]) record(e CacheEvent) {
	c.metrics.RecordCacheEvent(e)
}
