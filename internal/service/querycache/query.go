// Package querycache is an in-process query cache: keyed get-or-fetch with a staleness window,
// in-flight deduplication, loading state reporting, and an optional shared Redis tier.
//
// A Client is created once per process and lives for the process lifetime. Callers ask for a
// snapshot with Query (never blocks) or wait for the entry to settle with Await.
package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Key is a composite cache key such as ("job-item", 5).
// Keys hash to their JSON array form, so ("job-item", 5) and ("job-item", "5") differ.
type Key struct {
	scope string
	hash  string
}

// NewKey builds a key from a scope and any JSON-encodable parts.
func NewKey(scope string, parts ...any) Key {
	all := make([]any, 0, len(parts)+1)
	all = append(all, scope)
	all = append(all, parts...)
	b, err := json.Marshal(all)
	if err != nil {
		return Key{scope: scope, hash: fmt.Sprint(all...)}
	}
	return Key{scope: scope, hash: string(b)}
}

// Scope returns the first key element.
func (k Key) Scope() string { return k.scope }

// String returns the key hash.
func (k Key) String() string { return k.hash }

// FetchFunc loads the value for a key. It is invoked at most once per key at a time.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Query describes one observer's request for a key.
type Query[T any] struct {
	Key Key
	Fn  FetchFunc[T]
	// StaleTime is how long a settled entry is served without a new fetch. Zero means always stale.
	StaleTime time.Duration
	// RefetchOnFocus opts the entry into NotifyFocus refetches.
	RefetchOnFocus bool
	// Retry is the number of extra immediate attempts after a failure. There is no backoff.
	Retry int
	// Enabled gates fetching. A disabled query only reads what is already cached.
	Enabled bool
	// OnError is called in its own goroutine after a failed fetch.
	OnError func(ctx context.Context, err error)
}

// Status is the data status of an entry.
type Status string

const (
	// StatusPending means no data and no error yet.
	StatusPending Status = "pending"
	// StatusSuccess means the last fetch succeeded.
	StatusSuccess Status = "success"
	// StatusError means the last fetch failed. Data from an earlier success may still be present.
	StatusError Status = "error"
)

// Result is a point-in-time snapshot of an entry.
type Result[T any] struct {
	Key            Key
	Data           T
	HasData        bool
	Err            error
	Status         Status
	IsFetching     bool
	IsStale        bool
	DataUpdatedAt  time.Time
	ErrorUpdatedAt time.Time
}

// IsLoading reports an initial load: nothing settled yet and a fetch in flight.
// Background refreshes of existing data do not count.
func (r Result[T]) IsLoading() bool {
	return r.Status == StatusPending && r.IsFetching
}

// Settled reports whether the entry has data or a settled error and is not fetching.
func (r Result[T]) Settled() bool {
	return !r.IsFetching && r.Status != StatusPending
}
