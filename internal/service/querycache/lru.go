package querycache

import (
	"container/list"
	"context"
	"time"
)

// entry is the mutable cache record for one key. Guarded by Client.mu.
type entry[T any] struct {
	key Key

	data           T
	hasData        bool
	err            error
	dataUpdatedAt  time.Time
	errorUpdatedAt time.Time
	fetching       bool
	invalidated    bool

	lastAccess time.Time

	// Options of the most recent enabled observer, reused for focus refetches.
	fn             FetchFunc[T]
	staleTime      time.Duration
	refetchOnFocus bool
	retry          int
	onError        func(ctx context.Context, err error)
}

func (e *entry[T]) status() Status {
	switch {
	case e.err != nil:
		return StatusError
	case e.hasData:
		return StatusSuccess
	default:
		return StatusPending
	}
}

// settledAt is the time of the most recent settle, success or failure.
func (e *entry[T]) settledAt() time.Time {
	if e.errorUpdatedAt.After(e.dataUpdatedAt) {
		return e.errorUpdatedAt
	}
	return e.dataUpdatedAt
}

func (e *entry[T]) isStale(now time.Time, staleTime time.Duration) bool {
	if e.invalidated {
		return true
	}
	at := e.settledAt()
	if at.IsZero() {
		return true
	}
	return now.Sub(at) >= staleTime
}

func (e *entry[T]) snapshot(now time.Time, staleTime time.Duration) Result[T] {
	return Result[T]{
		Key:            e.key,
		Data:           e.data,
		HasData:        e.hasData,
		Err:            e.err,
		Status:         e.status(),
		IsFetching:     e.fetching,
		IsStale:        e.isStale(now, staleTime),
		DataUpdatedAt:  e.dataUpdatedAt,
		ErrorUpdatedAt: e.errorUpdatedAt,
	}
}

// entryLRU is a capacity-bounded LRU of entries. Callers must hold Client.mu.
type entryLRU[T any] struct {
	cap    int
	ll     *list.List // front = most-recently used
	items  map[string]*list.Element
	evicts uint64
}

func newEntryLRU[T any](capacity int) *entryLRU[T] {
	if capacity <= 0 {
		capacity = 1024
	}
	return &entryLRU[T]{
		cap:   capacity,
		ll:    list.New(),
		items: make(map[string]*list.Element, capacity),
	}
}

// get returns the entry and marks it most-recently used.
func (l *entryLRU[T]) get(key string) (*entry[T], bool) {
	el, ok := l.items[key]
	if !ok {
		return nil, false
	}
	l.ll.MoveToFront(el)
	ent, ok := el.Value.(*entry[T])
	return ent, ok
}

// peek returns the entry without touching recency.
func (l *entryLRU[T]) peek(key string) (*entry[T], bool) {
	el, ok := l.items[key]
	if !ok {
		return nil, false
	}
	ent, ok := el.Value.(*entry[T])
	return ent, ok
}

// add inserts a new entry and returns any entries evicted to stay within capacity.
func (l *entryLRU[T]) add(e *entry[T]) []*entry[T] {
	el := l.ll.PushFront(e)
	l.items[e.key.String()] = el

	var evicted []*entry[T]
	for l.ll.Len() > l.cap {
		back := l.ll.Back()
		if back == nil {
			break
		}
		if ent, ok := back.Value.(*entry[T]); ok {
			evicted = append(evicted, ent)
		}
		l.removeElement(back)
		l.evicts++
	}
	return evicted
}

func (l *entryLRU[T]) remove(key string) bool {
	if el, ok := l.items[key]; ok {
		l.removeElement(el)
		return true
	}
	return false
}

func (l *entryLRU[T]) len() int {
	return l.ll.Len()
}

// each visits entries from most to least recently used.
func (l *entryLRU[T]) each(fn func(e *entry[T])) {
	for el := l.ll.Front(); el != nil; el = el.Next() {
		if ent, ok := el.Value.(*entry[T]); ok {
			fn(ent)
		}
	}
}

func (l *entryLRU[T]) removeElement(el *list.Element) {
	l.ll.Remove(el)
	if ent, ok := el.Value.(*entry[T]); ok {
		delete(l.items, ent.key.String())
		return
	}
	for k, v := range l.items {
		if v == el {
			delete(l.items, k)
			break
		}
	}
}
