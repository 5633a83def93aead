package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/mmk-jobitems/internal/core"
	"github.com/target/mmk-jobitems/internal/domain/model"
	"github.com/target/mmk-jobitems/internal/service/querycache"
)

// DefaultJobItemStaleTime is how long a resolved job item is served without a new fetch.
const DefaultJobItemStaleTime = time.Hour

// JobItemCache is the query cache specialised to job item records.
type JobItemCache = querycache.Client[model.JobItemExpanded]

// NewJobItemCache builds the process-wide job item cache.
func NewJobItemCache(opts querycache.Options) *JobItemCache {
	return querycache.New[model.JobItemExpanded](opts)
}

// JobItemKey returns the cache key for an identifier: ("job-item", id).
func JobItemKey(id model.JobItemID) querycache.Key {
	return querycache.NewKey(model.JobItemQueryScope, int64(id))
}

// JobItemQueryPolicy produces the query options shared by single and batch resolution:
// fixed stale time, no refetch on focus, no retry, enabled only for a present identifier, and
// failures routed to the error observer.
type JobItemQueryPolicy struct {
	StaleTime time.Duration
	Observer  core.ErrorObserver
	Logger    *slog.Logger
}

// Query builds the cache query for id.
func (p JobItemQueryPolicy) Query(fetcher core.JobItemFetcher, id model.JobItemID) querycache.Query[model.JobItemExpanded] {
	key := JobItemKey(id)
	staleTime := p.StaleTime
	if staleTime <= 0 {
		staleTime = DefaultJobItemStaleTime
	}

	return querycache.Query[model.JobItemExpanded]{
		Key: key,
		Fn: func(ctx context.Context) (model.JobItemExpanded, error) {
			env, err := fetcher.FetchJobItem(ctx, id)
			if err != nil {
				return model.JobItemExpanded{}, err
			}
			return env.JobItem, nil
		},
		StaleTime:      staleTime,
		RefetchOnFocus: false,
		Retry:          0,
		Enabled:        id.Valid(),
		OnError: func(ctx context.Context, err error) {
			p.report(ctx, id, key, err)
		},
	}
}

func (p JobItemQueryPolicy) report(ctx context.Context, id model.JobItemID, key querycache.Key, err error) {
	if p.Logger != nil {
		p.Logger.WarnContext(ctx, "job item fetch failed", "job_item_id", int64(id), "error", err)
	}
	if p.Observer == nil {
		return
	}
	p.Observer.ReportFetchError(ctx, core.FetchFailure{
		ID:         id,
		Key:        key.String(),
		Err:        err,
		OccurredAt: time.Now().UTC(),
	})
}

// JobItemServiceOptions groups dependencies for JobItemService.
type JobItemServiceOptions struct {
	Fetcher core.JobItemFetcher // Required
	Cache   *JobItemCache       // Required
	Policy  JobItemQueryPolicy
}

// JobItemService resolves job items through the query cache.
// Resolve and ResolveMany never block on the network; Await and AwaitMany wait for settlement.
type JobItemService struct {
	fetcher core.JobItemFetcher
	cache   *JobItemCache
	policy  JobItemQueryPolicy
}

var _ core.JobItemResolver = (*JobItemService)(nil)

// NewJobItemService constructs a new JobItemService.
func NewJobItemService(opts JobItemServiceOptions) *JobItemService {
	if opts.Fetcher == nil {
		panic("JobItemFetcher is required")
	}
	if opts.Cache == nil {
		panic("JobItemCache is required")
	}
	return &JobItemService{fetcher: opts.Fetcher, cache: opts.Cache, policy: opts.Policy}
}

// Resolve returns the current state for one identifier, starting a fetch when needed.
// An absent identifier yields an empty, non-loading state without touching the cache.
func (s *JobItemService) Resolve(ctx context.Context, id model.JobItemID) model.JobItemState {
	if !id.Valid() {
		return model.JobItemState{}
	}
	return stateFromResult(s.cache.Query(ctx, s.policy.Query(s.fetcher, id)))
}

// Await resolves one identifier and waits until it settles or ctx ends.
// The returned error is only ever the context's; fetch failures surface as an absent record.
func (s *JobItemService) Await(ctx context.Context, id model.JobItemID) (model.JobItemState, error) {
	if !id.Valid() {
		return model.JobItemState{}, nil
	}
	res, err := s.cache.Await(ctx, s.policy.Query(s.fetcher, id))
	return stateFromResult(res), err
}

// ResolveMany resolves every identifier independently. Resolved records are returned in input
// order with pending and failed identifiers omitted. IsLoading stays true until every
// identifier has settled.
func (s *JobItemService) ResolveMany(ctx context.Context, ids []model.JobItemID) model.JobItemsState {
	return aggregate(s.ResolveManyDetailed(ctx, ids))
}

// ResolveManyDetailed is ResolveMany without the lossy aggregation: one result per input position.
func (s *JobItemService) ResolveManyDetailed(ctx context.Context, ids []model.JobItemID) []model.JobItemResult {
	out := make([]model.JobItemResult, len(ids))
	queries := make([]querycache.Query[model.JobItemExpanded], 0, len(ids))
	positions := make([]int, 0, len(ids))

	for i, id := range ids {
		if !id.Valid() {
			out[i] = model.JobItemResult{ID: id, Status: model.JobItemStatusDisabled}
			continue
		}
		queries = append(queries, s.policy.Query(s.fetcher, id))
		positions = append(positions, i)
	}

	for j, res := range s.cache.Queries(ctx, queries) {
		i := positions[j]
		out[i] = resultFromQuery(ids[i], res)
	}
	return out
}

// AwaitMany waits for every identifier to settle, then returns the aggregated state.
func (s *JobItemService) AwaitMany(ctx context.Context, ids []model.JobItemID) (model.JobItemsState, error) {
	err := s.awaitAll(ctx, ids)
	return s.ResolveMany(ctx, ids), err
}

// AwaitManyDetailed waits like AwaitMany and returns one result per input position.
func (s *JobItemService) AwaitManyDetailed(ctx context.Context, ids []model.JobItemID) ([]model.JobItemResult, error) {
	err := s.awaitAll(ctx, ids)
	return s.ResolveManyDetailed(ctx, ids), err
}

func (s *JobItemService) awaitAll(ctx context.Context, ids []model.JobItemID) error {
	g, gctx := errgroup.WithContext(ctx)
	seen := make(map[model.JobItemID]struct{}, len(ids))
	for _, id := range ids {
		if !id.Valid() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		q := s.policy.Query(s.fetcher, id)
		g.Go(func() error {
			_, err := s.cache.Await(gctx, q)
			return err
		})
	}
	return g.Wait()
}

// Invalidate marks the cached entry for id stale in this process and drops the shared copy, so
// the next resolution refetches. Returns whether a local entry existed.
func (s *JobItemService) Invalidate(ctx context.Context, id model.JobItemID) bool {
	if !id.Valid() {
		return false
	}
	return s.cache.Invalidate(ctx, JobItemKey(id))
}

// Health reports whether the cache tiers are reachable.
func (s *JobItemService) Health(ctx context.Context) error {
	return s.cache.Health(ctx)
}

func stateFromResult(res querycache.Result[model.JobItemExpanded]) model.JobItemState {
	state := model.JobItemState{IsLoading: res.IsLoading()}
	if res.HasData {
		item := res.Data
		state.JobItem = &item
	}
	return state
}

func resultFromQuery(id model.JobItemID, res querycache.Result[model.JobItemExpanded]) model.JobItemResult {
	out := model.JobItemResult{ID: id, IsLoading: res.IsLoading()}
	switch {
	case res.HasData:
		item := res.Data
		out.Status = model.JobItemStatusSuccess
		out.JobItem = &item
	case res.Err != nil:
		out.Status = model.JobItemStatusError
		out.Err = res.Err
		out.Error = res.Err.Error()
	default:
		out.Status = model.JobItemStatusPending
	}
	return out
}

func aggregate(results []model.JobItemResult) model.JobItemsState {
	state := model.JobItemsState{JobItems: make([]model.JobItemExpanded, 0, len(results))}
	for _, r := range results {
		if r.IsLoading {
			state.IsLoading = true
		}
		if r.JobItem != nil {
			state.JobItems = append(state.JobItems, *r.JobItem)
		}
	}
	return state
}
