package core

import (
	"context"
	"time"

	"github.com/target/mmk-jobitems/internal/domain/model"
)

// This file contains the ports the job item resolver depends on.
// Adapters under internal/adapters and internal/data implement them; services depend only on
// these interfaces.

// JobItemFetcher performs a single read of one job item from the remote API.
// Implementations must not cache or retry.
type JobItemFetcher interface {
	FetchJobItem(ctx context.Context, id model.JobItemID) (*model.JobItemEnvelope, error)
}

// FetchFailure describes one failed resolution attempt for an identifier.
type FetchFailure struct {
	ID         model.JobItemID
	Key        string
	Err        error
	OccurredAt time.Time
}

// ErrorObserver receives fetch failures out of band.
// Calls are fire-and-forget; implementations must not block the caller for long.
type ErrorObserver interface {
	ReportFetchError(ctx context.Context, failure FetchFailure)
}

// ErrorObserverFunc adapts a function to the ErrorObserver interface.
type ErrorObserverFunc func(ctx context.Context, failure FetchFailure)

// ReportFetchError implements ErrorObserver.
func (f ErrorObserverFunc) ReportFetchError(ctx context.Context, failure FetchFailure) {
	if f == nil {
		return
	}
	f(ctx, failure)
}

// JobItemResolver is the surface consumed by HTTP handlers and the admin CLI.
type JobItemResolver interface {
	Resolve(ctx context.Context, id model.JobItemID) model.JobItemState
	ResolveMany(ctx context.Context, ids []model.JobItemID) model.JobItemsState
	ResolveManyDetailed(ctx context.Context, ids []model.JobItemID) []model.JobItemResult
	Await(ctx context.Context, id model.JobItemID) (model.JobItemState, error)
	AwaitMany(ctx context.Context, ids []model.JobItemID) (model.JobItemsState, error)
	AwaitManyDetailed(ctx context.Context, ids []model.JobItemID) ([]model.JobItemResult, error)
	Invalidate(ctx context.Context, id model.JobItemID) bool
	Health(ctx context.Context) error
}
