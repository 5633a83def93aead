package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/mmk-jobitems/internal/core"
	"github.com/target/mmk-jobitems/internal/domain/model"
)

const (
	// maxBatchIDs caps the ids accepted by List.
	maxBatchIDs        = 100
	defaultWaitTimeout = 30 * time.Second
)

// JobItemHandlers serves the single and batch resolvers.
type JobItemHandlers struct {
	Resolver    core.JobItemResolver
	WaitTimeout time.Duration
	Logger      *slog.Logger
}

// detailedResponse is the body of GET /api/job-items?detailed=true.
type detailedResponse struct {
	Results   []model.JobItemResult `json:"results"`
	IsLoading bool                  `json:"isLoading"`
}

// Get handles GET /api/job-items/{id}[?wait=true].
// Without wait the current snapshot is returned and a fetch may be started in the background.
func (h *JobItemHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	wait, err := parseBoolQuery(r, "wait")
	if err != nil {
		WriteAppError(w, err)
		return
	}

	if !wait {
		WriteJSON(w, http.StatusOK, h.Resolver.Resolve(r.Context(), id))
		return
	}

	ctx, cancel := h.waitContext(r.Context())
	defer cancel()
	state, err := h.Resolver.Await(ctx, id)
	if h.clientGone(r, err) {
		return
	}
	WriteJSON(w, http.StatusOK, state)
}

// List handles GET /api/job-items?ids=1,2,3[&wait=true][&detailed=true].
func (h *JobItemHandlers) List(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDsQuery(r, maxBatchIDs)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	wait, err := parseBoolQuery(r, "wait")
	if err != nil {
		WriteAppError(w, err)
		return
	}
	detailed, err := parseBoolQuery(r, "detailed")
	if err != nil {
		WriteAppError(w, err)
		return
	}

	ctx := r.Context()
	if wait {
		var cancel context.CancelFunc
		ctx, cancel = h.waitContext(ctx)
		defer cancel()
	}

	if detailed {
		var results []model.JobItemResult
		if wait {
			results, err = h.Resolver.AwaitManyDetailed(ctx, ids)
		} else {
			results = h.Resolver.ResolveManyDetailed(ctx, ids)
		}
		if h.clientGone(r, err) {
			return
		}
		WriteJSON(w, http.StatusOK, detailedFrom(results))
		return
	}

	var state model.JobItemsState
	if wait {
		state, err = h.Resolver.AwaitMany(ctx, ids)
	} else {
		state = h.Resolver.ResolveMany(ctx, ids)
	}
	if h.clientGone(r, err) {
		return
	}
	WriteJSON(w, http.StatusOK, state)
}

type invalidateResponse struct {
	ID     model.JobItemID `json:"id"`
	Cached bool            `json:"cached"`
}

// Invalidate handles POST /api/job-items/{id}/invalidate.
// The next request for id refetches; Cached reports whether this process held an entry.
func (h *JobItemHandlers) Invalidate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	cached := h.Resolver.Invalidate(r.Context(), id)
	if h.Logger != nil {
		h.Logger.InfoContext(r.Context(), "job item invalidated", "job_item_id", int64(id), "cached", cached)
	}
	WriteJSON(w, http.StatusOK, invalidateResponse{ID: id, Cached: cached})
}

func (h *JobItemHandlers) waitContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := h.WaitTimeout
	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}
	return context.WithTimeout(parent, timeout)
}

// clientGone reports whether the request itself was canceled. A wait that merely timed out
// still answers with the latest snapshot.
func (h *JobItemHandlers) clientGone(r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	if r.Context().Err() != nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) && h.Logger != nil {
		h.Logger.DebugContext(r.Context(), "job item wait timed out", "path", r.URL.Path)
	}
	return false
}

func detailedFrom(results []model.JobItemResult) detailedResponse {
	out := detailedResponse{Results: results}
	if out.Results == nil {
		out.Results = []model.JobItemResult{}
	}
	for _, res := range results {
		if res.IsLoading {
			out.IsLoading = true
			break
		}
	}
	return out
}
