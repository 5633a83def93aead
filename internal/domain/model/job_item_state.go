package model

// JobItemState is the single-item resolver output.
// IsLoading is true only while the first fetch for the identifier is in flight.
type JobItemState struct {
	JobItem   *JobItemExpanded `json:"jobItem,omitempty"`
	IsLoading bool             `json:"isLoading"`
}

// JobItemsState is the batch resolver output.
// JobItems holds resolved records in input order; pending and failed identifiers are omitted.
type JobItemsState struct {
	JobItems  []JobItemExpanded `json:"jobItems"`
	IsLoading bool              `json:"isLoading"`
}

// JobItemStatus is the per-identifier outcome reported by detailed batch resolution.
type JobItemStatus string

const (
	// JobItemStatusPending means no data and no settled error yet.
	JobItemStatusPending JobItemStatus = "pending"
	// JobItemStatusSuccess means a record is available.
	JobItemStatusSuccess JobItemStatus = "success"
	// JobItemStatusError means the last fetch failed and no record is cached.
	JobItemStatusError JobItemStatus = "error"
	// JobItemStatusDisabled means the identifier is not resolvable (zero or negative).
	JobItemStatusDisabled JobItemStatus = "disabled"
)

// JobItemResult keeps "still loading" and "failed" apart for a single identifier.
type JobItemResult struct {
	ID        JobItemID        `json:"id"`
	Status    JobItemStatus    `json:"status"`
	JobItem   *JobItemExpanded `json:"jobItem,omitempty"`
	Err       error            `json:"-"`
	Error     string           `json:"error,omitempty"`
	IsLoading bool             `json:"isLoading"`
}

// Settled reports whether the identifier reached a terminal state for its current attempt.
func (r JobItemResult) Settled() bool {
	return r.Status != JobItemStatusPending
}
