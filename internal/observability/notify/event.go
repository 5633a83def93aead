// Package notify defines the fetch failure payload and the sinks that deliver it.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Severity constants recognised by downstream sinks (PagerDuty Events v2 vocabulary).
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
	SeverityWarning  = "warning"
)

// FetchFailurePayload captures the canonical data emitted when a job item cannot be resolved.
type FetchFailurePayload struct {
	// EventID uniquely identifies this notification.
	EventID    string
	JobItemID  int64
	CacheKey   string
	StatusCode int
	Error      string
	ErrorClass string
	Severity   string
	OccurredAt time.Time
	Metadata   map[string]string
}

// NewEventID returns a random identifier for a notification.
func NewEventID() string {
	return uuid.NewString()
}

// Sink describes a destination capable of consuming fetch failure notifications.
type Sink interface {
	SendFetchFailure(ctx context.Context, payload FetchFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload FetchFailurePayload) error

// SendFetchFailure implements the Sink interface.
func (f SinkFunc) SendFetchFailure(ctx context.Context, payload FetchFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
