// Package failurenotifier fans job item fetch failures out to logs, metrics and alert sinks.
package failurenotifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/target/mmk-jobitems/internal/core"
	"github.com/target/mmk-jobitems/internal/domain/model"
	apperrors "github.com/target/mmk-jobitems/internal/errors"
	obserrors "github.com/target/mmk-jobitems/internal/observability/errors"
	"github.com/target/mmk-jobitems/internal/observability/metrics"
	"github.com/target/mmk-jobitems/internal/observability/notify"
	"github.com/target/mmk-jobitems/internal/observability/statsd"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the failure notifier service.
type Options struct {
	Logger  *slog.Logger
	Sinks   []SinkRegistration
	Metrics statsd.Sink
}

// Service dispatches fetch failures to all registered sinks. It is the process error observer.
type Service struct {
	logger  *slog.Logger
	sinks   []SinkRegistration
	metrics statsd.Sink
}

var _ core.ErrorObserver = (*Service)(nil)

// NewService constructs a failure notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "failure_notifier")
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		name := entry.Name
		if name == "" {
			name = "sink"
		}
		sinks = append(sinks, SinkRegistration{Name: name, Sink: entry.Sink})
	}

	return &Service{logger: logger, sinks: sinks, metrics: opts.Metrics}
}

// ReportFetchError logs the failure, counts it, and notifies every sink.
func (s *Service) ReportFetchError(ctx context.Context, failure core.FetchFailure) {
	payload := BuildPayload(failure)

	s.logger.ErrorContext(ctx, "job item fetch failed",
		"job_item_id", payload.JobItemID,
		"event_id", payload.EventID,
		"error_class", payload.ErrorClass,
		"status_code", payload.StatusCode,
		"error", payload.Error,
	)
	metrics.EmitFetchFailure(s.metrics, metrics.FetchFailure{Scope: model.JobItemQueryScope, Err: failure.Err})

	s.Notify(ctx, payload)
}

// Notify fans the payload out to all sinks and waits for every delivery attempt.
func (s *Service) Notify(ctx context.Context, payload notify.FetchFailurePayload) {
	if len(s.sinks) == 0 {
		return
	}
	if payload.Severity == "" {
		payload.Severity = notify.SeverityError
	}

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendFetchFailure(ctx, payload); err != nil {
				s.logger.Error("failure notifier delivery error",
					"sink", entry.Name,
					"job_item_id", payload.JobItemID,
					"event_id", payload.EventID,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return len(s.sinks) > 0
}

// BuildPayload converts a fetch failure into a notification payload.
// Upstream 4xx answers are warnings; everything else is an error.
func BuildPayload(failure core.FetchFailure) notify.FetchFailurePayload {
	occurredAt := failure.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	payload := notify.FetchFailurePayload{
		EventID:    notify.NewEventID(),
		JobItemID:  int64(failure.ID),
		CacheKey:   failure.Key,
		ErrorClass: obserrors.Classify(failure.Err),
		Severity:   notify.SeverityError,
		OccurredAt: occurredAt,
	}
	if failure.Err != nil {
		payload.Error = failure.Err.Error()
	}
	if remote, ok := apperrors.AsRemote(failure.Err); ok {
		payload.StatusCode = remote.StatusCode
		if remote.StatusCode >= 400 && remote.StatusCode < 500 {
			payload.Severity = notify.SeverityWarning
		}
	}
	return payload
}
