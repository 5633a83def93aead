package failurenotifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/target/mmk-jobitems/internal/core"
	apperrors "github.com/target/mmk-jobitems/internal/errors"
	"github.com/target/mmk-jobitems/internal/observability/notify"
)

type countingSink struct {
	mu    sync.Mutex
	names []string
}

func (c *countingSink) Count(name string, _ int64, _ map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
}
func (c *countingSink) Gauge(string, float64, map[string]string)        {}
func (c *countingSink) Timing(string, time.Duration, map[string]string) {}

func TestServiceReportFetchError(t *testing.T) {
	ctx := context.Background()

	var (
		mu       sync.Mutex
		received []notify.FetchFailurePayload
	)
	capture := notify.SinkFunc(func(_ context.Context, payload notify.FetchFailurePayload) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, payload)
		return nil
	})
	counter := &countingSink{}
	svc := NewService(Options{
		Sinks:   []SinkRegistration{{Name: "a", Sink: capture}, {Name: "b", Sink: capture}},
		Metrics: counter,
	})

	svc.ReportFetchError(ctx, core.FetchFailure{
		ID:  12,
		Key: `["job-item",12]`,
		Err: &apperrors.RemoteError{StatusCode: 404, Description: "no such job"},
	})

	if len(received) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(received))
	}
	got := received[0]
	if got.JobItemID != 12 || got.CacheKey != `["job-item",12]` {
		t.Fatalf("unexpected identity fields: %+v", got)
	}
	if got.Severity != notify.SeverityWarning {
		t.Fatalf("expected 4xx to be a warning, got %s", got.Severity)
	}
	if got.StatusCode != 404 || got.ErrorClass != "remote_4xx" || got.Error != "no such job" {
		t.Fatalf("unexpected error fields: %+v", got)
	}
	if _, err := uuid.Parse(got.EventID); err != nil {
		t.Fatalf("expected uuid event id, got %q", got.EventID)
	}
	if len(counter.names) != 1 || counter.names[0] != "jobitem.fetch_failure" {
		t.Fatalf("expected one failure counter, got %v", counter.names)
	}
}

func TestBuildPayloadSeverity(t *testing.T) {
	if p := BuildPayload(core.FetchFailure{Err: &apperrors.RemoteError{StatusCode: 503}}); p.Severity != notify.SeverityError {
		t.Fatalf("expected 5xx to be an error, got %s", p.Severity)
	}
	if p := BuildPayload(core.FetchFailure{Err: errors.New("dial tcp: refused")}); p.Severity != notify.SeverityError {
		t.Fatalf("expected transport failure to be an error, got %s", p.Severity)
	}
	if p := BuildPayload(core.FetchFailure{}); p.OccurredAt.IsZero() {
		t.Fatal("expected OccurredAt to default to now")
	}
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(Options{})
	if svc.Enabled() {
		t.Fatal("expected Enabled() to be false when no sinks registered")
	}
	// Logging and metrics still work without sinks.
	svc.ReportFetchError(context.Background(), core.FetchFailure{ID: 1, Err: errors.New("boom")})
}

func TestServiceLogsErrors(t *testing.T) {
	// Ensure we don't panic when sink returns an error.
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{
				Name: "fail",
				Sink: notify.SinkFunc(func(context.Context, notify.FetchFailurePayload) error {
					return errors.New("boom")
				}),
			},
			{Name: "nil"},
		},
	})
	if !svc.Enabled() {
		t.Fatal("expected Enabled() to be true")
	}

	svc.Notify(context.Background(), notify.FetchFailurePayload{JobItemID: 3})
}

func TestNotifyDefaultsSeverity(t *testing.T) {
	var severity string
	svc := NewService(Options{
		Sinks: []SinkRegistration{{Sink: notify.SinkFunc(func(_ context.Context, p notify.FetchFailurePayload) error {
			severity = p.Severity
			return nil
		})}},
	})

	svc.Notify(context.Background(), notify.FetchFailurePayload{JobItemID: 4})
	if severity != notify.SeverityError {
		t.Fatalf("expected severity to default to error, got %s", severity)
	}
}
