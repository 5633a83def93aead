package pagerduty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/target/mmk-jobitems/internal/observability/notify"
)

// APIEndpoint is the PagerDuty Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

// Config captures runtime configuration for the PagerDuty sink.
type Config struct {
	RoutingKey string
	Source     string
	Component  string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// Endpoint overrides APIEndpoint (tests, EU region).
	Endpoint string
}

// Client publishes events via PagerDuty's Events API v2.
type Client struct {
	routingKey string
	source     string
	component  string
	poster     notify.Poster
}

var _ notify.Sink = (*Client)(nil)

// NewClient constructs a PagerDuty events client from config. Callers must provide a routing key.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		routingKey: key,
		source:     notify.Fallback(strings.TrimSpace(cfg.Source), "jobitems"),
		component:  notify.Fallback(strings.TrimSpace(cfg.Component), "job-item-resolver"),
		poster: notify.Poster{
			Client:     hc,
			URL:        notify.Fallback(strings.TrimSpace(cfg.Endpoint), APIEndpoint),
			RetryLimit: max(cfg.RetryLimit, 0),
			Label:      "pagerduty api",
		},
	}, nil
}

// SendFetchFailure submits a trigger event to PagerDuty.
func (c *Client) SendFetchFailure(ctx context.Context, payload notify.FetchFailurePayload) error {
	body, err := json.Marshal(c.buildEvent(payload))
	if err != nil {
		return fmt.Errorf("encode pagerduty payload: %w", err)
	}
	return c.poster.Post(ctx, body)
}

// buildEvent dedups on the job item id so repeated failures of one item collapse into one incident.
func (c *Client) buildEvent(payload notify.FetchFailurePayload) map[string]any {
	severity := notify.Fallback(strings.ToLower(payload.Severity), notify.SeverityError)

	occurredAt := payload.OccurredAt.UTC()
	if payload.OccurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	custom := map[string]any{
		"event_id":    payload.EventID,
		"job_item_id": payload.JobItemID,
		"cache_key":   payload.CacheKey,
		"status_code": payload.StatusCode,
		"error":       payload.Error,
		"error_class": payload.ErrorClass,
	}
	for k, v := range payload.Metadata {
		if _, exists := custom[k]; !exists {
			custom[k] = v
		}
	}

	return map[string]any{
		"routing_key":  c.routingKey,
		"event_action": "trigger",
		"dedup_key":    fmt.Sprintf("job-item:%d", payload.JobItemID),
		"payload": map[string]any{
			"summary":        fmt.Sprintf("Job item %d fetch failed: %s", payload.JobItemID, notify.Fallback(payload.ErrorClass, "unknown")),
			"severity":       severity,
			"source":         c.source,
			"component":      c.component,
			"timestamp":      occurredAt.Format(time.RFC3339),
			"custom_details": custom,
		},
	}
}
