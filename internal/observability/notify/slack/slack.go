package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/target/mmk-jobitems/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// JobItemURLPrefix, when set, links the job item id in messages.
	JobItemURLPrefix string
}

// Client delivers fetch failure notifications to a Slack webhook.
type Client struct {
	channel    string
	username   string
	linkPrefix string
	poster     notify.Poster
}

var _ notify.Sink = (*Client)(nil)

// NewClient builds a Slack webhook client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
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
		channel:    strings.TrimSpace(cfg.Channel),
		username:   notify.Fallback(strings.TrimSpace(cfg.Username), "jobitems"),
		linkPrefix: strings.TrimRight(strings.TrimSpace(cfg.JobItemURLPrefix), "/"),
		poster: notify.Poster{
			Client:     hc,
			URL:        webhookURL,
			RetryLimit: max(cfg.RetryLimit, 0),
			Label:      "slack webhook",
		},
	}, nil
}

// SendFetchFailure posts a formatted message to Slack.
func (c *Client) SendFetchFailure(ctx context.Context, payload notify.FetchFailurePayload) error {
	body, err := json.Marshal(c.formatMessage(payload))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}
	return c.poster.Post(ctx, body)
}

func (c *Client) formatMessage(payload notify.FetchFailurePayload) map[string]any {
	timestamp := payload.OccurredAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var text strings.Builder
	text.WriteString("*Job item fetch failed*")
	if payload.JobItemID != 0 {
		text.WriteString(" `")
		text.WriteString(strconv.FormatInt(payload.JobItemID, 10))
		text.WriteByte('`')
	}
	text.WriteByte('\n')

	fields := []struct{ label, value string }{
		{"Severity", notify.Fallback(payload.Severity, notify.SeverityError)},
		{"Job item", c.jobItemLink(payload.JobItemID)},
		{"Status", statusText(payload.StatusCode)},
		{"Error class", payload.ErrorClass},
		{"Error", escapeSlackText(payload.Error)},
		{"Event", payload.EventID},
	}
	for _, f := range fields {
		appendField(&text, f.label, f.value)
	}
	appendMetadata(&text, payload.Metadata)
	text.WriteString("• Timestamp: ")
	text.WriteString(timestamp.UTC().Format(time.RFC3339))

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

func (c *Client) jobItemLink(id int64) string {
	if c.linkPrefix == "" || id == 0 {
		return ""
	}
	raw := strconv.FormatInt(id, 10)
	return fmt.Sprintf("<%s/%s|%s>", c.linkPrefix, raw, raw)
}

func statusText(code int) string {
	if code == 0 {
		return ""
	}
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}

func escapeSlackText(value string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(value)
}

func appendField(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• ")
	text.WriteString(label)
	text.WriteString(": ")
	text.WriteString(value)
	text.WriteByte('\n')
}

func appendMetadata(text *strings.Builder, metadata map[string]string) {
	if len(metadata) == 0 {
		return
	}
	text.WriteString("• Metadata:\n")
	for _, k := range slices.Sorted(maps.Keys(metadata)) {
		text.WriteString("    • ")
		text.WriteString(k)
		text.WriteString(": ")
		text.WriteString(metadata[k])
		text.WriteByte('\n')
	}
}
