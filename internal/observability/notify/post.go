package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody bounds how much of an error response is kept in the returned error.
const maxErrorBody = 4 << 10

// Poster sends JSON bodies to a webhook-style endpoint with linear backoff between attempts.
type Poster struct {
	Client     *http.Client
	URL        string
	RetryLimit int
	// Label names the destination in errors, e.g. "slack webhook".
	Label string
}

// Post delivers body, retrying up to RetryLimit times. It stops early when ctx ends.
func (p Poster) Post(ctx context.Context, body []byte) error {
	attempts := max(p.RetryLimit, 0) + 1
	var lastErr error
	for attempt := range attempts {
		lastErr = p.once(ctx, body)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		delay := time.Duration(attempt+1) * 200 * time.Millisecond
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (p Poster) once(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", p.Label, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", p.Label, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return p.errorResponse(resp)
	}
	return p.drain(resp)
}

func (p Poster) drain(resp *http.Response) error {
	_, copyErr := io.Copy(io.Discard, resp.Body)
	closeErr := resp.Body.Close()
	switch {
	case copyErr != nil && closeErr != nil:
		return errors.Join(
			fmt.Errorf("drain %s response body: %w", p.Label, copyErr),
			fmt.Errorf("close response body: %w", closeErr),
		)
	case copyErr != nil:
		return fmt.Errorf("drain %s response body: %w", p.Label, copyErr)
	case closeErr != nil:
		return fmt.Errorf("close response body: %w", closeErr)
	}
	return nil
}

func (p Poster) errorResponse(resp *http.Response) error {
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	closeErr := resp.Body.Close()
	if readErr != nil {
		if closeErr != nil {
			return errors.Join(
				fmt.Errorf("read %s error response: %w", p.Label, readErr),
				fmt.Errorf("close response body: %w", closeErr),
			)
		}
		return fmt.Errorf("read %s error response: %w", p.Label, readErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close response body: %w", closeErr)
	}
	return fmt.Errorf("%s %s: %s", p.Label, resp.Status, strings.TrimSpace(string(respBody)))
}

// Fallback returns fallback when value is blank.
func Fallback(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
