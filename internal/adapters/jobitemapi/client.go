// Package jobitemapi reads job item records from the remote job listing API.
package jobitemapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/target/mmk-jobitems/internal/core"
	"github.com/target/mmk-jobitems/internal/domain/model"
	apperrors "github.com/target/mmk-jobitems/internal/errors"
)

// DefaultBaseURL is the public job listing API.
const DefaultBaseURL = "https://bytegrad.com/course-assets/projects/rmtdev/api/data"

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 1 << 20

// ErrResponseTooLarge is returned when a response body exceeds maxBodyBytes.
var ErrResponseTooLarge = errors.New("job item response too large")

// Config captures the HTTP behaviour of the fetcher.
type Config struct {
	BaseURL string
	// Timeout bounds one request. Zero leaves the request bounded only by its context.
	Timeout time.Duration
	Client  *http.Client
}

// Client performs single, uncached reads of job items. It never retries.
type Client struct {
	baseURL string
	client  *http.Client
}

var _ core.JobItemFetcher = (*Client)(nil)

// NewClient builds a fetcher. The base URL must be absolute.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse job item api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("job item api base url must be absolute: %q", base)
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: max(cfg.Timeout, 0)}
	}

	return &Client{baseURL: base, client: hc}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// errorBody is the payload the API returns on non-2xx responses.
type errorBody struct {
	Description string `json:"description"`
}

// FetchJobItem issues GET {base}/{id} and decodes the envelope.
// Non-2xx responses fail with *apperrors.RemoteError; undecodable bodies fail with an error
// wrapping apperrors.ErrMalformedResponse.
func (c *Client) FetchJobItem(ctx context.Context, id model.JobItemID) (*model.JobItemEnvelope, error) {
	endpoint := c.baseURL + "/" + id.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create job item request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("job item request failed: %w", err)
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeErrorResponse(resp.StatusCode, body)
	}

	var env model.JobItemEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperrors.Malformed(err, fmt.Sprintf("decode job item %s", id))
	}
	return &env, nil
}

func decodeErrorResponse(status int, body []byte) error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return apperrors.Malformed(err, fmt.Sprintf("decode job item api error response (%d)", status))
	}
	return &apperrors.RemoteError{StatusCode: status, Description: eb.Description}
}

func readBody(resp *http.Response) ([]byte, error) {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	closeErr := resp.Body.Close()
	if readErr != nil {
		if closeErr != nil {
			return nil, errors.Join(
				fmt.Errorf("read job item response: %w", readErr),
				fmt.Errorf("close response body: %w", closeErr),
			)
		}
		return nil, fmt.Errorf("read job item response: %w", readErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close response body: %w", closeErr)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: status %d, more than %d bytes", ErrResponseTooLarge, resp.StatusCode, maxBodyBytes)
	}
	return body, nil
}
