// Package httpclient is the JSON API client used by the panel. It retries
// transport failures and retryable statuses with exponential backoff and maps
// error responses onto the application error taxonomy.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON   = "application/json"
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client talks to the admin API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	sleep      SleepFunc
	metrics    metrics.Recorder
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithSleep replaces the backoff wait. Tests use it to record delays.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(c *Client) { c.metrics = m }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		sleep:      contextSleep,
		metrics:    metrics.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes a single API call.
type Request struct {
	Method   string
	Endpoint string
	Body     any
	Headers  http.Header
}

type apiError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Code    string `json:"code"`
}

// Do sends method to endpoint with a JSON body and decodes a JSON response
// into out. out may be nil.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any) error {
	return c.Send(ctx, Request{Method: method, Endpoint: endpoint, Body: body}, out)
}

// Send is Do with control over the request headers.
func (c *Client) Send(ctx context.Context, req Request, out any) error {
	var payload []byte
	if req.Body != nil {
		var err error
		if payload, err = json.Marshal(req.Body); err != nil {
			return errors.New(errors.CodeInvalidInput, "Failed to encode request body", errors.WithCause(err))
		}
	}

	resp, err := c.sendWithRetry(ctx, req, payload)
	if err != nil {
		return errors.Normalize(err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func (c *Client) sendWithRetry(ctx context.Context, req Request, payload []byte) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.send(ctx, req, payload)
		if err == nil && !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt >= c.maxRetries || ctx.Err() != nil {
			return resp, err
		}
		if resp != nil {
			drain(resp)
		}

		delay := c.retryDelay * time.Duration(1<<attempt)
		event := log.Ctx(ctx).Warn().Str("method", req.Method).Str("endpoint", req.Endpoint).
			Int("attempt", attempt+1).Dur("delay", delay)
		if err != nil {
			event = event.Err(err)
		} else {
			event = event.Int("status", resp.StatusCode)
		}
		event.Msg("retrying request")
		c.metrics.RecordRetry(req.Method)

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) send(ctx context.Context, req Request, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req.Endpoint), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	for k, v := range req.Headers {
		httpReq.Header[k] = v
	}
	return c.httpClient.Do(httpReq)
}

func (c *Client) url(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + endpoint
}

func decodeResponse(resp *http.Response, out any) error {
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	statusLine := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))

	if !strings.Contains(resp.Header.Get("Content-Type"), contentTypeJSON) {
		drain(resp)
		if !ok {
			return errors.New(errors.CodeServerError, statusLine, errors.WithStatus(resp.StatusCode))
		}
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Network("Failed to read response", "", err)
	}

	if !ok {
		var apiErr apiError
		_ = json.Unmarshal(data, &apiErr)
		message := apiErr.Error
		if message == "" {
			message = statusLine
		}
		return errors.New(errors.CodeForStatus(resp.StatusCode), message,
			errors.WithDetails(apiErr.Details), errors.WithStatus(resp.StatusCode))
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Server("Invalid response from server", err.Error(), err)
	}
	return nil
}

// isRetryableStatus covers 0 for symmetry with clients that report transport
// failures as a zero status.
func isRetryableStatus(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || (status >= 500 && status < 600)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
