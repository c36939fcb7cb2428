// Package webhook calls a project's webhook on behalf of the admin so it can
// check the receiver is reachable.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout  = 10 * time.Second
	maxResponseSize = 64 << 10
)

var allowedSchemes = []string{"http", "https"}

// Result is what the receiver answered. Status is 0 when no response arrived.
type Result struct {
	Status   int    `json:"status"`
	Response any    `json:"response"`
	Error    string `json:"error,omitempty"`
}

type Tester struct {
	client  *http.Client
	metrics metrics.Recorder
}

type Option func(*Tester)

func WithMetrics(m metrics.Recorder) Option {
	return func(t *Tester) { t.metrics = m }
}

// NewTester returns a Tester whose client refuses private, loopback,
// link-local and metadata addresses, checked after DNS resolution.
func NewTester(timeout time.Duration, opts ...Option) *Tester {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()
	return NewTesterWithClient(safeurl.Client(config).Client, opts...)
}

// NewTesterWithClient uses client as-is, with no address filtering.
func NewTesterWithClient(client *http.Client, opts ...Option) *Tester {
	t := &Tester{client: client, metrics: metrics.Nop{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return errors.Validation("Invalid request", "webhookUrl must be a valid URL")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return errors.Validation("Invalid request", "webhookUrl must use http or https")
	}
	return nil
}

// Test POSTs an empty JSON object to webhookURL. Failures to reach the
// receiver are reported in the Result, not as an error.
func (t *Tester) Test(ctx context.Context, webhookURL string) (Result, error) {
	webhookURL = strings.TrimSpace(webhookURL)
	if err := ValidateURL(webhookURL); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader([]byte("{}")))
	if err != nil {
		return Result{}, errors.Validation("Invalid request", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("webhook_url", webhookURL).Msg("webhook test request failed")
		t.metrics.RecordWebhookTest(0)
		return Result{Status: 0, Error: err.Error()}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	result := Result{Status: resp.StatusCode, Response: decodeBody(body)}
	if err != nil {
		result.Error = err.Error()
	} else if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Error = resp.Status
	}

	log.Ctx(ctx).Info().Str("webhook_url", webhookURL).Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).Msg("webhook tested")
	t.metrics.RecordWebhookTest(resp.StatusCode)
	return result, nil
}

// decodeBody returns the parsed JSON body, or the raw text when it is not JSON.
func decodeBody(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err == nil {
		return v
	}
	return string(body)
}
