// Package signedurl keeps a playback lease from the media platform fresh,
// renewing it shortly before it expires.
package signedurl

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	DefaultEndpoint        = "https://api.stream-io.cloud/presigned-play-url"
	DefaultRenewalBuffer   = time.Minute
	DefaultLeaseLifetime   = 10 * time.Minute
	minRenewalDelay        = 5 * time.Second
	maxErrorBody           = 64 << 10
	fetchFailedMessage     = "Failed to fetch signed URL"
	apiKeyRequiredMessage  = "API key is required"
	invalidResponseMessage = "Invalid signed URL response"
)

// AfterFunc runs f once d has elapsed and returns a function that cancels it.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func timeAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Manager owns one lease for one API key.
type Manager struct {
	endpoint        string
	httpClient      *http.Client
	buffer          time.Duration
	defaultLifetime time.Duration
	now             func() time.Time
	afterFunc       AfterFunc
	metrics         metrics.Recorder

	ctx    context.Context
	cancel context.CancelFunc

	// fetchMu is held for the whole of a fetch. Renewals skip when it is
	// taken; Activate cancels the holder and waits for it.
	fetchMu  sync.Mutex
	inFlight atomic.Bool

	mu          sync.Mutex
	apiKey      string
	lease       *Lease
	err         error
	gen         uint64
	stopTimer   func() bool
	fetchCancel context.CancelFunc
	closed      bool
}

type Option func(*Manager)

func WithEndpoint(endpoint string) Option {
	return func(m *Manager) { m.endpoint = endpoint }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(m *Manager) { m.httpClient = hc }
}

func WithRenewalBuffer(d time.Duration) Option {
	return func(m *Manager) { m.buffer = d }
}

func WithDefaultLifetime(d time.Duration) Option {
	return func(m *Manager) { m.defaultLifetime = d }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithAfterFunc replaces the renewal timer. Tests use it to fire renewals by hand.
func WithAfterFunc(fn AfterFunc) Option {
	return func(m *Manager) { m.afterFunc = fn }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(m *Manager) { m.metrics = r }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		endpoint:        DefaultEndpoint,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		buffer:          DefaultRenewalBuffer,
		defaultLifetime: DefaultLeaseLifetime,
		now:             time.Now,
		afterFunc:       timeAfterFunc,
		metrics:         metrics.Nop{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Activate drops any current lease and fetches one for apiKey. A fetch still
// in flight for the previous key is cancelled and its result discarded.
func (m *Manager) Activate(ctx context.Context, apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return errors.Validation(apiKeyRequiredMessage, "")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New(errors.CodeOperationFailed, "Lease manager is closed")
	}
	m.gen++
	gen := m.gen
	m.apiKey = apiKey
	m.lease = nil
	m.err = nil
	m.stopTimerLocked()
	m.cancelFetchLocked()
	m.mu.Unlock()

	return m.run(ctx, gen, true)
}

// Refresh fetches a replacement lease now. It is a no-op while another
// fetch is in flight.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	apiKey, gen, closed := m.apiKey, m.gen, m.closed
	m.mu.Unlock()

	if closed {
		return errors.New(errors.CodeOperationFailed, "Lease manager is closed")
	}
	if apiKey == "" {
		return errors.Validation(apiKeyRequiredMessage, "")
	}
	return m.run(ctx, gen, false)
}

// Current returns a copy of the lease, or nil before the first successful fetch.
func (m *Manager) Current() *Lease {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lease == nil {
		return nil
	}
	lease := *m.lease
	return &lease
}

// Err is the error from the most recent fetch, if it failed.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Manager) Loading() bool {
	return m.inFlight.Load()
}

// Close stops renewals. Fetches still in flight are discarded when they land.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.stopTimerLocked()
	m.cancelFetchLocked()
	m.cancel()
}

// run fetches until a lease with a positive renewal delay is held. A lease
// that is already inside the buffer is refetched once straight away; after
// that the timer is armed with minRenewalDelay so a misbehaving server
// cannot spin us. With wait set the fetch queues behind one in flight
// instead of being skipped.
func (m *Manager) run(ctx context.Context, gen uint64, wait bool) error {
	for immediate := 0; ; immediate++ {
		delay, err := m.fetch(ctx, gen, wait)
		if err != nil || delay < 0 {
			return err
		}
		if delay > 0 {
			m.schedule(gen, delay)
			return nil
		}
		if immediate > 0 {
			m.schedule(gen, minRenewalDelay)
			return nil
		}
		log.Ctx(ctx).Debug().Msg("signed URL lease expires within the renewal buffer, refetching")
	}
}

// fetch returns the renewal delay for the lease it stored, or -1 when nothing
// was stored.
func (m *Manager) fetch(ctx context.Context, gen uint64, wait bool) (time.Duration, error) {
	if wait {
		m.fetchMu.Lock()
	} else if !m.fetchMu.TryLock() {
		m.metrics.RecordLeaseFetch("skipped")
		return -1, nil
	}
	defer m.fetchMu.Unlock()

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		m.metrics.RecordLeaseFetch("discarded")
		return -1, nil
	}
	apiKey := m.apiKey
	fetchCtx, cancel := context.WithCancel(ctx)
	m.fetchCancel = cancel
	m.mu.Unlock()
	defer cancel()

	m.inFlight.Store(true)
	resp, err := m.request(fetchCtx, apiKey)
	m.inFlight.Store(false)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCancel = nil
	if m.closed || gen != m.gen {
		m.metrics.RecordLeaseFetch("discarded")
		return -1, nil
	}
	if err != nil {
		m.err = err
		m.metrics.RecordLeaseFetch("failure")
		log.Ctx(ctx).Err(err).Msg("Error fetching signed URL")
		return -1, err
	}

	now := m.now()
	lease := resp.lease(now, m.defaultLifetime)
	m.lease = &lease
	m.err = nil
	m.metrics.RecordLeaseFetch("success")
	return RenewalDelay(lease, now, m.buffer), nil
}

func (m *Manager) request(ctx context.Context, apiKey string) (*leaseResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, nil)
	if err != nil {
		return nil, errors.Unknown(fetchFailedMessage, err.Error(), err)
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, errors.Network(fetchFailedMessage, err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body)
		message := body.Error
		if message == "" {
			message = fetchFailedMessage
		}
		return nil, errors.New(errors.CodeForStatus(resp.StatusCode), message, errors.WithStatus(resp.StatusCode))
	}

	var out leaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Server(invalidResponseMessage, err.Error(), err)
	}
	if out.BaseURL == "" {
		return nil, errors.Server(invalidResponseMessage, "baseUrl is missing", nil)
	}
	return &out, nil
}

func (m *Manager) schedule(gen uint64, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || gen != m.gen {
		return
	}
	m.stopTimerLocked()
	m.stopTimer = m.afterFunc(delay, func() {
		_ = m.run(m.ctx, gen, false)
	})
}

func (m *Manager) cancelFetchLocked() {
	if m.fetchCancel != nil {
		m.fetchCancel()
		m.fetchCancel = nil
	}
}

func (m *Manager) stopTimerLocked() {
	if m.stopTimer != nil {
		m.stopTimer()
		m.stopTimer = nil
	}
}
