// Package metrics collects Prometheus metrics for the API server and the panel client.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the rest of the code base depends on. Components accept a
// Recorder and default to Nop.
type Recorder interface {
	RecordRequest(route, method string, status int, duration time.Duration)
	RecordRetry(method string)
	RecordSessionRefresh(outcome string)
	RecordLeaseFetch(outcome string)
	RecordWebhookTest(status int)
	RecordRateLimited()
}

// Collector is the Prometheus backed Recorder.
type Collector struct {
	requests        *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	retries         *prometheus.CounterVec
	sessionRefresh  *prometheus.CounterVec
	leaseFetch      *prometheus.CounterVec
	webhookTests    *prometheus.CounterVec
	rateLimitedHits prometheus.Counter
}

var _ Recorder = (*Collector)(nil)

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_admin_http_requests_total",
			Help: "HTTP requests served by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "media_admin_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_admin_client_retries_total",
			Help: "Retried outbound API calls.",
		}, []string{"method"}),
		sessionRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_admin_session_refresh_total",
			Help: "Session refresh attempts by outcome.",
		}, []string{"outcome"}),
		leaseFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_admin_signed_url_fetch_total",
			Help: "Signed URL lease fetches by outcome.",
		}, []string{"outcome"}),
		webhookTests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_admin_webhook_tests_total",
			Help: "Webhook tests by upstream status code.",
		}, []string{"status_code"}),
		rateLimitedHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "media_admin_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestLatency,
		c.retries,
		c.sessionRefresh,
		c.leaseFetch,
		c.webhookTests,
		c.rateLimitedHits,
	)
	return c
}

func (c *Collector) RecordRequest(route, method string, status int, duration time.Duration) {
	c.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.requestLatency.WithLabelValues(route, method).Observe(duration.Seconds())
}

func (c *Collector) RecordRetry(method string) {
	c.retries.WithLabelValues(method).Inc()
}

func (c *Collector) RecordSessionRefresh(outcome string) {
	c.sessionRefresh.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordLeaseFetch(outcome string) {
	c.leaseFetch.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordWebhookTest(status int) {
	c.webhookTests.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (c *Collector) RecordRateLimited() {
	c.rateLimitedHits.Inc()
}

// Handler serves the Prometheus exposition format for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) RecordRequest(string, string, int, time.Duration) {}
func (Nop) RecordRetry(string)                               {}
func (Nop) RecordSessionRefresh(string)                      {}
func (Nop) RecordLeaseFetch(string)                          {}
func (Nop) RecordWebhookTest(int)                            {}
func (Nop) RecordRateLimited()                               {}
