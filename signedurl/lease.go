package signedurl

import (
	"strings"
	"time"
)

// Lease is a time-boxed base URL and query string granting read access to
// media content.
type Lease struct {
	BaseURL     string
	QueryParams string
	ExpiresAt   time.Time
}

// SignedURL joins path onto the lease as baseUrl/path?queryParams.
func (l Lease) SignedURL(path string) string {
	u := strings.TrimSuffix(l.BaseURL, "/") + "/" + strings.TrimPrefix(strings.TrimSpace(path), "/")
	if l.QueryParams == "" {
		return u
	}
	return u + "?" + strings.TrimPrefix(l.QueryParams, "?")
}

// RenewalDelay is how long to wait before fetching a replacement lease. It
// is never negative; zero means renew now.
func RenewalDelay(lease Lease, now time.Time, buffer time.Duration) time.Duration {
	return max(lease.ExpiresAt.Sub(now)-buffer, 0)
}

type leaseResponse struct {
	BaseURL     string `json:"baseUrl"`
	QueryParams string `json:"queryParams"`
	// ExpiresAt is epoch milliseconds.
	ExpiresAt int64 `json:"expiresAt,omitempty"`
}

func (r leaseResponse) lease(now time.Time, defaultLifetime time.Duration) Lease {
	expiresAt := now.Add(defaultLifetime)
	if r.ExpiresAt > 0 {
		expiresAt = time.UnixMilli(r.ExpiresAt)
	}
	return Lease{BaseURL: r.BaseURL, QueryParams: r.QueryParams, ExpiresAt: expiresAt}
}
