package httpclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/media-admin/httpclient"
	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/stretchr/testify/require"
)

type delayRecorder struct {
	delays []time.Duration
}

func (d *delayRecorder) sleep(_ context.Context, delay time.Duration) error {
	d.delays = append(d.delays, delay)
	return nil
}

func newClient(t *testing.T, h http.HandlerFunc) (*httpclient.Client, *delayRecorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	rec := &delayRecorder{}
	return httpclient.New(srv.URL, httpclient.WithSleep(rec.sleep)), rec
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestRetriesWithExponentialBackoff(t *testing.T) {
	var calls atomic.Int32
	c, rec := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			writeJSON(w, http.StatusInternalServerError, `{"error":"busy"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"ok":true}`)
	})

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/api/projects", nil, &out))
	require.True(t, out.OK)
	require.EqualValues(t, 3, calls.Load())
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestRetriesAreExhausted(t *testing.T) {
	var calls atomic.Int32
	c, rec := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusTooManyRequests, `{"error":"slow down"}`)
	})

	err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Equal(t, errors.CodeRateLimitExceeded, errors.CodeOf(err))
	require.EqualValues(t, 4, calls.Load())
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.delays)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, rec := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadRequest, `{"error":"project_name is required","details":"field"}`)
	})

	err := c.Do(context.Background(), http.MethodPost, "/api/projects", map[string]string{}, nil)
	appErr := errors.Normalize(err)
	require.Equal(t, errors.CodeValidationError, appErr.Code)
	require.Equal(t, "project_name is required", appErr.Message)
	require.Equal(t, "field", appErr.Details)
	require.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	require.EqualValues(t, 1, calls.Load())
	require.Empty(t, rec.delays)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		code   errors.Code
	}{
		{http.StatusUnauthorized, errors.CodeUnauthorized},
		{http.StatusNotFound, errors.CodeNotFound},
		{http.StatusConflict, errors.CodeConflict},
		{http.StatusUnprocessableEntity, errors.CodeValidationError},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, `{"error":"x"}`)
			})
			err := c.Do(context.Background(), http.MethodGet, "/", nil, nil)
			appErr := errors.Normalize(err)
			require.Equal(t, tc.code, appErr.Code)
			require.Equal(t, "x", appErr.Message)
		})
	}
}

func TestErrorWithoutMessageUsesStatusLine(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{}`)
	})
	err := c.Do(context.Background(), http.MethodGet, "/", nil, nil)
	require.EqualError(t, err, "HTTP 404: Not Found")
}

func TestNonJSONResponses(t *testing.T) {
	t.Run("ok yields an empty result", func(t *testing.T) {
		c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("fine"))
		})
		out := map[string]any{}
		require.NoError(t, c.Do(context.Background(), http.MethodGet, "/", nil, &out))
		require.Empty(t, out)
	})

	t.Run("failure is a server error", func(t *testing.T) {
		c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusForbidden)
		})
		err := c.Do(context.Background(), http.MethodGet, "/", nil, nil)
		appErr := errors.Normalize(err)
		require.Equal(t, errors.CodeServerError, appErr.Code)
		require.Equal(t, "HTTP 403: Forbidden", appErr.Message)
		require.Equal(t, http.StatusForbidden, appErr.StatusCode)
	})
}

func TestTransportFailureIsRetriedThenNormalized(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	rec := &delayRecorder{}
	c := httpclient.New(url, httpclient.WithSleep(rec.sleep))
	err := c.Do(context.Background(), http.MethodGet, "/", nil, nil)
	require.Equal(t, errors.CodeNetworkError, errors.CodeOf(err))
	require.Len(t, rec.delays, 3)
}

func TestCancelledContextStopsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	c := httpclient.New(srv.URL, httpclient.WithRetryDelay(time.Hour))
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	err := c.Do(ctx, http.MethodGet, "/", nil, nil)
	require.Error(t, err)
}

func TestAuthenticatedCalls(t *testing.T) {
	t.Run("missing token fails without a network call", func(t *testing.T) {
		var calls atomic.Int32
		c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		})
		err := c.Get(context.Background(), "/api/projects", "", nil)
		appErr := errors.Normalize(err)
		require.Equal(t, errors.CodeUnauthorized, appErr.Code)
		require.Equal(t, "Authentication token is required", appErr.Message)
		require.Zero(t, calls.Load())
	})

	t.Run("bearer header and content type are sent", func(t *testing.T) {
		c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.Equal(t, http.MethodDelete, r.Method)
			writeJSON(w, http.StatusOK, `{"success":true}`)
		})
		var out struct {
			Success bool `json:"success"`
		}
		require.NoError(t, c.Delete(context.Background(), "/api/projects/sk_1", "tok", &out))
		require.True(t, out.Success)
	})

	t.Run("unauthenticated post has no bearer", func(t *testing.T) {
		c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, `{}`)
		})
		require.NoError(t, c.PostUnauthenticated(context.Background(), "/api/webhook-test", map[string]string{"webhookUrl": "https://x"}, nil))
	})
}
