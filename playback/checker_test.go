package playback_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/playback"
	"github.com/jrsteele09/media-admin/signedurl"
	"github.com/stretchr/testify/require"
)

const master = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360
360p/index.m3u8

#EXT-X-STREAM-INF:BANDWIDTH=1400000,RESOLUTION=842x480
https://other.example.com/480p/index.m3u8?token=own
`

const media = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:4
#EXTINF:4.0,
seg0.ts
#EXTINF:4.0,
seg1.ts
#EXT-X-ENDLIST
`

func TestParseManifest(t *testing.T) {
	t.Run("master playlist yields variants", func(t *testing.T) {
		uris, err := playback.ParseManifest([]byte(master))
		require.NoError(t, err)
		require.Equal(t, []string{"360p/index.m3u8", "https://other.example.com/480p/index.m3u8?token=own"}, uris)
	})

	t.Run("media playlist yields segments", func(t *testing.T) {
		uris, err := playback.ParseManifest([]byte(media))
		require.NoError(t, err)
		require.Equal(t, []string{"seg0.ts", "seg1.ts"}, uris)
	})

	t.Run("lines longer than 64KiB do not end parsing", func(t *testing.T) {
		long := "seg0.ts?token=" + strings.Repeat("a", 70<<10)
		manifest := "#EXTM3U\n#EXT-X-TARGETDURATION:4\n#EXTINF:4.0,\n" + long + "\n#EXTINF:4.0,\nseg1.ts\n#EXT-X-ENDLIST\n"
		uris, err := playback.ParseManifest([]byte(manifest))
		require.NoError(t, err)
		require.Equal(t, []string{long, "seg1.ts"}, uris)
	})

	t.Run("unrecognised content is an error", func(t *testing.T) {
		_, err := playback.ParseManifest([]byte("#EXTM3U\n"))
		require.Equal(t, errors.CodeOperationFailed, errors.CodeOf(err))
	})
}

func TestResolveURIs(t *testing.T) {
	base, err := url.Parse("https://cdn.example.com/media/p1/master.m3u8?sig=abc")
	require.NoError(t, err)

	got := playback.ResolveURIs(base, "sig=abc", []string{"360p/index.m3u8", "/abs/seg.ts", "seg.ts?own=1"})
	require.Equal(t, []string{
		"https://cdn.example.com/media/p1/360p/index.m3u8?sig=abc",
		"https://cdn.example.com/abs/seg.ts?sig=abc",
		"https://cdn.example.com/media/p1/seg.ts?own=1",
	}, got)
}

func TestCheck(t *testing.T) {
	var segmentQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /media/p1/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "sig=abc", r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		_, _ = w.Write([]byte(master))
	})
	mux.HandleFunc("GET /media/p1/360p/index.m3u8", func(w http.ResponseWriter, r *http.Request) {
		segmentQuery = r.URL.RawQuery
		_, _ = w.Write([]byte("#EXTM3U\nseg0.ts\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	lease := &signedurl.Lease{BaseURL: srv.URL + "/media", QueryParams: "sig=abc"}
	report, err := playback.NewChecker(srv.Client()).Check(context.Background(), lease, "p1/master.m3u8")
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, report.ManifestStatus)
	require.Equal(t, http.StatusOK, report.FirstStatus)
	require.Len(t, report.URIs, 2)
	require.Equal(t, "sig=abc", segmentQuery)
}

func TestCheckFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/denied.m3u8":
			w.WriteHeader(http.StatusForbidden)
		case "/empty.m3u8":
			_, _ = w.Write([]byte("#EXTM3U\n"))
		case "/broken.m3u8":
			_, _ = w.Write([]byte("#EXTM3U\n#EXTINF:4.0,\nmissing.ts\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	checker := playback.NewChecker(srv.Client())
	lease := &signedurl.Lease{BaseURL: srv.URL, QueryParams: "sig=abc"}
	ctx := context.Background()

	cases := []struct {
		path string
		code errors.Code
	}{
		{"missing.m3u8", errors.CodeNotFound},
		{"denied.m3u8", errors.CodeOperationFailed},
		{"empty.m3u8", errors.CodeOperationFailed},
		{"broken.m3u8", errors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			_, err := checker.Check(ctx, lease, tc.path)
			require.Equal(t, tc.code, errors.CodeOf(err))
			require.NotContains(t, err.Error(), "sig=abc")
		})
	}

	t.Run("lease and path are required", func(t *testing.T) {
		_, err := checker.Check(ctx, nil, "a.m3u8")
		require.Equal(t, errors.CodeValidationError, errors.CodeOf(err))
		_, err = checker.Check(ctx, lease, "  ")
		require.EqualError(t, err, "Video path is required")
	})
}
