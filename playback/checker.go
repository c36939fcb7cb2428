// Package playback checks that an HLS asset is reachable through a signed
// lease: the manifest and its first referenced playlist or segment must
// both answer 2xx.
package playback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/grafov/m3u8"
	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/signedurl"
	"github.com/rs/zerolog/log"
)

const maxManifestSize = 1 << 20

// Report is the outcome of one playback check.
type Report struct {
	ManifestURL    string
	ManifestStatus int
	// URIs are the manifest entries resolved to absolute, signed URLs.
	URIs        []string
	FirstStatus int
	Duration    time.Duration
}

type Checker struct {
	client *http.Client
}

func NewChecker(client *http.Client) *Checker {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Checker{client: client}
}

func (c *Checker) Check(ctx context.Context, lease *signedurl.Lease, videoPath string) (*Report, error) {
	if lease == nil || lease.BaseURL == "" {
		return nil, errors.Validation("Signed URL is not available. Please wait for it to load.", "")
	}
	videoPath = strings.TrimSpace(videoPath)
	if videoPath == "" {
		return nil, errors.Validation("Video path is required", "")
	}

	start := time.Now()
	report := &Report{ManifestURL: lease.SignedURL(videoPath)}

	manifest, status, err := c.get(ctx, report.ManifestURL, maxManifestSize)
	report.ManifestStatus = status
	if err != nil {
		return report, err
	}

	base, err := url.Parse(report.ManifestURL)
	if err != nil {
		return report, errors.Validation("Invalid video path", err.Error())
	}
	entries, err := ParseManifest(manifest)
	if err != nil {
		return report, err
	}
	report.URIs = ResolveURIs(base, lease.QueryParams, entries)
	if len(report.URIs) == 0 {
		return report, errors.New(errors.CodeOperationFailed, "Manifest has no playable entries")
	}

	_, report.FirstStatus, err = c.get(ctx, report.URIs[0], 0)
	report.Duration = time.Since(start)
	if err != nil {
		return report, err
	}

	log.Ctx(ctx).Info().Str("video_path", videoPath).Int("entries", len(report.URIs)).
		Dur("duration", report.Duration).Msg("playback check passed")
	return report, nil
}

// get fetches rawURL, keeping at most limit bytes of the body.
func (c *Checker) get(ctx context.Context, rawURL string, limit int64) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, errors.Validation("Invalid video path", err.Error())
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, errors.Network("Failed to play video. Please check the URL and try again.", err.Error(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, resp.StatusCode, errors.Network("Failed to read playback response", err.Error(), err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, resp.StatusCode, errors.NotFound(fmt.Sprintf("Not found: %s", redactQuery(rawURL)), "")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, resp.StatusCode, errors.New(errors.CodeOperationFailed,
			fmt.Sprintf("Playback request failed with status %d", resp.StatusCode), errors.WithStatus(resp.StatusCode))
	}
	return body, resp.StatusCode, nil
}

// ParseManifest returns the variant URIs of a master playlist, or the segment
// URIs of a media playlist, in order.
func ParseManifest(manifest []byte) ([]string, error) {
	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(manifest), false)
	if err != nil {
		return nil, errors.New(errors.CodeOperationFailed, "Invalid manifest", errors.WithDetails(err.Error()), errors.WithCause(err))
	}

	var uris []string
	switch listType {
	case m3u8.MASTER:
		for _, variant := range playlist.(*m3u8.MasterPlaylist).Variants {
			if variant != nil && variant.URI != "" {
				uris = append(uris, variant.URI)
			}
		}
	case m3u8.MEDIA:
		// Segments is a ring buffer; unused slots are nil.
		for _, segment := range playlist.(*m3u8.MediaPlaylist).Segments {
			if segment != nil && segment.URI != "" {
				uris = append(uris, segment.URI)
			}
		}
	}
	return uris, nil
}

// ResolveURIs makes each entry absolute against base. Entries without a
// query string get the lease's query appended so they stay authorized.
func ResolveURIs(base *url.URL, queryParams string, entries []string) []string {
	resolved := make([]string, 0, len(entries))
	queryParams = strings.TrimPrefix(queryParams, "?")
	for _, entry := range entries {
		ref, err := url.Parse(entry)
		if err != nil {
			continue
		}
		u := base.ResolveReference(ref)
		if !strings.Contains(entry, "?") && queryParams != "" {
			u.RawQuery = queryParams
		}
		resolved = append(resolved, u.String())
	}
	return resolved
}

func redactQuery(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
