// Package uploads exercises the media platform's ingest path: obtain a
// presigned PUT URL, then stream a file to it.
package uploads

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/media-admin/httpclient"
	"github.com/jrsteele09/media-admin/internal/errors"
)

const DefaultPresignEndpoint = "https://api.stream-io.cloud/presigned-upload-url"

// Presigned is a one-shot upload target.
type Presigned struct {
	UploadURL string            `json:"uploadUrl"`
	Key       string            `json:"key"`
	Headers   map[string]string `json:"headers,omitempty"`
}

type Presigner interface {
	Presign(ctx context.Context, apiKey, key, contentType string) (*Presigned, error)
}

// PlatformPresigner asks the media platform for the upload URL. The API key
// scopes the object to its project.
type PlatformPresigner struct {
	client   *httpclient.Client
	endpoint string
}

var _ Presigner = (*PlatformPresigner)(nil)

func NewPlatformPresigner(client *httpclient.Client, endpoint string) *PlatformPresigner {
	if endpoint == "" {
		endpoint = DefaultPresignEndpoint
	}
	return &PlatformPresigner{client: client, endpoint: endpoint}
}

type presignRequest struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
}

func (p *PlatformPresigner) Presign(ctx context.Context, apiKey, key, contentType string) (*Presigned, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.Validation("API key is required", "")
	}

	var out Presigned
	err := p.client.Send(ctx, httpclient.Request{
		Method:   http.MethodPost,
		Endpoint: p.endpoint,
		Body:     presignRequest{Key: key, ContentType: contentType},
		Headers:  http.Header{"X-Api-Key": {apiKey}},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.UploadURL == "" {
		return nil, errors.Server("Invalid presign response", "uploadUrl is missing", nil)
	}
	if out.Key == "" {
		out.Key = key
	}
	return &out, nil
}
