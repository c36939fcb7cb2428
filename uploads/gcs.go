package uploads

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/jrsteele09/media-admin/internal/errors"
	"google.golang.org/api/option"
)

const gcsURLExpiry = 15 * time.Minute

type signFunc func(bucket, object string, opts *storage.SignedURLOptions) (string, error)

// GCSPresigner signs V4 PUT URLs for a Cloud Storage bucket directly, for
// deployments where the platform ingests from GCS.
type GCSPresigner struct {
	bucket string
	sign   signFunc
	now    func() time.Time
}

var _ Presigner = (*GCSPresigner)(nil)

// NewGCSPresigner signs with the service account in credentialsFile, or the
// ambient credentials when it is empty. The returned func closes the client.
func NewGCSPresigner(ctx context.Context, bucket, credentialsFile string) (*GCSPresigner, func() error, error) {
	if bucket == "" {
		return nil, nil, errors.Validation("GCS_BUCKET environment variable is not set", "")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("service account key not found at path: %s", credentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	p := &GCSPresigner{
		bucket: bucket,
		sign: func(bucket, object string, opts *storage.SignedURLOptions) (string, error) {
			return client.Bucket(bucket).SignedURL(object, opts)
		},
		now: time.Now,
	}
	return p, client.Close, nil
}

// NewGCSPresignerWithKey signs locally with a PEM private key.
func NewGCSPresignerWithKey(bucket, accessID string, privateKey []byte) *GCSPresigner {
	return &GCSPresigner{
		bucket: bucket,
		sign: func(bucket, object string, opts *storage.SignedURLOptions) (string, error) {
			opts.GoogleAccessID = accessID
			opts.PrivateKey = privateKey
			return storage.SignedURL(bucket, object, opts)
		},
		now: time.Now,
	}
}

// Presign requires an API key for parity with the platform path but does not
// send it anywhere.
func (p *GCSPresigner) Presign(_ context.Context, apiKey, key, contentType string) (*Presigned, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.Validation("API key is required", "")
	}

	signed, err := p.sign(p.bucket, key, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      "PUT",
		ContentType: contentType,
		Expires:     p.now().Add(gcsURLExpiry),
	})
	if err != nil {
		return nil, errors.Server("Failed to sign upload URL", err.Error(), err)
	}
	return &Presigned{
		UploadURL: signed,
		Key:       key,
		Headers:   map[string]string{"Content-Type": contentType},
	}, nil
}
