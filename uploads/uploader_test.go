package uploads_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/media-admin/httpclient"
	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/uploads"
	"github.com/stretchr/testify/require"
)

type platform struct {
	srv       *httptest.Server
	presigns  atomic.Int32
	uploaded  []byte
	putStatus int
	headers   http.Header
}

func newPlatform(t *testing.T) *platform {
	t.Helper()
	p := &platform{putStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /presigned-upload-url", func(w http.ResponseWriter, r *http.Request) {
		p.presigns.Add(1)
		if r.Header.Get("x-api-key") != "sk_key" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid API key"}`))
			return
		}
		var req struct {
			Key         string `json:"key"`
			ContentType string `json:"contentType"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"uploadUrl": p.srv.URL + "/bucket/" + req.Key,
			"key":       req.Key,
			"headers":   map[string]string{"x-upload-project": "sk_key"},
		})
	})
	mux.HandleFunc("PUT /bucket/", func(w http.ResponseWriter, r *http.Request) {
		p.headers = r.Header.Clone()
		p.uploaded, _ = io.ReadAll(r.Body)
		w.WriteHeader(p.putStatus)
	})
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *platform) uploader() *uploads.Uploader {
	client := httpclient.New(p.srv.URL, httpclient.WithMaxRetries(0))
	presigner := uploads.NewPlatformPresigner(client, p.srv.URL+"/presigned-upload-url")
	return uploads.NewUploader(presigner, p.srv.Client())
}

func TestUpload(t *testing.T) {
	p := newPlatform(t)
	body := bytes.Repeat([]byte("x"), 256<<10)

	var reported []int
	res, err := p.uploader().Upload(context.Background(), " sk_key ", "/videos/2026/", "clip.json",
		bytes.NewReader(body), int64(len(body)), func(percent int) { reported = append(reported, percent) })
	require.NoError(t, err)

	require.Equal(t, "videos/2026/clip.json", res.Key)
	require.Equal(t, body, p.uploaded)
	require.Equal(t, "application/json", p.headers.Get("Content-Type"))
	require.Equal(t, "sk_key", p.headers.Get("x-upload-project"))

	require.Equal(t, 0, reported[0])
	require.Equal(t, 100, reported[len(reported)-1])
	require.IsIncreasing(t, reported)
}

func TestUploadFile(t *testing.T) {
	p := newPlatform(t)
	path := filepath.Join(t.TempDir(), "sample.bin")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o600))

	res, err := p.uploader().UploadFile(context.Background(), "sk_key", "", path, nil)
	require.NoError(t, err)
	require.Equal(t, "sample.bin", res.Key)
	require.EqualValues(t, 7, res.Size)
	require.Equal(t, "application/octet-stream", p.headers.Get("Content-Type"))
}

func TestUploadValidation(t *testing.T) {
	p := newPlatform(t)

	_, err := p.uploader().Upload(context.Background(), "sk_key", "", "empty.bin", bytes.NewReader(nil), 0, nil)
	require.EqualError(t, err, "File cannot be empty")

	_, err = p.uploader().Upload(context.Background(), "", "", "a.bin", bytes.NewReader([]byte("a")), 1, nil)
	require.EqualError(t, err, "API key is required")
	require.Equal(t, errors.CodeValidationError, errors.CodeOf(err))

	require.Zero(t, p.presigns.Load())
}

func TestUploadFailures(t *testing.T) {
	t.Run("rejected api key", func(t *testing.T) {
		p := newPlatform(t)
		_, err := p.uploader().Upload(context.Background(), "sk_other", "", "a.bin", bytes.NewReader([]byte("a")), 1, nil)
		require.EqualError(t, err, "Invalid API key")
		require.Equal(t, errors.CodeUnauthorized, errors.CodeOf(err))
		require.Nil(t, p.uploaded)
	})

	t.Run("storage refuses the PUT", func(t *testing.T) {
		p := newPlatform(t)
		p.putStatus = http.StatusForbidden
		_, err := p.uploader().Upload(context.Background(), "sk_key", "", "a.bin", bytes.NewReader([]byte("a")), 1, nil)
		require.EqualError(t, err, "Upload failed with status 403")
		require.Equal(t, errors.CodeOperationFailed, errors.CodeOf(err))
	})
}

func TestObjectKey(t *testing.T) {
	require.Equal(t, "a.mp4", uploads.ObjectKey("", "a.mp4"))
	require.Equal(t, "in/a.mp4", uploads.ObjectKey("in/", "a.mp4"))
	require.Equal(t, "in/x/a.mp4", uploads.ObjectKey(" /in/x/ ", "a.mp4"))
	require.Equal(t, "clips-a.mp4", uploads.ObjectKey("clips-", "a.mp4"))
}

func TestGCSPresignerWithKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	p := uploads.NewGCSPresignerWithKey("media-bucket", "uploader@example.iam.gserviceaccount.com", pemKey)
	presigned, err := p.Presign(context.Background(), "sk_key", "videos/clip.json", "application/json")
	require.NoError(t, err)

	require.Contains(t, presigned.UploadURL, "/media-bucket/videos/clip.json")
	require.Contains(t, presigned.UploadURL, "X-Goog-Algorithm=GOOG4-RSA-SHA256")
	require.Equal(t, "application/json", presigned.Headers["Content-Type"])

	_, err = p.Presign(context.Background(), "", "videos/clip.json", "application/json")
	require.Equal(t, errors.CodeValidationError, errors.CodeOf(err))
}
