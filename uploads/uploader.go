package uploads

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/rs/zerolog/log"
)

const defaultContentType = "application/octet-stream"

// Progress receives whole percentages from 0 to 100, each at most once.
type Progress func(percent int)

type Result struct {
	Key  string
	Size int64
}

type Uploader struct {
	presigner  Presigner
	httpClient *http.Client
}

func NewUploader(presigner Presigner, httpClient *http.Client) *Uploader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Minute}
	}
	return &Uploader{presigner: presigner, httpClient: httpClient}
}

// ObjectKey prepends the optional path prefix to the file name as typed. The
// prefix carries its own trailing slash when it names a folder; a leading
// slash is dropped.
func ObjectKey(pathPrefix, name string) string {
	return strings.TrimLeft(strings.TrimSpace(pathPrefix), "/") + name
}

// UploadFile opens path and uploads it under pathPrefix.
func (u *Uploader) UploadFile(ctx context.Context, apiKey, pathPrefix, path string, progress Progress) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Validation("Please select a file", err.Error())
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Validation("Please select a file", err.Error())
	}
	return u.Upload(ctx, apiKey, pathPrefix, filepath.Base(path), f, info.Size(), progress)
}

func (u *Uploader) Upload(ctx context.Context, apiKey, pathPrefix, name string, body io.Reader, size int64, progress Progress) (*Result, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.Validation("API key is required", "")
	}
	if size <= 0 {
		return nil, errors.Validation("File cannot be empty", "")
	}
	if progress == nil {
		progress = func(int) {}
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = defaultContentType
	}

	presigned, err := u.presigner.Presign(ctx, strings.TrimSpace(apiKey), ObjectKey(pathPrefix, name), contentType)
	if err != nil {
		return nil, err
	}

	reader := &progressReader{r: body, total: size, report: progress, last: -1}
	reader.emit(0)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presigned.UploadURL, reader)
	if err != nil {
		return nil, errors.New(errors.CodeOperationFailed, "Upload failed", errors.WithDetails(err.Error()), errors.WithCause(err))
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)
	for k, v := range presigned.Headers {
		req.Header.Set(k, v)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, errors.Network("Upload failed", err.Error(), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New(errors.CodeOperationFailed, fmt.Sprintf("Upload failed with status %d", resp.StatusCode),
			errors.WithStatus(resp.StatusCode))
	}

	reader.emit(100)
	log.Ctx(ctx).Info().Str("key", presigned.Key).Int64("size", size).Msg("upload complete")
	return &Result{Key: presigned.Key, Size: size}, nil
}

type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report Progress
	mu     sync.Mutex
	last   int
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.read += int64(n)
		percent := int(min(p.read*100/p.total, 99))
		p.mu.Unlock()
		p.emit(percent)
	}
	return n, err
}

func (p *progressReader) emit(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if percent <= p.last {
		return
	}
	p.last = percent
	p.report(percent)
}
