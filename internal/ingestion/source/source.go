// Package source resolves a material's source reference to raw bytes.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/yungbote/draftbridge-backend/internal/platform/gcp"
	"github.com/yungbote/draftbridge-backend/internal/platform/httpx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

var (
	ErrUnsupportedRef = errors.New("unsupported source reference")
	ErrNotFound       = errors.New("source not found")
)

// Blob is one downloaded file.
type Blob struct {
	Data     []byte
	Name     string
	MimeType string
}

type FileSource interface {
	Fetch(ctx context.Context, ref string) (*Blob, error)
}

// FileSourceFunc adapts a function to FileSource.
type FileSourceFunc func(ctx context.Context, ref string) (*Blob, error)

func (f FileSourceFunc) Fetch(ctx context.Context, ref string) (*Blob, error) { return f(ctx, ref) }

// Scheme returns the routing key of a ref: "drive", "gs", "http" or "https".
func Scheme(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.Index(ref, ":"); i > 0 {
		return strings.ToLower(ref[:i])
	}
	return ""
}

// Router dispatches by scheme. Missing schemes are unsupported.
type Router struct {
	log     *logger.Logger
	sources map[string]FileSource
}

func NewRouter(log *logger.Logger) *Router {
	return &Router{log: log.With("component", "SourceRouter"), sources: map[string]FileSource{}}
}

func (r *Router) Register(scheme string, src FileSource) *Router {
	if src != nil {
		r.sources[strings.ToLower(scheme)] = src
	}
	return r
}

func (r *Router) Fetch(ctx context.Context, ref string) (*Blob, error) {
	scheme := Scheme(ref)
	src, ok := r.sources[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedRef, ref)
	}
	start := time.Now()
	blob, err := src.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	r.log.Debug("source fetched", "scheme", scheme, "bytes", len(blob.Data), "took_ms", time.Since(start).Milliseconds())
	return blob, nil
}

// ---- Drive ----

func Drive(d *gcp.Drive) FileSource {
	return FileSourceFunc(func(ctx context.Context, ref string) (*Blob, error) {
		id := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ref), "drive:"))
		if id == "" {
			return nil, fmt.Errorf("%w: empty drive file id", ErrUnsupportedRef)
		}
		f, err := d.Download(ctx, id)
		if errors.Is(err, gcp.ErrDriveFileNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		if err != nil {
			return nil, err
		}
		return &Blob{Data: f.Data, Name: f.Name, MimeType: f.MimeType}, nil
	})
}

// ---- GCS ----

func GCS(b *gcp.Bucket) FileSource {
	return FileSourceFunc(func(ctx context.Context, ref string) (*Blob, error) {
		bucket, key, ok := gcp.ParseGSURI(ref)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedRef, ref)
		}
		data, ct, err := b.ReadObject(ctx, bucket, key)
		if errors.Is(err, gcp.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		if err != nil {
			return nil, err
		}
		return &Blob{Data: data, Name: path.Base(key), MimeType: ct}, nil
	})
}

// ---- HTTP ----

type HTTPConfig struct {
	Timeout  time.Duration
	MaxBytes int64
}

type HTTPSource struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTP(cfg HTTPConfig) *HTTPSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 100 << 20
	}
	return &HTTPSource{client: &http.Client{Timeout: cfg.Timeout}, maxBytes: cfg.MaxBytes}
}

func (s *HTTPSource) Fetch(ctx context.Context, ref string) (*Blob, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedRef, ref)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, u.Redacted())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &httpx.StatusError{Service: "material download", StatusCode: resp.StatusCode, Body: string(body)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u.Redacted(), err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("download %s exceeds %d bytes", u.Redacted(), s.maxBytes)
	}

	ct := resp.Header.Get("Content-Type")
	return &Blob{Data: data, Name: nameFromResponse(resp, u), MimeType: ct}, nil
}

func nameFromResponse(resp *http.Response, u *url.URL) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}
