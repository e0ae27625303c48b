package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/draftbridge-backend/internal/platform/envutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

var ErrObjectNotFound = errors.New("object not found")

type BucketConfig struct {
	Name string
	// EmulatorHost points the client at a fake-gcs server (http://host:port).
	EmulatorHost string
	Timeout      time.Duration
}

func BucketConfigFromEnv(log *logger.Logger) BucketConfig {
	return BucketConfig{
		Name:         envutil.String("MATERIAL_GCS_BUCKET_NAME", "", log),
		EmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", "", log),
		Timeout:      envutil.Seconds("GCS_TIMEOUT_SECONDS", 2*time.Minute),
	}
}

func (c BucketConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("missing env var MATERIAL_GCS_BUCKET_NAME")
	}
	if c.EmulatorHost != "" {
		u, err := url.Parse(c.EmulatorHost)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", c.EmulatorHost)
		}
	}
	return nil
}

// Bucket stores cached material bytes and submission artifacts in GCS. It
// also reads arbitrary gs:// objects for the material FileSource.
type Bucket struct {
	log     *logger.Logger
	client  *storage.Client
	name    string
	timeout time.Duration
}

func NewBucket(ctx context.Context, log *logger.Logger, cfg BucketConfig) (*Bucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var opts []option.ClientOption
	if cfg.EmulatorHost != "" {
		opts = []option.ClientOption{
			option.WithoutAuthentication(),
			option.WithEndpoint(strings.TrimRight(cfg.EmulatorHost, "/") + "/storage/v1/"),
		}
	} else {
		opts = append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	b := &Bucket{
		log:     log.With("service", "Bucket", "bucket", cfg.Name),
		client:  client,
		name:    cfg.Name,
		timeout: cfg.Timeout,
	}
	b.log.Info("Object storage initialized", "emulator", cfg.EmulatorHost != "")
	return b, nil
}

func (b *Bucket) Close() error { return b.client.Close() }

func (b *Bucket) Put(ctx context.Context, key, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	w := b.client.Bucket(b.name).Object(key).NewWriter(ctx)
	if contentType == "" {
		contentType = ContentTypeForKey(key)
	}
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (b *Bucket) Get(ctx context.Context, key string) ([]byte, string, error) {
	return b.read(ctx, b.name, key)
}

// ReadObject reads from any bucket the credentials can see.
func (b *Bucket) ReadObject(ctx context.Context, bucket, key string) ([]byte, string, error) {
	return b.read(ctx, bucket, key)
}

func (b *Bucket) read(ctx context.Context, bucket, key string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	r, err := b.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", fmt.Errorf("%w: gs://%s/%s", ErrObjectNotFound, bucket, key)
		}
		return nil, "", fmt.Errorf("failed to open GCS reader: %w", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read gs://%s/%s: %w", bucket, key, err)
	}
	return data, r.Attrs.ContentType, nil
}

func (b *Bucket) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	err := b.client.Bucket(b.name).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (b *Bucket) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	it := b.client.Bucket(b.name).Objects(ctx, &storage.Query{Prefix: prefix})
	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func ContentTypeForKey(key string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(key))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
