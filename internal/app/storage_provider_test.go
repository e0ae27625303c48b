package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/draftbridge-backend/internal/data/repos/testutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/gcp"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

func stubBucket(t *testing.T, fn func(ctx context.Context, log *logger.Logger, cfg gcp.BucketConfig) (*gcp.Bucket, error)) {
	t.Helper()
	prev := newBucket
	newBucket = fn
	t.Cleanup(func() { newBucket = prev })
}

func TestResolveObjectStoreDBMode(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	stubBucket(t, func(context.Context, *logger.Logger, gcp.BucketConfig) (*gcp.Bucket, error) {
		t.Fatalf("db mode must not dial a bucket")
		return nil, nil
	})

	store, bucket, err := resolveObjectStore(context.Background(), log, db, ObjectStoreDB, gcp.BucketConfig{})
	if err != nil {
		t.Fatalf("resolveObjectStore: %v", err)
	}
	if bucket != nil {
		t.Fatalf("bucket: want nil in db mode")
	}
	ctx := context.Background()
	if err := store.Put(ctx, "materials/x/notes.txt", "text/plain", []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, ct, err := store.Get(ctx, "materials/x/notes.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "hello" || ct != "text/plain" {
		t.Fatalf("Get: got %q %q", data, ct)
	}
}

func TestResolveObjectStoreInvalidMode(t *testing.T) {
	log := testutil.Logger(t)
	_, _, err := resolveObjectStore(context.Background(), log, nil, "s3", gcp.BucketConfig{})

	var got *StoreBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected StoreBootstrapError, got=%T (%v)", err, err)
	}
	if got.Code != StoreBootstrapErrorInvalidMode {
		t.Fatalf("code: want=%q got=%q", StoreBootstrapErrorInvalidMode, got.Code)
	}
}

func TestResolveObjectStoreGCSMissingBucket(t *testing.T) {
	log := testutil.Logger(t)
	_, _, err := resolveObjectStore(context.Background(), log, nil, ObjectStoreGCS, gcp.BucketConfig{})

	var got *StoreBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected StoreBootstrapError, got=%T (%v)", err, err)
	}
	if got.Code != StoreBootstrapErrorInvalidConfig {
		t.Fatalf("code: want=%q got=%q", StoreBootstrapErrorInvalidConfig, got.Code)
	}
}

func TestResolveObjectStoreGCSConnectFailed(t *testing.T) {
	log := testutil.Logger(t)
	dialErr := errors.New("dial tcp: connection refused")
	stubBucket(t, func(context.Context, *logger.Logger, gcp.BucketConfig) (*gcp.Bucket, error) {
		return nil, dialErr
	})

	_, _, err := resolveObjectStore(context.Background(), log, nil, ObjectStoreGCS, gcp.BucketConfig{Name: "materials"})

	var got *StoreBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected StoreBootstrapError, got=%T (%v)", err, err)
	}
	if got.Code != StoreBootstrapErrorConnectFailed {
		t.Fatalf("code: want=%q got=%q", StoreBootstrapErrorConnectFailed, got.Code)
	}
	if !errors.Is(err, dialErr) {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestResolveObjectStoreGCSMode(t *testing.T) {
	log := testutil.Logger(t)
	var gotCfg gcp.BucketConfig
	stubBucket(t, func(_ context.Context, _ *logger.Logger, cfg gcp.BucketConfig) (*gcp.Bucket, error) {
		gotCfg = cfg
		return &gcp.Bucket{}, nil
	})

	cfg := gcp.BucketConfig{Name: "materials", EmulatorHost: "http://fake-gcs:4443"}
	store, bucket, err := resolveObjectStore(context.Background(), log, nil, ObjectStoreGCS, cfg)
	if err != nil {
		t.Fatalf("resolveObjectStore: %v", err)
	}
	if store == nil || bucket == nil {
		t.Fatalf("want store and bucket, got %v %v", store, bucket)
	}
	if gotCfg != cfg {
		t.Fatalf("bucket config: want=%+v got=%+v", cfg, gotCfg)
	}
}
