package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/platform/gcp"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/platform/objectstore"
)

const (
	ObjectStoreDB  = "db"
	ObjectStoreGCS = "gcs"
)

var newBucket = gcp.NewBucket

type StoreBootstrapErrorCode string

const (
	StoreBootstrapErrorInvalidMode   StoreBootstrapErrorCode = "invalid_mode"
	StoreBootstrapErrorInvalidConfig StoreBootstrapErrorCode = "invalid_config"
	StoreBootstrapErrorConnectFailed StoreBootstrapErrorCode = "connect_failed"
)

type StoreBootstrapError struct {
	Code  StoreBootstrapErrorCode
	Mode  string
	Cause error
}

func (e *StoreBootstrapError) Error() string {
	if e == nil {
		return "object store bootstrap failed"
	}
	return fmt.Sprintf("object store bootstrap failed (code=%s mode=%q): %v", e.Code, e.Mode, e.Cause)
}

func (e *StoreBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveObjectStore picks the store for downloaded bytes and submission
// artifacts. The bucket is returned so gs:// material refs can share it; it
// is nil in db mode.
func resolveObjectStore(ctx context.Context, log *logger.Logger, db *gorm.DB, mode string, bucketCfg gcp.BucketConfig) (objectstore.Store, *gcp.Bucket, error) {
	switch mode {
	case "", ObjectStoreDB:
		log.Info("Object store selected", "mode", ObjectStoreDB)
		return objectstore.NewDB(db, log), nil, nil
	case ObjectStoreGCS:
		if err := bucketCfg.Validate(); err != nil {
			return nil, nil, storeFailure(log, StoreBootstrapErrorInvalidConfig, mode, err)
		}
		b, err := newBucket(ctx, log, bucketCfg)
		if err != nil {
			return nil, nil, storeFailure(log, StoreBootstrapErrorConnectFailed, mode, err)
		}
		log.Info("Object store selected", "mode", ObjectStoreGCS, "bucket", bucketCfg.Name, "emulator", bucketCfg.EmulatorHost != "")
		return objectstore.NewGCS(b), b, nil
	default:
		return nil, nil, storeFailure(log, StoreBootstrapErrorInvalidMode, mode, fmt.Errorf("unsupported object store mode %q", mode))
	}
}

func storeFailure(log *logger.Logger, code StoreBootstrapErrorCode, mode string, cause error) error {
	err := &StoreBootstrapError{Code: code, Mode: mode, Cause: cause}
	log.Error("Object store selection failed", "mode", mode, "error_code", code, "error", cause)
	return err
}
