package app

import (
	"context"
	"fmt"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/ingestion/source"
	"github.com/yungbote/draftbridge-backend/internal/platform/envutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/gcp"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/platform/objectstore"
	"github.com/yungbote/draftbridge-backend/internal/platform/ollama"
	"github.com/yungbote/draftbridge-backend/internal/platform/openai"
	"github.com/yungbote/draftbridge-backend/internal/platform/sendgrid"
	"github.com/yungbote/draftbridge-backend/internal/rag/providers"
	"github.com/yungbote/draftbridge-backend/internal/realtime/bus"
	"github.com/yungbote/draftbridge-backend/internal/temporalx"
)

// Clients holds every external collaborator. Optional ones are nil when their
// configuration is absent.
type Clients struct {
	Bus      bus.Bus
	Models   *providers.Models
	OCR      *gcp.DocumentOCR
	Bucket   *gcp.Bucket
	Drive    *gcp.Drive
	Store    objectstore.Store
	Sources  *source.Router
	Mailer   sendgrid.Client
	Temporal temporalsdkclient.Client

	TemporalCfg temporalx.Config
}

func wireClients(ctx context.Context, log *logger.Logger, db *gorm.DB, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients
	fail := func(err error) (Clients, error) {
		c.Close()
		return Clients{}, err
	}

	// Redis
	redisCfg := bus.RedisConfigFromEnv(log)
	if redisCfg.Addr != "" {
		b, err := bus.NewRedisBus(log, redisCfg)
		if err != nil {
			return fail(fmt.Errorf("init redis bus: %w", err))
		}
		c.Bus = b
	} else {
		log.Info("REDIS_ADDR unset; status events stay in process")
		c.Bus = bus.NewMemoryBus()
	}

	// Models
	models, err := providers.New(log, providers.Config{
		Provider: cfg.AIProvider,
		OpenAI:   openai.ConfigFromEnv(log),
		Ollama:   ollama.ConfigFromEnv(log),
	})
	if err != nil {
		return fail(fmt.Errorf("init model provider: %w", err))
	}
	c.Models = models

	// Gcp
	ocrCfg := gcp.DocumentAIConfigFromEnv(log)
	if ocrCfg.Enabled() {
		ocr, err := gcp.NewDocumentOCR(ctx, log, ocrCfg)
		if err != nil {
			return fail(fmt.Errorf("init document ai: %w", err))
		}
		c.OCR = ocr
	}

	bucketCfg := gcp.BucketConfigFromEnv(log)
	store, bucket, err := resolveObjectStore(ctx, log, db, cfg.ObjectStore, bucketCfg)
	if err != nil {
		return fail(err)
	}
	c.Store = store
	c.Bucket = bucket
	if c.Bucket == nil && bucketCfg.Name != "" {
		b, err := newBucket(ctx, log, bucketCfg)
		if err != nil {
			return fail(fmt.Errorf("init gcs source bucket: %w", err))
		}
		c.Bucket = b
	}

	if cfg.DriveSource {
		d, err := gcp.NewDrive(ctx, log, gcp.DriveConfigFromEnv(log))
		if err != nil {
			return fail(fmt.Errorf("init drive: %w", err))
		}
		c.Drive = d
	}
	c.Sources = wireSources(log, c.Bucket, c.Drive)

	// Sendgrid
	mailCfg := sendgrid.ConfigFromEnv(log)
	if mailCfg.Enabled() {
		m, err := sendgrid.New(log, mailCfg)
		if err != nil {
			return fail(fmt.Errorf("init sendgrid: %w", err))
		}
		c.Mailer = m
	}

	// Temporal
	c.TemporalCfg = temporalx.LoadConfig(log)
	if c.TemporalCfg.Enabled() {
		tc, err := temporalx.NewClient(log, c.TemporalCfg)
		if err != nil {
			return fail(fmt.Errorf("init temporal client: %w", err))
		}
		c.Temporal = tc
	}

	return c, nil
}

// wireSources registers http(s) always and gs/drive when their clients exist.
func wireSources(log *logger.Logger, bucket *gcp.Bucket, drive *gcp.Drive) *source.Router {
	web := source.NewHTTP(source.HTTPConfig{
		Timeout:  envutil.Seconds("HTTP_SOURCE_TIMEOUT_SECONDS", time.Minute),
		MaxBytes: int64(envutil.Int("HTTP_SOURCE_MAX_BYTES", 100<<20, log)),
	})
	r := source.NewRouter(log).Register("http", web).Register("https", web)
	if bucket != nil {
		r.Register("gs", source.GCS(bucket))
	}
	if drive != nil {
		r.Register("drive", source.Drive(drive))
	}
	return r
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.OCR != nil {
		_ = c.OCR.Close()
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
}
