package temporalx

import (
	"time"

	"github.com/yungbote/draftbridge-backend/internal/platform/envutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

const DefaultTaskQueue = "draftbridge"

// Config is empty-Address when Temporal is not deployed; callers then fall
// back to the polling worker.
type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace bool
	RetentionDays         int

	DialTimeout    time.Duration
	DialMaxWait    time.Duration
	DialBackoff    time.Duration
	DialBackoffMax time.Duration

	// Concurrency bounds workflow and activity task slots.
	Concurrency int
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", "", log),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "draftbridge", log),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", DefaultTaskQueue, log),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", "", log),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", "", log),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", "", log),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		RetentionDays:         envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7, log),

		DialTimeout:    envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5*time.Second),
		DialMaxWait:    envutil.Seconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60*time.Second),
		DialBackoff:    envutil.Millis("TEMPORAL_DIAL_BACKOFF_MS", 250*time.Millisecond),
		DialBackoffMax: envutil.Millis("TEMPORAL_DIAL_BACKOFF_MAX_MS", 5*time.Second),

		Concurrency: envutil.Int("WORKER_CONCURRENCY", 4, log),
	}
}

func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) tlsEnabled() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
