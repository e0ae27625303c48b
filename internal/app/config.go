package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/draftbridge-backend/internal/http/middleware"
	"github.com/yungbote/draftbridge-backend/internal/ingestion/chunker"
	"github.com/yungbote/draftbridge-backend/internal/platform/envutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/rag/drafting"
	"github.com/yungbote/draftbridge-backend/internal/rag/retriever"
)

// TuningFile is the optional YAML document named by CONFIG_FILE. Environment
// variables override anything it sets.
type TuningFile struct {
	Chunking struct {
		TargetSize int `yaml:"target_size"`
		Overlap    int `yaml:"overlap"`
	} `yaml:"chunking"`
	Retrieval struct {
		TopK int `yaml:"top_k"`
	} `yaml:"retrieval"`
	Embedding struct {
		Dim           int     `yaml:"dim"`
		BatchSize     int     `yaml:"batch_size"`
		Concurrency   int     `yaml:"concurrency"`
		RatePerSecond float64 `yaml:"rate_per_second"`
	} `yaml:"embedding"`
	Generation struct {
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
		Temperature     float64 `yaml:"temperature"`
		TopP            float64 `yaml:"top_p"`
		TopK            int     `yaml:"top_k"`
		MaxOutputTokens int     `yaml:"max_output_tokens"`
	} `yaml:"generation"`
}

func defaultTuning() TuningFile {
	var f TuningFile
	chunk := chunker.DefaultOptions()
	f.Chunking.TargetSize = chunk.TargetSize
	f.Chunking.Overlap = chunk.Overlap
	f.Retrieval.TopK = retriever.DefaultK
	f.Embedding.BatchSize = 64
	f.Embedding.Concurrency = 4
	params := drafting.DefaultParams()
	f.Generation.TimeoutSeconds = 120
	f.Generation.Temperature = params.Temperature
	f.Generation.TopP = params.TopP
	f.Generation.TopK = params.TopK
	f.Generation.MaxOutputTokens = params.MaxOutputTokens
	return f
}

// LoadTuningFile overlays path onto the defaults. A missing file is an error;
// an empty path returns the defaults.
func LoadTuningFile(path string) (TuningFile, error) {
	f := defaultTuning()
	if strings.TrimSpace(path) == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return f, nil
}

type Config struct {
	LogMode        string
	Port           string
	ServiceName    string
	AllowedOrigins []string

	AIProvider   string
	ObjectStore  string
	DriveSource  bool
	AutoGenerate bool

	Chunking   chunker.Options
	TopK       int
	Embedding  EmbeddingConfig
	Generation GenerationConfig
}

type EmbeddingConfig struct {
	Dim           int
	BatchSize     int
	Concurrency   int
	RatePerSecond float64
}

type GenerationConfig struct {
	Timeout time.Duration
	Params  drafting.GenerationParams
}

func LoadConfig(log *logger.Logger) (Config, error) {
	file, err := LoadTuningFile(envutil.String("CONFIG_FILE", "", log))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		LogMode:        envutil.String("LOG_MODE", "development", log),
		Port:           envutil.String("PORT", "8080", log),
		ServiceName:    envutil.String("SERVICE_NAME", "draftbridge", log),
		AllowedOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "", log)),

		AIProvider:   envutil.String("AI_PROVIDER", "openai", log),
		ObjectStore:  strings.ToLower(envutil.String("OBJECT_STORE", ObjectStoreDB, log)),
		DriveSource:  envutil.Bool("DRIVE_SOURCE_ENABLED", false),
		AutoGenerate: envutil.Bool("PIPELINE_AUTO_GENERATE", false),

		Chunking: chunker.Options{
			TargetSize: envutil.Int("CHUNK_TARGET_SIZE", file.Chunking.TargetSize, log),
			Overlap:    envutil.Int("CHUNK_OVERLAP", file.Chunking.Overlap, log),
		},
		TopK: envutil.Int("RETRIEVAL_TOP_K", file.Retrieval.TopK, log),
		Embedding: EmbeddingConfig{
			Dim:           envutil.Int("EMBED_DIM", file.Embedding.Dim, log),
			BatchSize:     envutil.Int("EMBED_BATCH_SIZE", file.Embedding.BatchSize, log),
			Concurrency:   envutil.Int("EMBED_CONCURRENCY", file.Embedding.Concurrency, log),
			RatePerSecond: envutil.Float("EMBED_RATE_PER_SECOND", file.Embedding.RatePerSecond, log),
		},
		Generation: GenerationConfig{
			Timeout: envutil.Seconds("GENERATION_TIMEOUT_SECONDS", time.Duration(file.Generation.TimeoutSeconds)*time.Second),
			Params: drafting.GenerationParams{
				Temperature:     envutil.Float("GENERATION_TEMPERATURE", file.Generation.Temperature, log),
				TopP:            envutil.Float("GENERATION_TOP_P", file.Generation.TopP, log),
				TopK:            envutil.Int("GENERATION_TOP_K", file.Generation.TopK, log),
				MaxOutputTokens: envutil.Int("GENERATION_MAX_OUTPUT_TOKENS", file.Generation.MaxOutputTokens, log),
			},
		},
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = middleware.DefaultAllowedOrigins
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Chunking.TargetSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk target size must be positive, got %d", c.Chunking.TargetSize))
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.TargetSize {
		errs = append(errs, fmt.Errorf("chunk overlap must be in [0, %d), got %d", c.Chunking.TargetSize, c.Chunking.Overlap))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval top_k must be positive, got %d", c.TopK))
	}
	switch c.ObjectStore {
	case ObjectStoreDB, ObjectStoreGCS:
	default:
		errs = append(errs, fmt.Errorf("unsupported OBJECT_STORE %q", c.ObjectStore))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
