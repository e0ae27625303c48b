package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/domain/jobs"
	"github.com/yungbote/draftbridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/draftbridge-backend/internal/jobs/pipeline/assignment_finalize"
	"github.com/yungbote/draftbridge-backend/internal/jobs/pipeline/assignment_sync"
	"github.com/yungbote/draftbridge-backend/internal/jobs/pipeline/draft_generate"
	"github.com/yungbote/draftbridge-backend/internal/jobs/pipeline/material_download"
	"github.com/yungbote/draftbridge-backend/internal/jobs/pipeline/material_extract"
	"github.com/yungbote/draftbridge-backend/internal/jobs/pipeline/material_index"
	jobruntime "github.com/yungbote/draftbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/draftbridge-backend/internal/jobs/worker"
	"github.com/yungbote/draftbridge-backend/internal/platform/envutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/rag/drafting"
	"github.com/yungbote/draftbridge-backend/internal/rag/embedder"
	"github.com/yungbote/draftbridge-backend/internal/rag/retriever"
	"github.com/yungbote/draftbridge-backend/internal/services"
	"github.com/yungbote/draftbridge-backend/internal/submission"
	"github.com/yungbote/draftbridge-backend/internal/temporalx/temporalworker"
)

type Services struct {
	Notifier     services.Notifier
	Jobs         services.JobService
	Orchestrator *services.Orchestrator
	Pipeline     services.PipelineService

	Embedder  *embedder.Embedder
	Generator *drafting.Generator
	Retriever *retriever.Retriever
	Extractor *extractor.Extractor
	Finalizer submission.Finalizer

	Registry *jobruntime.Registry
	// Exactly one of JobWorker and TemporalWorker is set.
	JobWorker      *worker.Worker
	TemporalWorker *temporalworker.Runner
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) (Services, error) {
	log.Info("Wiring services...")
	var s Services

	s.Notifier = services.NewNotifier(log, c.Bus, r.JobEvent)
	s.Jobs = services.NewJobService(db, log, r.JobRun, r.JobEvent, s.Notifier, c.Temporal, c.TemporalCfg.TaskQueue)
	s.Orchestrator = services.NewOrchestrator(db, log, r.Material, r.Assignment, s.Jobs, s.Notifier, cfg.AutoGenerate)
	s.Pipeline = services.NewPipelineService(db, log, s.Orchestrator, r.Draft, r.Chunk, s.Jobs)

	embedModel := envutil.String("EMBED_MODEL", c.Models.EmbeddingModel, log)
	s.Embedder = embedder.New(log, c.Models.Embedding, embedder.Config{
		Model:         embedModel,
		Dim:           cfg.Embedding.Dim,
		BatchSize:     cfg.Embedding.BatchSize,
		Concurrency:   cfg.Embedding.Concurrency,
		RatePerSecond: cfg.Embedding.RatePerSecond,
	})
	s.Generator = drafting.New(log, c.Models.Generation, drafting.Config{
		Model:   c.Models.GenerationName,
		Timeout: cfg.Generation.Timeout,
		Params:  cfg.Generation.Params,
	})
	s.Retriever = retriever.New(log, s.Embedder, r.Chunk)

	extractCfg := extractor.Config{PDFToTextPath: envutil.String("PDFTOTEXT_PATH", "", log)}
	if c.OCR != nil {
		extractCfg.OCR = c.OCR
	}
	s.Extractor = extractor.New(log, extractCfg)
	s.Finalizer = submission.New(log, c.Mailer, submission.ConfigFromEnv(log))

	s.Registry = jobruntime.NewRegistry()
	for _, h := range []jobruntime.Handler{
		assignment_sync.New(log, s.Orchestrator),
		material_download.New(log, s.Orchestrator, c.Sources, c.Store),
		material_extract.New(db, log, s.Orchestrator, r.Document, r.Chunk, c.Store, s.Extractor),
		material_index.New(log, s.Orchestrator, r.Document, r.Chunk, s.Embedder, cfg.Chunking),
		draft_generate.New(log, s.Orchestrator, r.Draft, s.Retriever, s.Generator, cfg.TopK),
		assignment_finalize.New(log, s.Orchestrator, r.Draft, c.Store, s.Finalizer),
	} {
		if err := s.Registry.Register(h); err != nil {
			return Services{}, fmt.Errorf("register %s: %w", h.Type(), err)
		}
	}
	if err := s.Registry.Require(jobs.StageTypes()...); err != nil {
		return Services{}, err
	}

	workerCfg := worker.ConfigFromEnv(log)
	if c.Temporal != nil {
		runner, err := temporalworker.NewRunner(log, c.TemporalCfg, c.Temporal, db, r.JobRun, s.Registry, s.Notifier, s.Orchestrator, workerCfg.MaxAttempts)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
		s.TemporalWorker = runner
	} else {
		s.JobWorker = worker.NewWorker(db, log, r.JobRun, s.Registry, s.Notifier, s.Orchestrator, workerCfg)
	}
	return s, nil
}
