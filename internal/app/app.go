package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/data/db"
	httpserver "github.com/yungbote/draftbridge-backend/internal/http"
	"github.com/yungbote/draftbridge-backend/internal/observability"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *httpserver.Server
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services

	database     *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfigFromEnv(log))

	database, err := db.NewPostgresService(log, db.ConfigFromEnv(log))
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.AutoMigrateAll(); err != nil {
		_ = database.Close()
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := database.DB()

	reposet := wireRepos(theDB, log)

	clientset, err := wireClients(ctx, log, theDB, cfg)
	if err != nil {
		_ = database.Close()
		log.Sync()
		return nil, err
	}

	serviceset, err := wireServices(theDB, log, cfg, reposet, clientset)
	if err != nil {
		clientset.Close()
		_ = database.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(theDB, log, serviceset)
	server := wireServer(log, cfg, handlerset)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clientset,
		Services:     serviceset,
		database:     database,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the job runner and the status event forwarder.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.TemporalWorker != nil {
		if err := a.Services.TemporalWorker.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
	}
	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Start(ctx)
	}

	if a.Clients.Bus != nil {
		log := a.Log.With("component", "EventForwarder")
		err := a.Clients.Bus.StartForwarder(ctx, func(ev realtime.Event) {
			log.Debug("event", "channel", ev.Channel, "type", ev.Type, "data", ev.Data)
		})
		if err != nil {
			return fmt.Errorf("start event forwarder: %w", err)
		}
	}
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr)
	return a.Server.Run(addr)
}

// Close drains the HTTP server, stops the runners and releases clients.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.Log.Warn("HTTP shutdown failed", "error", err)
		}
		cancel()
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
		if a.Services.JobWorker != nil {
			a.Services.JobWorker.Wait()
		}
	}
	a.Clients.Close()
	if a.database != nil {
		_ = a.database.Close()
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
