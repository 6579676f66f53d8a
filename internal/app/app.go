package app

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/enemia-backend/internal/data/db"
	httpserver "github.com/yungbote/enemia-backend/internal/http"
	"github.com/yungbote/enemia-backend/internal/platform/config"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
	"github.com/yungbote/enemia-backend/internal/platform/observability"
)

const serviceName = "enemia-backend"

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      config.Config
	Repos    Repos
	Clients  Clients
	Services Services
	Server   *httpserver.Server

	dbService    *db.Service
	otelShutdown func(context.Context) error
}

// New builds every dependency from cfg. On failure it releases whatever it had already opened.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	log, err := logger.NewWithOptions(logger.Options{
		Mode:      cfg.Log.Mode,
		Level:     cfg.Log.Level,
		Redaction: cfg.Log.Redaction,
		HashSalt:  cfg.Log.HashSalt,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &App{Log: log, Cfg: cfg}

	shutdown, err := observability.Init(ctx, log, observability.Config{
		Enabled:     cfg.OTel.Enabled,
		ServiceName: serviceName,
		Environment: cfg.Env,
		Exporter:    cfg.OTel.Exporter,
		Endpoint:    cfg.OTel.Endpoint,
		SampleRatio: cfg.OTel.SampleRatio,
	})
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("init otel: %w", err)
	}
	a.otelShutdown = shutdown

	dbs, err := OpenDatabase(log, cfg.DB)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.dbService = dbs
	a.DB = dbs.DB()

	a.Repos = wireRepos(a.DB, log, cfg.DB)

	a.Clients, err = wireClients(ctx, log, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Services, err = wireServices(log, cfg, a.Repos, a.Clients)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	handlers := wireHandlers(a.Services, a.healthDeps())
	mw := wireMiddleware(log, a.Services)
	a.Server = httpserver.NewServer(cfg.HTTP.Addr, wireRouter(log, cfg, handlers, mw))
	return a, nil
}

// OpenDatabase connects and, when configured, migrates the schema.
func OpenDatabase(log *logger.Logger, cfg config.DBConfig) (*db.Service, error) {
	dbs, err := db.Open(log, db.Config{Driver: cfg.Driver, DSN: cfg.DSN})
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := db.AutoMigrateAll(dbs.DB()); err != nil {
			_ = dbs.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}
	return dbs, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	return a.Server.Run(ctx)
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Clients.closeCache != nil {
		if err := a.Clients.closeCache(); err != nil {
			a.Log.Warn("close generation cache", "error", err)
		}
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("close database", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	a.Log.Sync()
}
