package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godilite/ata-server/internal/config"
	"github.com/godilite/ata-server/internal/httpapi"
	"github.com/godilite/ata-server/internal/metrics"
	"github.com/godilite/ata-server/internal/repository"
	"github.com/godilite/ata-server/internal/rubric"
	"github.com/godilite/ata-server/internal/service"
	"github.com/godilite/ata-server/pkg/cache"
	dbbuilder "github.com/godilite/ata-server/pkg/database"
	"github.com/godilite/ata-server/pkg/httpserver"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type App struct {
	logger     *zap.Logger
	dbPool     *sql.DB
	cache      *cache.Cache
	httpServer *httpserver.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	dbPool, err := dbbuilder.New(
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))

	sheets := repository.NewSheetStore(dbPool)
	if err := sheets.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("worksheet schema init failed: %w", err)
	}

	cacheClient, err := cache.New(ctx,
		cache.WithAddress(cfg.RedisAddr),
	)
	if err != nil {
		return nil, fmt.Errorf("cache init failed: %w", err)
	}
	logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))

	catalog, err := rubric.Load(cfg.RubricPath)
	if err != nil {
		return nil, fmt.Errorf("rubric load failed: %w", err)
	}
	logger.Info("Rubric catalog loaded",
		zap.String("path", cfg.RubricPath),
		zap.Int("parameters", len(catalog.Parameters)))

	evalRepo := repository.NewEvaluationRepository(sheets)

	evaluationService := service.NewEvaluationService(evalRepo, logger)
	analyticsService := service.NewAnalyticsService(evalRepo, logger)

	handlers := httpapi.NewHandlers(evaluationService, analyticsService, cacheClient, catalog, logger, cfg.CacheTTL)

	metrics.MustRegister()

	httpServer, err := httpserver.New(
		httpserver.WithPort(cfg.HTTPPort),
		httpserver.WithLogger(logger),
		httpserver.WithLogging(cfg.RequestLogging),
		httpserver.WithCORSOrigins(cfg.CORSOrigins),
		httpserver.WithMiddlewares(metrics.Middleware),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP server: %w", err)
	}

	httpServer.Mount("/api/v1", handlers.Routes)
	httpServer.Handle("/metrics", promhttp.Handler())

	return &App{
		logger:     logger,
		dbPool:     dbPool,
		cache:      cacheClient,
		httpServer: httpServer,
	}, nil
}

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run() error {
	a.logger.Info("application starting")

	a.httpServer.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.logger.Info("application shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown error", zap.Error(err))
	}

	if err := a.cache.Close(); err != nil {
		a.logger.Error("cache shutdown error", zap.Error(err))
	}
	if err := a.dbPool.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			a.logger.Warn("shutdown completed but deadline exceeded")
		}
	default:
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return nil
}
