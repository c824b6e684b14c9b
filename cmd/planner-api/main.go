package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/dayplan-api/api/swagger"
	"github.com/noah-isme/dayplan-api/internal/dto"
	"github.com/noah-isme/dayplan-api/internal/handler"
	"github.com/noah-isme/dayplan-api/internal/planner"
	"github.com/noah-isme/dayplan-api/internal/repository"
	"github.com/noah-isme/dayplan-api/internal/service"
	"github.com/noah-isme/dayplan-api/pkg/cache"
	"github.com/noah-isme/dayplan-api/pkg/config"
	"github.com/noah-isme/dayplan-api/pkg/database"
	"github.com/noah-isme/dayplan-api/pkg/jobs"
	"github.com/noah-isme/dayplan-api/pkg/logger"
	"github.com/noah-isme/dayplan-api/pkg/storage"
	"github.com/noah-isme/dayplan-api/pkg/timeofday"
)

// @title Day Planner API
// @version 1.0.0
// @description Builds daily schedules from task lists with greedy, filtered and gap-filling strategies.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logr)
	stop()
	if err != nil {
		logr.Error("planner api stopped", zap.Error(err))
		_ = logr.Sync()
		os.Exit(1)
	}
}

// run wires the application and serves until ctx is cancelled or the listener fails.
func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	app, cleanup, err := build(ctx, cfg, logr)
	defer cleanup()
	if err != nil {
		return fmt.Errorf("wire application: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// application groups the handlers and background workers of one process.
type application struct {
	metrics   *service.MetricsService
	tokens    *service.TokenService
	planner   *handler.PlannerHandler
	taskLists *handler.TaskListHandler
	exports   *handler.ExportHandler
	probes    *handler.MetricsHandler
}

func build(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*application, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	weights, err := planner.ParseCategoryWeights(cfg.Planner.CategoryWeights)
	if err != nil {
		return nil, cleanup, fmt.Errorf("planner category weights: %w", err)
	}
	dayStart, err := timeofday.Parse(cfg.Planner.DayStart)
	if err != nil {
		return nil, cleanup, fmt.Errorf("planner day start: %w", err)
	}
	dayEnd, err := timeofday.Parse(cfg.Planner.DayEnd)
	if err != nil {
		return nil, cleanup, fmt.Errorf("planner day end: %w", err)
	}
	strategy, err := planner.ParseStrategy(cfg.Planner.DefaultStrategy)
	if err != nil {
		return nil, cleanup, fmt.Errorf("planner default strategy: %w", err)
	}
	engine := planner.NewEngine(weights, logr.Named("planner"))

	var (
		db       *sqlx.DB
		lists    *service.TaskListService
		listsAPI *handler.TaskListHandler
	)
	if cfg.TaskLists.Enabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, cleanup, fmt.Errorf("postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		checks["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
		lists = service.NewTaskListService(repository.NewTaskListRepository(db), metrics, validate, logr, cfg.Planner.MaxTasks)
		listsAPI = handler.NewTaskListHandler(lists)
	}

	planCache := service.NewCacheService(nil, metrics, "dayplan", cfg.PlanCache.TTL, logr, false)
	if cfg.PlanCache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("plan cache disabled, redis unreachable", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(client, logr.Named("cache"))
			closers = append(closers, func() { _ = cacheRepo.Close() })
			checks["redis"] = cacheRepo.Ping
			planCache = service.NewCacheService(cacheRepo, metrics, "dayplan", cfg.PlanCache.TTL, logr, true)
		}
	}

	var listSource interface {
		Tasks(ctx context.Context, listID string) ([]dto.TaskInput, error)
	}
	if lists != nil {
		listSource = lists
	}
	plans := service.NewPlannerService(engine, listSource, planCache, metrics, validate, logr, service.PlannerConfig{
		DayStart:        dayStart,
		DayEnd:          dayEnd,
		DefaultStrategy: strategy,
		MaxTasks:        cfg.Planner.MaxTasks,
		PlanTTL:         cfg.Planner.PlanTTL,
		CacheTTL:        cfg.PlanCache.TTL,
	})

	exportsAPI := handler.NewExportHandler(nil)
	if cfg.Exports.Enabled {
		files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			return nil, cleanup, fmt.Errorf("export storage: %w", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exporter := service.NewExportService(files, signer, service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL}, logr, nil, nil)
		store := service.NewExportJobStore()
		worker := service.NewExportWorker(store, exporter, cfg.Exports.WorkerRetries, logr)
		queue := jobs.NewQueue(service.ExportJobType, worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 2 * time.Second,
			JobTimeout: time.Minute,
			Logger:     logr,
			Observer:   metrics,
		})
		queue.Start(ctx)
		closers = append(closers, queue.Stop)

		jobService := service.NewExportJobService(plans, store, queue, exporter, validate, logr, service.ExportJobConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		jobService.StartCleanup(ctx)
		exportsAPI = handler.NewExportHandler(jobService)
	}

	tokens := service.NewTokenService(logr, service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: tokenIssuer,
	})

	return &application{
		metrics:   metrics,
		tokens:    tokens,
		planner:   handler.NewPlannerHandler(plans),
		taskLists: listsAPI,
		exports:   exportsAPI,
		probes:    handler.NewMetricsHandler(metrics, checks),
	}, cleanup, nil
}
