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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-generator/api/swagger"
	"github.com/noah-isme/sma-timetable-generator/internal/csvio"
	"github.com/noah-isme/sma-timetable-generator/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-generator/internal/middleware"
	"github.com/noah-isme/sma-timetable-generator/internal/models"
	"github.com/noah-isme/sma-timetable-generator/internal/repository"
	"github.com/noah-isme/sma-timetable-generator/internal/service"
	"github.com/noah-isme/sma-timetable-generator/pkg/cache"
	"github.com/noah-isme/sma-timetable-generator/pkg/config"
	"github.com/noah-isme/sma-timetable-generator/pkg/database"
	"github.com/noah-isme/sma-timetable-generator/pkg/export"
	"github.com/noah-isme/sma-timetable-generator/pkg/jobs"
	"github.com/noah-isme/sma-timetable-generator/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-generator/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-generator/pkg/middleware/requestid"
	"github.com/noah-isme/sma-timetable-generator/pkg/storage"
)

// @title SMA Timetable Generator API
// @version 1.0.0
// @description Generates synthetic timetables and class-register sample data.
// @BasePath /
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, run cache disabled", "error", err)
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	runCache := service.NewRunCacheService(cacheRepo, metricsSvc, cfg.Cache.RunTTL, logr, cacheRepo != nil)

	var importer *service.ImportService
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Warnw("postgres unavailable, database import disabled", "error", err)
	} else {
		defer db.Close() //nolint:errcheck
		importer = service.NewImportService(db, repository.NewDatasetRepository(db),
			export.NewCSVExporter(cfg.Export.Delimiter), cfg.Export.SQLChunkSize, metricsSvc, logr)
	}

	loader := csvio.NewLoader(cfg.Generator.InputDir, cfg.Export.Delimiter)
	reference, err := loader.ReferenceData(service.DefaultReferenceData())
	if err != nil {
		logr.Fatal("failed to load reference data", zap.Error(err))
	}
	names, err := loader.NameLists()
	if err != nil {
		logr.Fatal("failed to load name lists", zap.Error(err))
	}
	generator := service.NewGeneratorService(reference, names, metricsSvc, logr)

	store, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		logr.Fatal("failed to init export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Export.SignedURLSecret, cfg.Export.SignedURLTTL)
	exporter := service.NewExportService(store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Export.SignedURLTTL,
	}, logr, export.NewCSVExporter(cfg.Export.Delimiter), export.NewSQLScriptExporter(cfg.Export.SQLChunkSize), export.NewPDFExporter())

	var runImporter service.DatasetImporter
	if importer != nil {
		runImporter = importer
	}
	runSvc := service.NewRunService(nil, generator, exporter, runImporter, runCache, metricsSvc, validator.New(), logr, service.RunServiceConfig{
		Defaults: models.RunParams{
			Seed:               cfg.Generator.Seed,
			SchoolYear:         cfg.Generator.SchoolYear,
			SimulationStart:    cfg.Generator.SimulationStart,
			SimulationDays:     cfg.Generator.SimulationDays,
			AllocationAttempts: cfg.Generator.AllocationAttempts,
		},
		ResultTTL:       cfg.Export.SignedURLTTL,
		CleanupInterval: cfg.Export.CleanupInterval,
		MaxRetries:      cfg.Worker.Retries,
	})
	queue := jobs.NewQueue("generation-runs", runSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Worker.Concurrency,
		MaxRetries: cfg.Worker.Retries,
		RetryDelay: 2 * time.Second,
		JobTimeout: 10 * time.Minute,
		Logger:     logr,
	})
	runSvc.SetQueue(queue)
	if err := metricsSvc.TrackQueue("generation-runs", queue.Pending); err != nil {
		logr.Warn("queue gauge not registered", zap.Error(err))
	}
	queue.Start(ctx)
	defer queue.Stop()
	runSvc.StartCleanup(ctx)

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	generatorHandler := handler.NewGeneratorHandler(runSvc, cfg.APIPrefix)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.GET("/metrics/summary", metricsHandler.Summary)
	api.POST("/runs", generatorHandler.CreateRun)
	api.GET("/runs", generatorHandler.ListRuns)
	api.GET("/runs/:id", generatorHandler.GetRun)
	api.DELETE("/runs/:id", generatorHandler.DeleteRun)
	api.GET("/downloads/:token", generatorHandler.Download)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown failed", "error", err)
	}
}
