package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-generator/internal/dto"
	"github.com/noah-isme/sma-timetable-generator/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-generator/pkg/errors"
	"github.com/noah-isme/sma-timetable-generator/pkg/export"
	"github.com/noah-isme/sma-timetable-generator/pkg/jobs"
)

// RunJobType tags queue jobs that execute a generation run.
const RunJobType = "generation_run"

var schoolYearPattern = regexp.MustCompile(`^\d{4}/\d{2}$`)

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type timetableGenerator interface {
	Generate(ctx context.Context, params models.RunParams) (*GenerationResult, error)
}

type artifactExporter interface {
	Export(ctx context.Context, runID string, tt *models.Timetable) ([]models.RunArtifact, error)
	ParseToken(token string, allowExpired bool) (runID, relPath string, expiresAt time.Time, err error)
	Open(relPath string) (*os.File, error)
	Delete(runID string) error
	Cleanup(ttl time.Duration) ([]string, error)
}

// DatasetImporter loads exported tables into the database.
type DatasetImporter interface {
	Import(ctx context.Context, sets []export.Dataset) (*ImportReport, error)
}

// RunServiceConfig governs run defaults, retention and retries.
type RunServiceConfig struct {
	Defaults        models.RunParams
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// RunDownload aggregates resolved download data.
type RunDownload struct {
	File      *os.File
	Filename  string
	ExpiresAt time.Time
}

// RunService orchestrates the lifecycle of asynchronous generation runs.
type RunService struct {
	store     *runStore
	queue     jobDispatcher
	generator timetableGenerator
	exporter  artifactExporter
	importer  DatasetImporter
	cache     *RunCacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       RunServiceConfig
}

// NewRunService constructs the run service. importer may be nil when no database is configured.
func NewRunService(queue jobDispatcher, generator timetableGenerator, exporter artifactExporter, importer DatasetImporter, cache *RunCacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg RunServiceConfig) *RunService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	svc := &RunService{
		store:     newRunStore(cfg.ResultTTL),
		queue:     queue,
		generator: generator,
		exporter:  exporter,
		importer:  importer,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
	_ = svc.validator.RegisterValidation("school_year", func(fl validator.FieldLevel) bool {
		return schoolYearPattern.MatchString(fl.Field().String())
	})
	return svc
}

// SetQueue attaches the dispatcher once the queue, whose handler is this service, exists.
func (s *RunService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// Create validates req, records a queued run and dispatches it.
func (s *RunService) Create(ctx context.Context, req dto.GenerateRunRequest, requestID string) (*models.GenerationRun, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	params, err := s.resolveParams(req)
	if err != nil {
		return nil, err
	}
	if params.Import && s.importer == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "database import is not configured")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "run queue unavailable")
	}

	run := models.GenerationRun{
		ID:        uuid.NewString(),
		Status:    models.RunStatusQueued,
		Params:    params,
		RequestID: requestID,
		CreatedAt: time.Now().UTC(),
	}
	s.store.Save(run)
	if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: RunJobType}); err != nil {
		failed, _ := s.finish(ctx, run.ID, models.RunStatusFailed, "failed to enqueue run", time.Time{})
		s.logger.Sugar().Warnw("enqueue run failed", "run_id", failed.ID, "error", err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue run")
	}
	s.logger.Sugar().Infow("run queued", "run_id", run.ID, "seed", params.Seed, "request_id", requestID)
	return &run, nil
}

// Get returns a run from memory, falling back to the cache.
func (s *RunService) Get(ctx context.Context, id string) (*models.GenerationRun, error) {
	if run, ok := s.store.Get(id); ok {
		return &run, nil
	}
	if run, ok := s.cache.Lookup(ctx, id); ok {
		return run, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found or expired")
}

// List pages through runs newest first.
func (s *RunService) List(ctx context.Context, query dto.RunListQuery) ([]models.GenerationRun, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query")
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}
	all := s.store.List(models.RunStatus(query.Status))
	start := (query.Page - 1) * query.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + query.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: len(all)}, nil
}

// Delete removes a finished run and its artifacts.
func (s *RunService) Delete(ctx context.Context, id string) error {
	run, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !run.Status.Finished() {
		return appErrors.Clone(appErrors.ErrConflict, "run is still in progress")
	}
	if err := s.exporter.Delete(id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete run artifacts")
	}
	s.store.Delete(id)
	_ = s.cache.Evict(ctx, id)
	return nil
}

// ResolveDownload validates token and opens the stored artifact.
func (s *RunService) ResolveDownload(ctx context.Context, token string) (*RunDownload, error) {
	runID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "invalid or expired download token")
	}
	run, err := s.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	switch run.Status {
	case models.RunStatusSucceeded:
	case models.RunStatusFailed:
		return nil, appErrors.Clone(appErrors.ErrRunFailed, run.Error)
	default:
		return nil, appErrors.Clone(appErrors.ErrConflict, "run has no artifacts yet")
	}
	known := false
	for _, a := range run.Artifacts {
		if strings.HasSuffix(a.URL, token) {
			known = true
			break
		}
	}
	if !known {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "token mismatch")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open artifact")
	}
	return &RunDownload{File: file, Filename: filepath.Base(relPath), ExpiresAt: expiresAt}, nil
}

// StartCleanup boots a goroutine that purges expired runs periodically.
func (s *RunService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired()
			}
		}
	}()
}

func (s *RunService) cleanupExpired() {
	for _, run := range s.store.Expired(time.Now()) {
		s.logger.Sugar().Debugw("run expired", "run_id", run.ID)
	}
	removed, err := s.exporter.Cleanup(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Sugar().Warnw("artifact cleanup failed", "error", err)
		return
	}
	if len(removed) > 0 {
		s.logger.Sugar().Infow("expired artifacts removed", "runs", len(removed))
	}
}

// Handle executes a queued run. It is the queue handler.
func (s *RunService) Handle(ctx context.Context, job jobs.Job) error {
	started := time.Now().UTC()
	run, ok := s.store.Update(job.ID, func(r *models.GenerationRun) {
		r.Status = models.RunStatusRunning
		r.StartedAt = &started
		r.Error = ""
	})
	if !ok {
		s.logger.Sugar().Warnw("run vanished before execution", "run_id", job.ID)
		return nil
	}
	log := s.logger.With(zap.String("run_id", run.ID), zap.String("request_id", run.RequestID))

	result, err := s.generator.Generate(ctx, run.Params)
	if err == nil {
		var artifacts []models.RunArtifact
		artifacts, err = s.exporter.Export(ctx, run.ID, result.Timetable)
		if err == nil && run.Params.Import {
			_, err = s.importer.Import(ctx, BuildDatasets(result.Timetable))
		}
		if err == nil {
			summary := result.Summary
			s.store.Update(run.ID, func(r *models.GenerationRun) {
				r.Summary = &summary
				r.Artifacts = artifacts
			})
			finished, _ := s.finish(ctx, run.ID, models.RunStatusSucceeded, "", started)
			log.Info("run succeeded", zap.Int("artifacts", len(finished.Artifacts)), zap.Int("courses", summary.Courses))
			return nil
		}
	}

	if retryable(err) && job.Attempt < s.cfg.MaxRetries {
		s.store.Update(run.ID, func(r *models.GenerationRun) {
			r.Status = models.RunStatusQueued
			r.Error = err.Error()
		})
		log.Warn("run failed, retrying", zap.Int("attempt", job.Attempt+1), zap.Error(err))
		return err
	}
	_, _ = s.finish(ctx, run.ID, models.RunStatusFailed, err.Error(), started)
	log.Error("run failed", zap.Error(err))
	return nil
}

func (s *RunService) finish(ctx context.Context, id string, status models.RunStatus, msg string, started time.Time) (models.GenerationRun, bool) {
	now := time.Now().UTC()
	run, ok := s.store.Update(id, func(r *models.GenerationRun) {
		r.Status = status
		r.Error = msg
		r.FinishedAt = &now
	})
	if !ok {
		return run, false
	}
	if !started.IsZero() {
		s.metrics.RecordRun(status, now.Sub(started), run.Summary)
	}
	_ = s.cache.Store(ctx, &run)
	return run, true
}

func (s *RunService) resolveParams(req dto.GenerateRunRequest) (models.RunParams, error) {
	params := s.cfg.Defaults
	if req.Seed != nil {
		params.Seed = *req.Seed
	}
	if req.SchoolYear != "" {
		params.SchoolYear = req.SchoolYear
	}
	if req.SimulationStart != "" {
		start, err := time.Parse(dateLayout, req.SimulationStart)
		if err != nil {
			return params, appErrors.Clone(appErrors.ErrValidation, "simulation_start must be YYYY-MM-DD")
		}
		params.SimulationStart = start
	}
	if req.SimulationDays != nil {
		params.SimulationDays = *req.SimulationDays
	}
	if req.AllocationAttempts != nil {
		params.AllocationAttempts = *req.AllocationAttempts
	}
	params.Import = req.Import
	if _, _, err := SchoolCalendar(params.SchoolYear); err != nil {
		return params, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return params, nil
}

// retryable reports whether a failure may succeed on a later attempt.
// Generation is deterministic, so only infrastructure errors qualify.
func retryable(err error) bool {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case appErrors.ErrAssignmentStall.Code, appErrors.ErrValidation.Code, appErrors.ErrPreconditionFailed.Code:
			return false
		}
	}
	return !errors.Is(err, context.Canceled)
}
