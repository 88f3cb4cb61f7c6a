package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
	"github.com/noah-isme/sma-timetable-generator/pkg/cache"
	appErrors "github.com/noah-isme/sma-timetable-generator/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RunCacheService keeps finished run metadata in Redis so it survives the
// in-memory store's expiry and process restarts.
type RunCacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewRunCacheService constructs the run cache.
func NewRunCacheService(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *RunCacheService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunCacheService{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *RunCacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Lookup returns the cached run, or false on a miss or when caching is off.
func (s *RunCacheService) Lookup(ctx context.Context, runID string) (*models.GenerationRun, bool) {
	if !s.Enabled() {
		return nil, false
	}
	start := time.Now()
	var run models.GenerationRun
	err := s.repo.Get(ctx, cache.RunKey(runID), &run)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("run cache get failed", zap.String("run_id", runID), zap.Error(err))
		}
		return nil, false
	}
	return &run, true
}

// Store caches a finished run. Unfinished runs are not cached.
func (s *RunCacheService) Store(ctx context.Context, run *models.GenerationRun) error {
	if !s.Enabled() || run == nil || !run.Status.Finished() {
		return nil
	}
	start := time.Now()
	err := s.repo.Set(ctx, cache.RunKey(run.ID), run, s.ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("run cache set failed", zap.String("run_id", run.ID), zap.Error(err))
	}
	return err
}

// Evict drops a run from the cache.
func (s *RunCacheService) Evict(ctx context.Context, runID string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.Delete(ctx, cache.RunKey(runID)); err != nil {
		s.logger.Warn("run cache evict failed", zap.String("run_id", runID), zap.Error(err))
		return err
	}
	return nil
}
