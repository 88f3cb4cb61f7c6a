package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
	"github.com/noah-isme/sma-timetable-generator/pkg/cache"
	appErrors "github.com/noah-isme/sma-timetable-generator/pkg/errors"
)

type cacheRepoStub struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	if s.getErr != nil {
		return s.getErr
	}
	raw, ok := s.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[key] = raw
	s.ttls[key] = ttl
	return nil
}

func (s *cacheRepoStub) Delete(ctx context.Context, key string) error {
	delete(s.data, key)
	return nil
}

func TestRunCacheServiceStoresFinishedRuns(t *testing.T) {
	repo := newCacheRepoStub()
	metrics := NewMetricsService()
	svc := NewRunCacheService(repo, metrics, time.Hour, nil, true)
	ctx := context.Background()

	require.NoError(t, svc.Store(ctx, &models.GenerationRun{ID: "queued", Status: models.RunStatusQueued}))
	assert.Empty(t, repo.data)

	run := &models.GenerationRun{ID: "done", Status: models.RunStatusSucceeded, Summary: &models.RunSummary{Courses: 12}}
	require.NoError(t, svc.Store(ctx, run))
	assert.Equal(t, time.Hour, repo.ttls[cache.RunKey("done")])

	cached, ok := svc.Lookup(ctx, "done")
	require.True(t, ok)
	assert.Equal(t, 12, cached.Summary.Courses)

	_, ok = svc.Lookup(ctx, "missing")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), metrics.Snapshot().CacheHits)
	assert.Equal(t, uint64(1), metrics.Snapshot().CacheMisses)

	require.NoError(t, svc.Evict(ctx, "done"))
	_, ok = svc.Lookup(ctx, "done")
	assert.False(t, ok)
}

func TestRunCacheServiceDisabled(t *testing.T) {
	repo := newCacheRepoStub()
	svc := NewRunCacheService(repo, nil, 0, nil, false)

	assert.False(t, svc.Enabled())
	require.NoError(t, svc.Store(context.Background(), &models.GenerationRun{ID: "x", Status: models.RunStatusFailed}))
	assert.Empty(t, repo.data)

	var nilSvc *RunCacheService
	_, ok := nilSvc.Lookup(context.Background(), "x")
	assert.False(t, ok)
	assert.NoError(t, nilSvc.Evict(context.Background(), "x"))
}

func TestRunCacheServiceBackendErrorIsAMiss(t *testing.T) {
	repo := newCacheRepoStub()
	repo.getErr = errors.New("connection refused")
	svc := NewRunCacheService(repo, nil, time.Minute, nil, true)

	_, ok := svc.Lookup(context.Background(), "any")
	assert.False(t, ok)
}
