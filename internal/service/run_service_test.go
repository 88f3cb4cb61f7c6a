package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-generator/internal/dto"
	"github.com/noah-isme/sma-timetable-generator/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-generator/pkg/errors"
	"github.com/noah-isme/sma-timetable-generator/pkg/export"
	"github.com/noah-isme/sma-timetable-generator/pkg/jobs"
)

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type generatorStub struct {
	err    error
	params []models.RunParams
}

func (g *generatorStub) Generate(ctx context.Context, params models.RunParams) (*GenerationResult, error) {
	g.params = append(g.params, params)
	if g.err != nil {
		return nil, g.err
	}
	return &GenerationResult{Timetable: sampleTimetable(), Summary: models.RunSummary{Courses: 2, Teachers: 1}}, nil
}

type exporterStub struct {
	dir     string
	err     error
	deleted []string
	token   string
	runID   string
}

func (e *exporterStub) Export(ctx context.Context, runID string, tt *models.Timetable) ([]models.RunArtifact, error) {
	if e.err != nil {
		return nil, e.err
	}
	path := filepath.Join(e.dir, "kurs.csv")
	if err := os.WriteFile(path, []byte("id\n1\n"), 0o644); err != nil {
		return nil, err
	}
	e.runID = runID
	return []models.RunArtifact{{Name: "kurs.csv", Path: "kurs.csv", URL: "/api/v1/downloads/" + e.token}}, nil
}

func (e *exporterStub) ParseToken(token string, allowExpired bool) (string, string, time.Time, error) {
	if token != e.token {
		return "", "", time.Time{}, errors.New("invalid token signature")
	}
	return e.runID, "kurs.csv", time.Now().Add(time.Hour), nil
}

func (e *exporterStub) Open(relPath string) (*os.File, error) {
	return os.Open(filepath.Join(e.dir, relPath))
}

func (e *exporterStub) Delete(runID string) error {
	e.deleted = append(e.deleted, runID)
	return nil
}

func (e *exporterStub) Cleanup(ttl time.Duration) ([]string, error) {
	return nil, nil
}

type importerStub struct {
	sets int
	err  error
}

func (i *importerStub) Import(ctx context.Context, sets []export.Dataset) (*ImportReport, error) {
	i.sets = len(sets)
	return &ImportReport{}, i.err
}

type runServiceFixture struct {
	svc       *RunService
	queue     *queueStub
	generator *generatorStub
	exporter  *exporterStub
	importer  *importerStub
	cache     *cacheRepoStub
}

func newRunServiceFixture(t *testing.T, withImporter bool) *runServiceFixture {
	t.Helper()
	f := &runServiceFixture{
		queue:     &queueStub{},
		generator: &generatorStub{},
		exporter:  &exporterStub{dir: t.TempDir(), token: "tok"},
		cache:     newCacheRepoStub(),
	}
	var importer DatasetImporter
	if withImporter {
		f.importer = &importerStub{}
		importer = f.importer
	}
	cacheSvc := NewRunCacheService(f.cache, nil, time.Hour, nil, true)
	f.svc = NewRunService(f.queue, f.generator, f.exporter, importer, cacheSvc, NewMetricsService(), nil, nil, RunServiceConfig{
		Defaults:   testRunParams(42),
		ResultTTL:  time.Hour,
		MaxRetries: 1,
	})
	return f
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int { return &v }

func TestRunServiceCreateAppliesDefaults(t *testing.T) {
	f := newRunServiceFixture(t, false)

	run, err := f.svc.Create(context.Background(), dto.GenerateRunRequest{Seed: int64Ptr(9), SimulationDays: intPtr(3)}, "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusQueued, run.Status)
	assert.Equal(t, int64(9), run.Params.Seed)
	assert.Equal(t, 3, run.Params.SimulationDays)
	assert.Equal(t, "2026/27", run.Params.SchoolYear)
	assert.Equal(t, "req-1", run.RequestID)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, run.ID, f.queue.jobs[0].ID)
	assert.Equal(t, RunJobType, f.queue.jobs[0].Type)
}

func TestRunServiceCreateValidation(t *testing.T) {
	f := newRunServiceFixture(t, false)
	cases := []dto.GenerateRunRequest{
		{SchoolYear: "2026-27"},
		{SchoolYear: "2026/29"},
		{SimulationStart: "03.08.2026"},
		{SimulationDays: intPtr(-1)},
		{AllocationAttempts: intPtr(5000)},
	}
	for _, req := range cases {
		_, err := f.svc.Create(context.Background(), req, "")
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr), "%+v", req)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	}
	assert.Empty(t, f.queue.jobs)
}

func TestRunServiceCreateImportRequiresDatabase(t *testing.T) {
	f := newRunServiceFixture(t, false)

	_, err := f.svc.Create(context.Background(), dto.GenerateRunRequest{Import: true}, "")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestRunServiceCreateEnqueueFailure(t *testing.T) {
	f := newRunServiceFixture(t, false)
	f.queue.err = errors.New("queue stopped")

	_, err := f.svc.Create(context.Background(), dto.GenerateRunRequest{}, "")
	require.Error(t, err)

	runs, _, err := f.svc.List(context.Background(), dto.RunListQuery{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)
}

func TestRunServiceHandleSuccess(t *testing.T) {
	f := newRunServiceFixture(t, true)
	run, err := f.svc.Create(context.Background(), dto.GenerateRunRequest{Import: true}, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Handle(context.Background(), f.queue.jobs[0]))

	got, err := f.svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 2, got.Summary.Courses)
	assert.Len(t, got.Artifacts, 1)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.FinishedAt)
	assert.Equal(t, len(export.TableOrder), f.importer.sets)
	assert.Contains(t, f.cache.data, "timetable:run:"+run.ID)

	download, err := f.svc.ResolveDownload(context.Background(), "tok")
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "kurs.csv", download.Filename)
}

func TestRunServiceHandleRetriesInfrastructureErrors(t *testing.T) {
	f := newRunServiceFixture(t, false)
	run, err := f.svc.Create(context.Background(), dto.GenerateRunRequest{}, "")
	require.NoError(t, err)
	f.exporter.err = errors.New("disk full")

	job := f.queue.jobs[0]
	require.Error(t, f.svc.Handle(context.Background(), job))
	got, _ := f.svc.Get(context.Background(), run.ID)
	assert.Equal(t, models.RunStatusQueued, got.Status)

	job.Attempt++
	require.NoError(t, f.svc.Handle(context.Background(), job))
	got, _ = f.svc.Get(context.Background(), run.ID)
	assert.Equal(t, models.RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, "disk full")
}

func TestRunServiceHandleStallIsNotRetried(t *testing.T) {
	f := newRunServiceFixture(t, false)
	run, err := f.svc.Create(context.Background(), dto.GenerateRunRequest{}, "")
	require.NoError(t, err)
	f.generator.err = appErrors.Clone(appErrors.ErrAssignmentStall, "no placeable course left for subject SP")

	require.NoError(t, f.svc.Handle(context.Background(), f.queue.jobs[0]))
	got, _ := f.svc.Get(context.Background(), run.ID)
	assert.Equal(t, models.RunStatusFailed, got.Status)

	f.exporter.runID = run.ID
	_, err = f.svc.ResolveDownload(context.Background(), "tok")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrRunFailed.Code, appErr.Code)
}

func TestRunServiceResolveDownloadRejectsBadToken(t *testing.T) {
	f := newRunServiceFixture(t, false)

	_, err := f.svc.ResolveDownload(context.Background(), "forged")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestRunServiceDelete(t *testing.T) {
	f := newRunServiceFixture(t, false)
	run, err := f.svc.Create(context.Background(), dto.GenerateRunRequest{}, "")
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), run.ID)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	require.NoError(t, f.svc.Handle(context.Background(), f.queue.jobs[0]))
	require.NoError(t, f.svc.Delete(context.Background(), run.ID))
	assert.Equal(t, []string{run.ID}, f.exporter.deleted)

	_, err = f.svc.Get(context.Background(), run.ID)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRunServiceGetFallsBackToCache(t *testing.T) {
	f := newRunServiceFixture(t, false)
	require.NoError(t, f.cache.Set(context.Background(), "timetable:run:old", models.GenerationRun{ID: "old", Status: models.RunStatusSucceeded}, time.Hour))

	run, err := f.svc.Get(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
}

func TestRunServiceListPaginates(t *testing.T) {
	f := newRunServiceFixture(t, false)
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(context.Background(), dto.GenerateRunRequest{}, "")
		require.NoError(t, err)
	}

	runs, page, err := f.svc.List(context.Background(), dto.RunListQuery{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, 3, page.TotalCount)

	runs, _, err = f.svc.List(context.Background(), dto.RunListQuery{Status: string(models.RunStatusSucceeded)})
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, _, err = f.svc.List(context.Background(), dto.RunListQuery{Status: "DONE"})
	assert.Error(t, err)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(errors.New("connection reset")))
	assert.False(t, retryable(context.Canceled))
	assert.False(t, retryable(appErrors.Clone(appErrors.ErrValidation, "bad")))
	assert.False(t, retryable(appErrors.Clone(appErrors.ErrAssignmentStall, "stall")))
	assert.True(t, retryable(appErrors.Wrap(errors.New("tx"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "import")))
}
