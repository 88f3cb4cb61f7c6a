package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/runs", http.StatusOK, 20*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveDBQuery("import_kurs", 4*time.Millisecond)
	m.ObserveStage("catalog", time.Second)
	m.RecordRun(models.RunStatusSucceeded, 2*time.Second, &models.RunSummary{Teachers: 80, SlotShortfall: 3, UnroomedCourses: 2})
	m.RecordRun(models.RunStatusFailed, time.Second, nil)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.RunsSucceeded)
	assert.Equal(t, uint64(1), snap.RunsFailed)
	assert.InDelta(t, 1500, snap.AverageRunDurationMs, 0.001)
	assert.Equal(t, uint64(3), snap.SlotShortfall)
	assert.Equal(t, uint64(2), snap.UnroomedCourses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.InDelta(t, 20, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(1), snap.DBQueryCount)
	assert.Positive(t, snap.Goroutines)
}

func TestMetricsServiceHandlerExposesGeneratorSeries(t *testing.T) {
	m := NewMetricsService()
	m.ObserveStage("rooms", 10*time.Millisecond)
	m.RecordRun(models.RunStatusSucceeded, time.Second, &models.RunSummary{Teachers: 12})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, series := range []string{"generator_runs_total", "generator_stage_duration_seconds", "generator_teachers 12"} {
		assert.True(t, strings.Contains(body, series), series)
	}
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.RecordCacheOperation(true, time.Millisecond)
		m.ObserveCacheWrite(time.Millisecond)
		m.ObserveDBQuery("x", time.Millisecond)
		m.ObserveStage("x", time.Millisecond)
		m.RecordRun(models.RunStatusSucceeded, time.Second, nil)
	})
	assert.Equal(t, models.MetricsSnapshot{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsServiceTrackQueue(t *testing.T) {
	m := NewMetricsService()
	pending := 3
	require.NoError(t, m.TrackQueue("generation-runs", func() int { return pending }))
	assert.Error(t, m.TrackQueue("generation-runs", func() int { return 0 }))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `generator_queue_pending_jobs{queue="generation-runs"} 3`)

	var nilMetrics *MetricsService
	assert.NoError(t, nilMetrics.TrackQueue("x", func() int { return 0 }))
}
