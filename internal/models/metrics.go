package models

import "time"

// MetricsSnapshot aggregates generator and API counters for the metrics endpoint.
type MetricsSnapshot struct {
	RunsSucceeded            uint64    `json:"runs_succeeded"`
	RunsFailed               uint64    `json:"runs_failed"`
	AverageRunDurationMs     float64   `json:"average_run_duration_ms"`
	SlotShortfall            uint64    `json:"slot_shortfall"`
	UnroomedCourses          uint64    `json:"unroomed_courses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
