package models

import "time"

// SystemMetrics is an aggregated counter snapshot for the admin API.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CoursesProcessed         uint64    `json:"courses_processed"`
	CoursesSkipped           uint64    `json:"courses_skipped"`
	CoursesFailed            uint64    `json:"courses_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
