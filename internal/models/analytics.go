package models

import "time"

// BlockAnalytics is the denormalised per-block row derived during population.
type BlockAnalytics struct {
	ScheduleID           int64    `db:"schedule_id" json:"schedule_id"`
	BlockID              int64    `db:"scheduling_block_id" json:"scheduling_block_id"`
	OriginalBlockID      string   `db:"original_block_id" json:"original_block_id,omitempty"`
	Priority             float64  `db:"priority" json:"priority"`
	PriorityBucket       int      `db:"priority_bucket" json:"priority_bucket"`
	RequestedHours       float64  `db:"requested_hours" json:"requested_hours"`
	TotalVisibilityHours float64  `db:"total_visibility_hours" json:"total_visibility_hours"`
	NumVisibilityPeriods int      `db:"num_visibility_periods" json:"num_visibility_periods"`
	ElevationRange       *float64 `db:"elevation_range_deg" json:"elevation_range_deg,omitempty"`
	Scheduled            bool     `db:"scheduled" json:"scheduled"`
	ScheduledStart       *float64 `db:"scheduled_start_mjd" json:"scheduled_start_mjd,omitempty"`
	ScheduledStop        *float64 `db:"scheduled_stop_mjd" json:"scheduled_stop_mjd,omitempty"`
	ValidationImpossible bool     `db:"validation_impossible" json:"validation_impossible"`
}

// PriorityRate aggregates blocks sharing the same rounded priority.
type PriorityRate struct {
	Priority            int      `json:"priority"`
	TotalCount          int      `json:"total_count"`
	ScheduledCount      int      `json:"scheduled_count"`
	ImpossibleCount     int      `json:"impossible_count"`
	SchedulingRate      float64  `json:"scheduling_rate"`
	VisibilityMeanHours *float64 `json:"visibility_mean_hours,omitempty"`
	RequestedMeanHours  *float64 `json:"requested_mean_hours,omitempty"`
}

// VisibilityBin aggregates blocks whose total visibility falls in [MinHours, MaxHours).
type VisibilityBin struct {
	Index          int      `json:"bin_index"`
	MinHours       float64  `json:"bin_min_hours"`
	MaxHours       float64  `json:"bin_max_hours"`
	MidHours       float64  `json:"bin_mid_hours"`
	TotalCount     int      `json:"total_count"`
	ScheduledCount int      `json:"scheduled_count"`
	SchedulingRate float64  `json:"scheduling_rate"`
	PriorityMean   *float64 `json:"priority_mean,omitempty"`
}

// AnalyticsStatus reports which derived products exist for a schedule.
type AnalyticsStatus struct {
	ScheduleID    int64 `json:"schedule_id"`
	HasAnalytics  bool  `json:"has_analytics"`
	HasValidation bool  `json:"has_validation"`
	HasSummary    bool  `json:"has_summary"`
}

// PopulateResult describes one completed population run.
type PopulateResult struct {
	ScheduleID       int64         `json:"schedule_id"`
	BlocksProcessed  int           `json:"blocks_processed"`
	FindingsWritten  int           `json:"findings_written"`
	ImpossibleBlocks int           `json:"impossible_blocks"`
	Duration         time.Duration `json:"duration_ns"`
}

// SystemMetrics is a lightweight snapshot of process counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	StorageOperations        uint64    `json:"storage_operations"`
	StorageFailures          uint64    `json:"storage_failures"`
	StorageRetries           uint64    `json:"storage_retries"`
	PopulationRuns           uint64    `json:"population_runs"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
