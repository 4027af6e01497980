package models

import "time"

// Constraints bound where and when a block may be observed. Angles are in
// degrees. The fixed-time window is kept as raw bounds so that an inverted
// window reaches validation instead of failing the load.
type Constraints struct {
	MinAlt    *float64 `json:"min_alt,omitempty"`
	MaxAlt    *float64 `json:"max_alt,omitempty"`
	MinAz     *float64 `json:"min_az,omitempty"`
	MaxAz     *float64 `json:"max_az,omitempty"`
	FixedTime *Period  `json:"fixed_time,omitempty"`
}

// ElevationRange returns max_alt - min_alt when both bounds are present.
func (c Constraints) ElevationRange() (float64, bool) {
	if c.MinAlt == nil || c.MaxAlt == nil {
		return 0, false
	}
	return *c.MaxAlt - *c.MinAlt, true
}

// SchedulingBlock is one observation request. Durations are in seconds.
type SchedulingBlock struct {
	ID                   int64       `json:"id"`
	OriginalBlockID      string      `json:"original_block_id,omitempty"`
	TargetRA             float64     `json:"target_ra"`
	TargetDec            float64     `json:"target_dec"`
	Constraints          Constraints `json:"constraints"`
	Priority             float64     `json:"priority"`
	MinObservationSec    float64     `json:"min_observation_sec"`
	RequestedDurationSec float64     `json:"requested_duration_sec"`
	VisibilityPeriods    []Period    `json:"visibility_periods"`
	ScheduledPeriod      *Period     `json:"scheduled_period,omitempty"`
}

// RequestedHours converts the requested duration to hours.
func (b SchedulingBlock) RequestedHours() float64 {
	return b.RequestedDurationSec / 3600.0
}

// MinObservationHours converts the minimum observation duration to hours.
func (b SchedulingBlock) MinObservationHours() float64 {
	return b.MinObservationSec / 3600.0
}

// Schedule is an uploaded set of scheduling blocks. Checksum is the SHA-256
// of the submitted payload and identifies re-uploads of the same content.
type Schedule struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Checksum       string            `json:"checksum"`
	UploadedAt     time.Time         `json:"uploaded_at"`
	SchedulePeriod *Period           `json:"schedule_period,omitempty"`
	DarkPeriods    []Period          `json:"dark_periods"`
	Blocks         []SchedulingBlock `json:"blocks,omitempty"`
}

// ScheduleInfo is the list projection of a stored schedule.
type ScheduleInfo struct {
	ID           int64     `db:"schedule_id" json:"id"`
	Name         string    `db:"schedule_name" json:"name"`
	Checksum     string    `db:"checksum" json:"checksum"`
	UploadedAt   time.Time `db:"uploaded_at" json:"uploaded_at"`
	BlockCount   int       `db:"block_count" json:"block_count"`
	HasAnalytics bool      `db:"has_analytics" json:"has_analytics"`
}

// StoreResult reports the identity resolved by a store call.
type StoreResult struct {
	ScheduleID int64  `json:"schedule_id"`
	Checksum   string `json:"checksum"`
	Created    bool   `json:"created"`
	BlockCount int    `json:"block_count"`
	JobID      string `json:"job_id,omitempty"`
}

// ScheduleFilter paginates schedule listings.
type ScheduleFilter struct {
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
