package models

// ScheduleSummary is the schedule-level aggregate written by a population run.
// Optional statistics are nil when their input subset is empty.
type ScheduleSummary struct {
	ScheduleID                int64    `db:"schedule_id" json:"schedule_id"`
	TotalBlocks               int      `db:"total_blocks" json:"total_blocks"`
	ScheduledBlocks           int      `db:"scheduled_blocks" json:"scheduled_blocks"`
	UnscheduledBlocks         int      `db:"unscheduled_blocks" json:"unscheduled_blocks"`
	ImpossibleBlocks          int      `db:"impossible_blocks" json:"impossible_blocks"`
	SchedulingRate            float64  `db:"scheduling_rate" json:"scheduling_rate"`
	PriorityMin               *float64 `db:"priority_min" json:"priority_min,omitempty"`
	PriorityMax               *float64 `db:"priority_max" json:"priority_max,omitempty"`
	PriorityMean              *float64 `db:"priority_mean" json:"priority_mean,omitempty"`
	PriorityMedian            *float64 `db:"priority_median" json:"priority_median,omitempty"`
	PriorityScheduledMean     *float64 `db:"priority_scheduled_mean" json:"priority_scheduled_mean,omitempty"`
	PriorityScheduledMedian   *float64 `db:"priority_scheduled_median" json:"priority_scheduled_median,omitempty"`
	PriorityUnscheduledMean   *float64 `db:"priority_unscheduled_mean" json:"priority_unscheduled_mean,omitempty"`
	PriorityUnscheduledMedian *float64 `db:"priority_unscheduled_median" json:"priority_unscheduled_median,omitempty"`
	VisibilityTotalHours      float64  `db:"visibility_total_hours" json:"visibility_total_hours"`
	VisibilityMeanHours       *float64 `db:"visibility_mean_hours" json:"visibility_mean_hours,omitempty"`
	RequestedTotalHours       float64  `db:"requested_total_hours" json:"requested_total_hours"`
	RequestedMeanHours        *float64 `db:"requested_mean_hours" json:"requested_mean_hours,omitempty"`
	ScheduledTotalHours       float64  `db:"scheduled_total_hours" json:"scheduled_total_hours"`
	GapCount                  *int     `db:"gap_count" json:"gap_count,omitempty"`
	GapMeanHours              *float64 `db:"gap_mean_hours" json:"gap_mean_hours,omitempty"`
	GapMedianHours            *float64 `db:"gap_median_hours" json:"gap_median_hours,omitempty"`
}
