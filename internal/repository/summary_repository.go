package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/VPRamon/TSI-sub000/internal/models"
)

// SummaryRepository stores the one summary row per schedule.
type SummaryRepository struct {
	db *sqlx.DB
}

// NewSummaryRepository constructs the repository.
func NewSummaryRepository(db *sqlx.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func (r *SummaryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert writes the summary, replacing the existing row of the schedule.
func (r *SummaryRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, summary *models.ScheduleSummary) error {
	if summary == nil {
		return fmt.Errorf("summary is nil")
	}
	const query = `
INSERT INTO schedule_summary_analytics (schedule_id, total_blocks, scheduled_blocks, unscheduled_blocks, impossible_blocks,
    scheduling_rate, priority_min, priority_max, priority_mean, priority_median, priority_scheduled_mean,
    priority_scheduled_median, priority_unscheduled_mean, priority_unscheduled_median, visibility_total_hours,
    visibility_mean_hours, requested_total_hours, requested_mean_hours, scheduled_total_hours, gap_count,
    gap_mean_hours, gap_median_hours)
VALUES (:schedule_id, :total_blocks, :scheduled_blocks, :unscheduled_blocks, :impossible_blocks,
    :scheduling_rate, :priority_min, :priority_max, :priority_mean, :priority_median, :priority_scheduled_mean,
    :priority_scheduled_median, :priority_unscheduled_mean, :priority_unscheduled_median, :visibility_total_hours,
    :visibility_mean_hours, :requested_total_hours, :requested_mean_hours, :scheduled_total_hours, :gap_count,
    :gap_mean_hours, :gap_median_hours)
ON CONFLICT (schedule_id) DO UPDATE
SET total_blocks = EXCLUDED.total_blocks,
    scheduled_blocks = EXCLUDED.scheduled_blocks,
    unscheduled_blocks = EXCLUDED.unscheduled_blocks,
    impossible_blocks = EXCLUDED.impossible_blocks,
    scheduling_rate = EXCLUDED.scheduling_rate,
    priority_min = EXCLUDED.priority_min,
    priority_max = EXCLUDED.priority_max,
    priority_mean = EXCLUDED.priority_mean,
    priority_median = EXCLUDED.priority_median,
    priority_scheduled_mean = EXCLUDED.priority_scheduled_mean,
    priority_scheduled_median = EXCLUDED.priority_scheduled_median,
    priority_unscheduled_mean = EXCLUDED.priority_unscheduled_mean,
    priority_unscheduled_median = EXCLUDED.priority_unscheduled_median,
    visibility_total_hours = EXCLUDED.visibility_total_hours,
    visibility_mean_hours = EXCLUDED.visibility_mean_hours,
    requested_total_hours = EXCLUDED.requested_total_hours,
    requested_mean_hours = EXCLUDED.requested_mean_hours,
    scheduled_total_hours = EXCLUDED.scheduled_total_hours,
    gap_count = EXCLUDED.gap_count,
    gap_mean_hours = EXCLUDED.gap_mean_hours,
    gap_median_hours = EXCLUDED.gap_median_hours,
    updated_at = NOW()`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, summary); err != nil {
		return fmt.Errorf("upsert schedule summary: %w", err)
	}
	return nil
}

// Get loads the summary of a schedule or returns sql.ErrNoRows.
func (r *SummaryRepository) Get(ctx context.Context, scheduleID int64) (*models.ScheduleSummary, error) {
	const query = `SELECT schedule_id, total_blocks, scheduled_blocks, unscheduled_blocks, impossible_blocks, scheduling_rate,
    priority_min, priority_max, priority_mean, priority_median, priority_scheduled_mean, priority_scheduled_median,
    priority_unscheduled_mean, priority_unscheduled_median, visibility_total_hours, visibility_mean_hours,
    requested_total_hours, requested_mean_hours, scheduled_total_hours, gap_count, gap_mean_hours, gap_median_hours
FROM schedule_summary_analytics WHERE schedule_id = $1`
	var summary models.ScheduleSummary
	if err := r.db.GetContext(ctx, &summary, query, scheduleID); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Delete removes the summary of a schedule.
func (r *SummaryRepository) Delete(ctx context.Context, exec sqlx.ExtContext, scheduleID int64) (int64, error) {
	result, err := r.exec(exec).ExecContext(ctx, `DELETE FROM schedule_summary_analytics WHERE schedule_id = $1`, scheduleID)
	if err != nil {
		return 0, fmt.Errorf("delete schedule summary: %w", err)
	}
	return result.RowsAffected()
}

// Exists reports whether the schedule has a summary row.
func (r *SummaryRepository) Exists(ctx context.Context, scheduleID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM schedule_summary_analytics WHERE schedule_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, scheduleID); err != nil {
		return false, fmt.Errorf("check schedule summary: %w", err)
	}
	return exists, nil
}
