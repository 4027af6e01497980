package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/VPRamon/TSI-sub000/internal/models"
)

const analyticsColumnCount = 11

// AnalyticsRepository stores the per-block analytics rows derived by a population run.
type AnalyticsRepository struct {
	db    *sqlx.DB
	chunk ChunkSizer
}

// NewAnalyticsRepository instantiates the repository. chunk may be nil.
func NewAnalyticsRepository(db *sqlx.DB, chunk ChunkSizer) *AnalyticsRepository {
	return &AnalyticsRepository{db: db, chunk: chunk}
}

func (r *AnalyticsRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockSchedule takes a transaction scoped advisory lock on the schedule id.
// It must run inside a transaction; the lock is released on commit or rollback.
func (r *AnalyticsRepository) LockSchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID int64) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, scheduleID); err != nil {
		return fmt.Errorf("lock schedule %d: %w", scheduleID, err)
	}
	return nil
}

// UpsertBatch writes analytics rows, overwriting every column of an existing
// (schedule_id, scheduling_block_id) row.
func (r *AnalyticsRepository) UpsertBatch(ctx context.Context, exec sqlx.ExtContext, rows []models.BlockAnalytics) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		values = append(values, []interface{}{
			row.ScheduleID, row.BlockID, row.PriorityBucket, row.RequestedHours, row.TotalVisibilityHours,
			row.NumVisibilityPeriods, row.ElevationRange, row.Scheduled, row.ScheduledStart, row.ScheduledStop,
			row.ValidationImpossible,
		})
	}

	const head = `INSERT INTO schedule_block_analytics (schedule_id, scheduling_block_id, priority_bucket, requested_hours,
    total_visibility_hours, num_visibility_periods, elevation_range_deg, scheduled, scheduled_start_mjd,
    scheduled_stop_mjd, validation_impossible) VALUES `
	const tail = `
ON CONFLICT (schedule_id, scheduling_block_id) DO UPDATE
SET priority_bucket = EXCLUDED.priority_bucket,
    requested_hours = EXCLUDED.requested_hours,
    total_visibility_hours = EXCLUDED.total_visibility_hours,
    num_visibility_periods = EXCLUDED.num_visibility_periods,
    elevation_range_deg = EXCLUDED.elevation_range_deg,
    scheduled = EXCLUDED.scheduled,
    scheduled_start_mjd = EXCLUDED.scheduled_start_mjd,
    scheduled_stop_mjd = EXCLUDED.scheduled_stop_mjd,
    validation_impossible = EXCLUDED.validation_impossible,
    updated_at = NOW()`
	size := chunkSize(r.chunk, analyticsColumnCount)
	if _, err := bulkExec(ctx, r.exec(exec), head, tail, analyticsColumnCount, size, values); err != nil {
		return fmt.Errorf("upsert block analytics: %w", err)
	}
	return nil
}

// DeleteStale removes analytics rows of blocks that are no longer part of the schedule.
func (r *AnalyticsRepository) DeleteStale(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, keep []int64) (int64, error) {
	const query = `DELETE FROM schedule_block_analytics WHERE schedule_id = $1 AND NOT (scheduling_block_id = ANY($2))`
	result, err := r.exec(exec).ExecContext(ctx, query, scheduleID, pq.Array(keep))
	if err != nil {
		return 0, fmt.Errorf("delete stale block analytics: %w", err)
	}
	return result.RowsAffected()
}

// DeleteBySchedule removes every analytics row of a schedule.
func (r *AnalyticsRepository) DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID int64) (int64, error) {
	const query = `DELETE FROM schedule_block_analytics WHERE schedule_id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, scheduleID)
	if err != nil {
		return 0, fmt.Errorf("delete block analytics: %w", err)
	}
	return result.RowsAffected()
}

// ResetImpossible clears the validation_impossible flag for the whole schedule.
func (r *AnalyticsRepository) ResetImpossible(ctx context.Context, exec sqlx.ExtContext, scheduleID int64) error {
	const query = `UPDATE schedule_block_analytics SET validation_impossible = FALSE WHERE schedule_id = $1 AND validation_impossible`
	if _, err := r.exec(exec).ExecContext(ctx, query, scheduleID); err != nil {
		return fmt.Errorf("reset impossible flags: %w", err)
	}
	return nil
}

// MarkImpossible sets the validation_impossible flag on the given blocks.
func (r *AnalyticsRepository) MarkImpossible(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, blockIDs []int64) error {
	if len(blockIDs) == 0 {
		return nil
	}
	const query = `UPDATE schedule_block_analytics SET validation_impossible = TRUE WHERE schedule_id = $1 AND scheduling_block_id = ANY($2)`
	if _, err := r.exec(exec).ExecContext(ctx, query, scheduleID, pq.Array(blockIDs)); err != nil {
		return fmt.Errorf("mark impossible blocks: %w", err)
	}
	return nil
}

// ListBySchedule returns the analytics rows of a schedule joined with block priority.
func (r *AnalyticsRepository) ListBySchedule(ctx context.Context, scheduleID int64) ([]models.BlockAnalytics, error) {
	const query = `SELECT a.schedule_id, a.scheduling_block_id, COALESCE(b.original_block_id, '') AS original_block_id,
    b.priority, a.priority_bucket, a.requested_hours, a.total_visibility_hours, a.num_visibility_periods,
    a.elevation_range_deg, a.scheduled, a.scheduled_start_mjd, a.scheduled_stop_mjd, a.validation_impossible
FROM schedule_block_analytics a
JOIN scheduling_blocks b ON b.scheduling_block_id = a.scheduling_block_id
WHERE a.schedule_id = $1
ORDER BY a.scheduling_block_id`
	var rows []models.BlockAnalytics
	if err := r.db.SelectContext(ctx, &rows, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list block analytics: %w", err)
	}
	return rows, nil
}

// Exists reports whether any analytics row exists for the schedule.
func (r *AnalyticsRepository) Exists(ctx context.Context, scheduleID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM schedule_block_analytics WHERE schedule_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, scheduleID); err != nil {
		return false, fmt.Errorf("check block analytics: %w", err)
	}
	return exists, nil
}
