package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/VPRamon/TSI-sub000/internal/models"
)

const validationColumnCount = 10

// ValidationRepository stores validation findings. Findings of a schedule are
// always replaced as a whole.
type ValidationRepository struct {
	db    *sqlx.DB
	chunk ChunkSizer
}

// NewValidationRepository constructs the repository. chunk may be nil.
func NewValidationRepository(db *sqlx.DB, chunk ChunkSizer) *ValidationRepository {
	return &ValidationRepository{db: db, chunk: chunk}
}

func (r *ValidationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// DeleteBySchedule removes every finding of a schedule.
func (r *ValidationRepository) DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID int64) (int64, error) {
	const query = `DELETE FROM schedule_validation_results WHERE schedule_id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, scheduleID)
	if err != nil {
		return 0, fmt.Errorf("delete validation results: %w", err)
	}
	return result.RowsAffected()
}

// InsertBatch writes findings with chunked multi-row inserts.
func (r *ValidationRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, results []models.ValidationResult) (int64, error) {
	if len(results) == 0 {
		return 0, nil
	}
	values := make([][]interface{}, 0, len(results))
	for _, res := range results {
		values = append(values, []interface{}{
			res.ScheduleID, res.BlockID, res.Status, res.IssueType, res.Category, res.Criticality,
			res.FieldName, res.CurrentValue, res.ExpectedValue, res.Description,
		})
	}
	const head = `INSERT INTO schedule_validation_results (schedule_id, scheduling_block_id, status, issue_type, category,
    criticality, field_name, current_value, expected_value, description) VALUES `
	size := chunkSize(r.chunk, validationColumnCount)
	affected, err := bulkExec(ctx, r.exec(exec), head, "", validationColumnCount, size, values)
	if err != nil {
		return affected, fmt.Errorf("insert validation results: %w", err)
	}
	return affected, nil
}

// ListBySchedule returns the findings of a schedule ordered by block.
func (r *ValidationRepository) ListBySchedule(ctx context.Context, scheduleID int64) ([]models.ValidationRow, error) {
	const query = `SELECT v.schedule_id, v.scheduling_block_id, v.status, v.issue_type, v.category, v.criticality,
    v.field_name, v.current_value, v.expected_value, v.description, COALESCE(b.original_block_id, '') AS original_block_id
FROM schedule_validation_results v
JOIN scheduling_blocks b ON b.scheduling_block_id = v.scheduling_block_id
WHERE v.schedule_id = $1
ORDER BY v.scheduling_block_id, v.id`
	var rows []models.ValidationRow
	if err := r.db.SelectContext(ctx, &rows, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list validation results: %w", err)
	}
	return rows, nil
}

// Exists reports whether the schedule has any stored findings.
func (r *ValidationRepository) Exists(ctx context.Context, scheduleID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM schedule_validation_results WHERE schedule_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, scheduleID); err != nil {
		return false, fmt.Errorf("check validation results: %w", err)
	}
	return exists, nil
}
