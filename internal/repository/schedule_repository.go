package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/VPRamon/TSI-sub000/internal/models"
)

const blockColumnCount = 16

const scheduleInfoColumns = `s.schedule_id, s.schedule_name, s.checksum, s.uploaded_at,
    (SELECT COUNT(*) FROM scheduling_blocks b WHERE b.schedule_id = s.schedule_id) AS block_count,
    EXISTS (SELECT 1 FROM schedule_summary_analytics a WHERE a.schedule_id = s.schedule_id) AS has_analytics`

const blockColumns = `scheduling_block_id, schedule_id, original_block_id, target_ra_deg, target_dec_deg, priority,
    min_observation_sec, requested_duration_sec, min_alt_deg, max_alt_deg, min_az_deg, max_az_deg,
    constraint_start_mjd, constraint_stop_mjd, visibility_periods, scheduled_start_mjd, scheduled_stop_mjd`

// ScheduleRepository persists uploaded schedules and their blocks.
type ScheduleRepository struct {
	db    *sqlx.DB
	chunk ChunkSizer
}

// NewScheduleRepository creates a new schedule repository. chunk may be nil.
func NewScheduleRepository(db *sqlx.DB, chunk ChunkSizer) *ScheduleRepository {
	return &ScheduleRepository{db: db, chunk: chunk}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByChecksum returns the schedule stored under checksum or sql.ErrNoRows.
func (r *ScheduleRepository) FindByChecksum(ctx context.Context, exec sqlx.ExtContext, checksum string) (*models.ScheduleInfo, error) {
	query := `SELECT ` + scheduleInfoColumns + ` FROM schedules s WHERE s.checksum = $1`
	var info models.ScheduleInfo
	if err := sqlx.GetContext(ctx, r.exec(exec), &info, query, checksum); err != nil {
		return nil, err
	}
	return &info, nil
}

// Create inserts the schedule header and fills in the generated id and upload time.
func (r *ScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, row *models.ScheduleRow) error {
	if row == nil {
		return fmt.Errorf("schedule row is nil")
	}
	const query = `
INSERT INTO schedules (schedule_name, checksum, schedule_period, dark_periods)
VALUES ($1, $2, $3, $4)
RETURNING schedule_id, uploaded_at`
	err := r.exec(exec).QueryRowxContext(ctx, query, row.Name, row.Checksum, row.SchedulePeriod, row.DarkPeriods).
		Scan(&row.ID, &row.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// InsertBlocks writes the blocks of a schedule using multi-row inserts sized
// to stay under the bind parameter limit.
func (r *ScheduleRepository) InsertBlocks(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, blocks []models.SchedulingBlock) (int, error) {
	if len(blocks) == 0 {
		return 0, nil
	}
	values := make([][]interface{}, 0, len(blocks))
	for i, block := range blocks {
		row, err := models.NewSchedulingBlockRow(scheduleID, block)
		if err != nil {
			return 0, fmt.Errorf("encode block %d: %w", i, err)
		}
		values = append(values, []interface{}{
			row.ScheduleID, row.OriginalBlockID, row.TargetRA, row.TargetDec, row.Priority,
			row.MinObservationSec, row.RequestedDurationSec, row.MinAlt, row.MaxAlt, row.MinAz, row.MaxAz,
			row.ConstraintStart, row.ConstraintStop, row.VisibilityPeriods, row.ScheduledStart, row.ScheduledStop,
		})
	}

	const head = `INSERT INTO scheduling_blocks (schedule_id, original_block_id, target_ra_deg, target_dec_deg, priority,
    min_observation_sec, requested_duration_sec, min_alt_deg, max_alt_deg, min_az_deg, max_az_deg,
    constraint_start_mjd, constraint_stop_mjd, visibility_periods, scheduled_start_mjd, scheduled_stop_mjd) VALUES `
	size := chunkSize(r.chunk, blockColumnCount)
	if _, err := bulkExec(ctx, r.exec(exec), head, "", blockColumnCount, size, values); err != nil {
		return 0, fmt.Errorf("insert scheduling blocks: %w", err)
	}
	return len(blocks), nil
}

// Get loads the schedule header by id.
func (r *ScheduleRepository) Get(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.ScheduleRow, error) {
	const query = `SELECT schedule_id, schedule_name, checksum, uploaded_at, schedule_period, dark_periods FROM schedules WHERE schedule_id = $1`
	var row models.ScheduleRow
	if err := sqlx.GetContext(ctx, r.exec(exec), &row, query, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// Info loads the list projection of one schedule.
func (r *ScheduleRepository) Info(ctx context.Context, id int64) (*models.ScheduleInfo, error) {
	query := `SELECT ` + scheduleInfoColumns + ` FROM schedules s WHERE s.schedule_id = $1`
	var info models.ScheduleInfo
	if err := r.db.GetContext(ctx, &info, query, id); err != nil {
		return nil, err
	}
	return &info, nil
}

// List returns schedules newest first with the total count.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleInfo, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM schedules s ORDER BY s.uploaded_at DESC, s.schedule_id DESC LIMIT %d OFFSET %d", scheduleInfoColumns, size, offset)
	var schedules []models.ScheduleInfo
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM schedules"); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}
	return schedules, total, nil
}

// ListBlocks returns the typed block rows of a schedule ordered by id.
func (r *ScheduleRepository) ListBlocks(ctx context.Context, exec sqlx.ExtContext, scheduleID int64) ([]models.SchedulingBlockRow, error) {
	query := `SELECT ` + blockColumns + ` FROM scheduling_blocks WHERE schedule_id = $1 ORDER BY scheduling_block_id`
	var rows []models.SchedulingBlockRow
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list scheduling blocks: %w", err)
	}
	return rows, nil
}

// ListMissingSummary returns ids of schedules without a summary row, oldest first.
func (r *ScheduleRepository) ListMissingSummary(ctx context.Context, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT s.schedule_id FROM schedules s
WHERE NOT EXISTS (SELECT 1 FROM schedule_summary_analytics a WHERE a.schedule_id = s.schedule_id)
ORDER BY s.uploaded_at ASC LIMIT $1`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, limit); err != nil {
		return nil, fmt.Errorf("list schedules missing summary: %w", err)
	}
	return ids, nil
}
