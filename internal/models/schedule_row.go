package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduleRow is the stored form of a schedule header.
type ScheduleRow struct {
	ID             int64              `db:"schedule_id"`
	Name           string             `db:"schedule_name"`
	Checksum       string             `db:"checksum"`
	UploadedAt     time.Time          `db:"uploaded_at"`
	SchedulePeriod types.NullJSONText `db:"schedule_period"`
	DarkPeriods    types.JSONText     `db:"dark_periods"`
}

// NewScheduleRow encodes a schedule header for storage.
func NewScheduleRow(schedule Schedule) (ScheduleRow, error) {
	row := ScheduleRow{
		Name:       schedule.Name,
		Checksum:   schedule.Checksum,
		UploadedAt: schedule.UploadedAt,
	}
	dark := schedule.DarkPeriods
	if dark == nil {
		dark = []Period{}
	}
	raw, err := json.Marshal(dark)
	if err != nil {
		return ScheduleRow{}, fmt.Errorf("encode dark periods: %w", err)
	}
	row.DarkPeriods = types.JSONText(raw)
	if schedule.SchedulePeriod != nil {
		raw, err := json.Marshal(schedule.SchedulePeriod)
		if err != nil {
			return ScheduleRow{}, fmt.Errorf("encode schedule period: %w", err)
		}
		row.SchedulePeriod = types.NullJSONText{JSONText: types.JSONText(raw), Valid: true}
	}
	return row, nil
}

// Schedule decodes the header. Unlike block visibility, a corrupt
// schedule-level window is an error.
func (r ScheduleRow) Schedule() (Schedule, error) {
	schedule := Schedule{
		ID:          r.ID,
		Name:        r.Name,
		Checksum:    r.Checksum,
		UploadedAt:  r.UploadedAt,
		DarkPeriods: []Period{},
	}
	if len(r.DarkPeriods) > 0 {
		if err := json.Unmarshal(r.DarkPeriods, &schedule.DarkPeriods); err != nil {
			return Schedule{}, fmt.Errorf("decode dark periods of schedule %d: %w", r.ID, err)
		}
	}
	for _, p := range schedule.DarkPeriods {
		if !p.Valid() {
			return Schedule{}, fmt.Errorf("schedule %d has an inverted dark period [%v, %v]", r.ID, p.Start, p.Stop)
		}
	}
	if r.SchedulePeriod.Valid && string(r.SchedulePeriod.JSONText) != "null" {
		var window Period
		if err := json.Unmarshal(r.SchedulePeriod.JSONText, &window); err != nil {
			return Schedule{}, fmt.Errorf("decode schedule period of schedule %d: %w", r.ID, err)
		}
		if !window.Valid() {
			return Schedule{}, fmt.Errorf("schedule %d has an inverted schedule period [%v, %v]", r.ID, window.Start, window.Stop)
		}
		schedule.SchedulePeriod = &window
	}
	return schedule, nil
}

// SchedulingBlockRow is the stored form of a scheduling block. Visibility
// periods stay raw so that the caller decides how to treat corrupt input.
type SchedulingBlockRow struct {
	ID                   int64          `db:"scheduling_block_id"`
	ScheduleID           int64          `db:"schedule_id"`
	OriginalBlockID      *string        `db:"original_block_id"`
	TargetRA             float64        `db:"target_ra_deg"`
	TargetDec            float64        `db:"target_dec_deg"`
	Priority             float64        `db:"priority"`
	MinObservationSec    float64        `db:"min_observation_sec"`
	RequestedDurationSec float64        `db:"requested_duration_sec"`
	MinAlt               *float64       `db:"min_alt_deg"`
	MaxAlt               *float64       `db:"max_alt_deg"`
	MinAz                *float64       `db:"min_az_deg"`
	MaxAz                *float64       `db:"max_az_deg"`
	ConstraintStart      *float64       `db:"constraint_start_mjd"`
	ConstraintStop       *float64       `db:"constraint_stop_mjd"`
	VisibilityPeriods    types.JSONText `db:"visibility_periods"`
	ScheduledStart       *float64       `db:"scheduled_start_mjd"`
	ScheduledStop        *float64       `db:"scheduled_stop_mjd"`
}

// NewSchedulingBlockRow encodes a block for storage under scheduleID.
func NewSchedulingBlockRow(scheduleID int64, block SchedulingBlock) (SchedulingBlockRow, error) {
	periods := block.VisibilityPeriods
	if periods == nil {
		periods = []Period{}
	}
	raw, err := json.Marshal(periods)
	if err != nil {
		return SchedulingBlockRow{}, fmt.Errorf("encode visibility periods: %w", err)
	}

	row := SchedulingBlockRow{
		ScheduleID:           scheduleID,
		TargetRA:             block.TargetRA,
		TargetDec:            block.TargetDec,
		Priority:             block.Priority,
		MinObservationSec:    block.MinObservationSec,
		RequestedDurationSec: block.RequestedDurationSec,
		MinAlt:               block.Constraints.MinAlt,
		MaxAlt:               block.Constraints.MaxAlt,
		MinAz:                block.Constraints.MinAz,
		MaxAz:                block.Constraints.MaxAz,
		VisibilityPeriods:    types.JSONText(raw),
	}
	if block.OriginalBlockID != "" {
		id := block.OriginalBlockID
		row.OriginalBlockID = &id
	}
	if w := block.Constraints.FixedTime; w != nil {
		start, stop := w.Start, w.Stop
		row.ConstraintStart, row.ConstraintStop = &start, &stop
	}
	if s := block.ScheduledPeriod; s != nil {
		start, stop := s.Start, s.Stop
		row.ScheduledStart, row.ScheduledStop = &start, &stop
	}
	return row, nil
}

// Block rebuilds the domain block using already decoded visibility periods.
// Windows with a missing bound are dropped.
func (r SchedulingBlockRow) Block(visibility []Period) SchedulingBlock {
	block := SchedulingBlock{
		ID:                   r.ID,
		TargetRA:             r.TargetRA,
		TargetDec:            r.TargetDec,
		Priority:             r.Priority,
		MinObservationSec:    r.MinObservationSec,
		RequestedDurationSec: r.RequestedDurationSec,
		Constraints: Constraints{
			MinAlt: r.MinAlt,
			MaxAlt: r.MaxAlt,
			MinAz:  r.MinAz,
			MaxAz:  r.MaxAz,
		},
		VisibilityPeriods: visibility,
	}
	if r.OriginalBlockID != nil {
		block.OriginalBlockID = *r.OriginalBlockID
	}
	if r.ConstraintStart != nil && r.ConstraintStop != nil {
		block.Constraints.FixedTime = &Period{Start: *r.ConstraintStart, Stop: *r.ConstraintStop}
	}
	if r.ScheduledStart != nil && r.ScheduledStop != nil {
		block.ScheduledPeriod = &Period{Start: *r.ScheduledStart, Stop: *r.ScheduledStop}
	}
	return block
}
