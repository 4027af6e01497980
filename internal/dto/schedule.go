package dto

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/VPRamon/TSI-sub000/internal/models"
)

// PeriodPayload is a [start, stop) window in MJD.
type PeriodPayload struct {
	Start *float64 `json:"start" yaml:"start" validate:"required"`
	Stop  *float64 `json:"stop" yaml:"stop" validate:"required"`
}

// ConstraintsPayload carries the optional observing constraints of a block.
type ConstraintsPayload struct {
	MinAlt    *float64       `json:"min_alt,omitempty" yaml:"min_alt"`
	MaxAlt    *float64       `json:"max_alt,omitempty" yaml:"max_alt"`
	MinAz     *float64       `json:"min_az,omitempty" yaml:"min_az"`
	MaxAz     *float64       `json:"max_az,omitempty" yaml:"max_az"`
	FixedTime *PeriodPayload `json:"fixed_time,omitempty" yaml:"fixed_time" validate:"omitempty"`
}

// BlockPayload is one scheduling block as submitted by clients. Out-of-range
// coordinates, durations and priorities are accepted and surface in the
// validation report.
type BlockPayload struct {
	OriginalBlockID      string             `json:"original_block_id" yaml:"original_block_id" validate:"max=255"`
	TargetRA             float64            `json:"target_ra" yaml:"target_ra"`
	TargetDec            float64            `json:"target_dec" yaml:"target_dec"`
	Priority             float64            `json:"priority" yaml:"priority"`
	MinObservationSec    float64            `json:"min_observation_sec" yaml:"min_observation_sec"`
	RequestedDurationSec float64            `json:"requested_duration_sec" yaml:"requested_duration_sec"`
	Constraints          ConstraintsPayload `json:"constraints" yaml:"constraints"`
	VisibilityPeriods    []PeriodPayload    `json:"visibility_periods" yaml:"visibility_periods" validate:"dive"`
	ScheduledPeriod      *PeriodPayload     `json:"scheduled_period,omitempty" yaml:"scheduled_period" validate:"omitempty"`
}

// StoreScheduleRequest captures POST /schedules and CLI/drop-folder uploads.
type StoreScheduleRequest struct {
	Name              string          `json:"name" yaml:"name" validate:"required,max=255"`
	SchedulePeriod    *PeriodPayload  `json:"schedule_period,omitempty" yaml:"schedule_period" validate:"omitempty"`
	DarkPeriods       []PeriodPayload `json:"dark_periods" yaml:"dark_periods" validate:"dive"`
	Blocks            []BlockPayload  `json:"blocks" yaml:"blocks" validate:"required,min=1,dive"`
	PopulateAnalytics *bool           `json:"populate_analytics,omitempty" yaml:"populate_analytics"`
}

// Checksum hashes the canonical JSON encoding of the schedule content. The
// populate flag is excluded so it never changes the schedule identity.
func (r StoreScheduleRequest) Checksum() (string, error) {
	content := r
	content.PopulateAnalytics = nil
	raw, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("encode schedule payload: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// ToModel converts the payload into a schedule. Visibility, dark and schedule
// windows must be well formed; scheduled and fixed-time windows are kept
// verbatim so inverted bounds surface as validation findings.
func (r StoreScheduleRequest) ToModel(checksum string) (*models.Schedule, error) {
	schedule := &models.Schedule{Name: r.Name, Checksum: checksum}

	if r.SchedulePeriod != nil {
		p, err := r.SchedulePeriod.strict()
		if err != nil {
			return nil, fmt.Errorf("schedule_period: %w", err)
		}
		schedule.SchedulePeriod = &p
	}

	dark, err := strictPeriods(r.DarkPeriods)
	if err != nil {
		return nil, fmt.Errorf("dark_periods: %w", err)
	}
	schedule.DarkPeriods = dark

	schedule.Blocks = make([]models.SchedulingBlock, 0, len(r.Blocks))
	for i, b := range r.Blocks {
		visibility, err := strictPeriods(b.VisibilityPeriods)
		if err != nil {
			return nil, fmt.Errorf("blocks[%d].visibility_periods: %w", i, err)
		}
		block := models.SchedulingBlock{
			OriginalBlockID:      b.OriginalBlockID,
			TargetRA:             b.TargetRA,
			TargetDec:            b.TargetDec,
			Priority:             b.Priority,
			MinObservationSec:    b.MinObservationSec,
			RequestedDurationSec: b.RequestedDurationSec,
			VisibilityPeriods:    visibility,
			ScheduledPeriod:      b.ScheduledPeriod.raw(),
			Constraints: models.Constraints{
				MinAlt:    b.Constraints.MinAlt,
				MaxAlt:    b.Constraints.MaxAlt,
				MinAz:     b.Constraints.MinAz,
				MaxAz:     b.Constraints.MaxAz,
				FixedTime: b.Constraints.FixedTime.raw(),
			},
		}
		schedule.Blocks = append(schedule.Blocks, block)
	}

	return schedule, nil
}

func (p *PeriodPayload) strict() (models.Period, error) {
	if p == nil || p.Start == nil || p.Stop == nil {
		return models.Period{}, fmt.Errorf("start and stop are required")
	}
	return models.NewPeriod(*p.Start, *p.Stop)
}

func (p *PeriodPayload) raw() *models.Period {
	if p == nil || p.Start == nil || p.Stop == nil {
		return nil
	}
	return &models.Period{Start: *p.Start, Stop: *p.Stop}
}

func strictPeriods(in []PeriodPayload) ([]models.Period, error) {
	out := make([]models.Period, 0, len(in))
	for i := range in {
		p, err := in[i].strict()
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// ListSchedulesQuery binds GET /schedules pagination.
type ListSchedulesQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// PopulateRequest selects synchronous or queued population.
type PopulateRequest struct {
	Async bool `form:"async" json:"async"`
}
