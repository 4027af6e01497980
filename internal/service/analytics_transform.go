package service

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/VPRamon/TSI-sub000/internal/models"
)

// PriorityBucket classifies a priority on the fixed absolute scale
// <2.5 -> 1, <5 -> 2, <7.5 -> 3, otherwise 4.
func PriorityBucket(priority float64) int {
	switch {
	case priority < 2.5:
		return 1
	case priority < 5.0:
		return 2
	case priority < 7.5:
		return 3
	default:
		return 4
	}
}

// ComputeBlockAnalytics derives the denormalised analytics row for one block.
// It never fails; ValidationImpossible is left false and set once findings
// are known.
func ComputeBlockAnalytics(scheduleID int64, block models.SchedulingBlock) models.BlockAnalytics {
	row := models.BlockAnalytics{
		ScheduleID:           scheduleID,
		BlockID:              block.ID,
		OriginalBlockID:      block.OriginalBlockID,
		Priority:             block.Priority,
		PriorityBucket:       PriorityBucket(block.Priority),
		RequestedHours:       block.RequestedHours(),
		NumVisibilityPeriods: len(block.VisibilityPeriods),
	}

	for _, p := range block.VisibilityPeriods {
		row.TotalVisibilityHours += p.DurationHours()
	}

	if elevation, ok := block.Constraints.ElevationRange(); ok {
		row.ElevationRange = &elevation
	}

	if block.ScheduledPeriod != nil {
		start, stop := block.ScheduledPeriod.Start, block.ScheduledPeriod.Stop
		row.Scheduled = true
		row.ScheduledStart = &start
		row.ScheduledStop = &stop
	}

	return row
}

// DecodeVisibilityPeriods parses a stored visibility period list. Corrupt
// input, or any inverted period, degrades to an empty list so that a single
// bad block cannot stop analytics for its schedule.
func DecodeVisibilityPeriods(raw []byte, blockID int64, logger *zap.Logger) []models.Period {
	if len(raw) == 0 || string(raw) == "null" {
		return []models.Period{}
	}
	var periods []models.Period
	if err := json.Unmarshal(raw, &periods); err != nil {
		warnCorruptPeriods(logger, blockID, err.Error())
		return []models.Period{}
	}
	for _, p := range periods {
		if !p.Valid() {
			warnCorruptPeriods(logger, blockID, "period start must be before stop")
			return []models.Period{}
		}
	}
	return periods
}

func warnCorruptPeriods(logger *zap.Logger, blockID int64, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("visibility periods unreadable, treating block as having none",
		zap.Int64("scheduling_block_id", blockID),
		zap.String("reason", reason),
	)
}
