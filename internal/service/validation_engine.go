package service

import (
	"fmt"
	"strconv"

	"github.com/VPRamon/TSI-sub000/internal/models"
)

const (
	// minVisibilityHours is the threshold under which a block counts as never visible.
	minVisibilityHours = 0.001
	// fixedWindowToleranceHours absorbs rounding (about 3.6s) when comparing windows to requests.
	fixedWindowToleranceHours = 0.001
	// scheduledOverrunFactor allows a 1% overrun of the requested duration.
	scheduledOverrunFactor = 1.01
	// windowEdgeToleranceDays allows about 8.64s of slack at fixed-window edges.
	windowEdgeToleranceDays = 0.0001
	// narrowElevationDeg flags elevation windows too narrow to schedule comfortably.
	narrowElevationDeg = 5.0
)

// ValidateBlock runs every feasibility and consistency rule against one block
// and returns its findings in rule order. The list is never empty: a block
// that passes every rule yields a single valid finding. Findings are data;
// an impossible block is a normal result.
func ValidateBlock(scheduleID int64, block models.SchedulingBlock, analytics models.BlockAnalytics) []models.ValidationResult {
	v := blockValidator{scheduleID: scheduleID, blockID: block.ID}

	visibility := analytics.TotalVisibilityHours
	requestedHours := block.RequestedHours()

	if visibility < minVisibilityHours {
		v.impossible("No visibility periods available", models.IssueCategoryVisibility,
			"This block has no time windows when it is visible from the telescope site",
			"total_visibility_hours", fmt.Sprintf("%.6f", visibility), "> 0")
	} else {
		if visibility < requestedHours {
			v.impossible("Visibility less than requested duration", models.IssueCategoryVisibility,
				fmt.Sprintf("Needs %.2fh but only %.2fh available", requestedHours, visibility),
				"total_visibility_hours", fmt.Sprintf("%.2f", visibility), fmt.Sprintf(">= %.2f", requestedHours))
		}
		minObsHours := block.MinObservationHours()
		if visibility < minObsHours {
			v.impossible("Visibility less than minimum observation time", models.IssueCategoryVisibility,
				fmt.Sprintf("Minimum %.2fh required but only %.2fh available", minObsHours, visibility),
				"total_visibility_hours", fmt.Sprintf("%.2f", visibility), fmt.Sprintf(">= %.2f", minObsHours))
		}
	}

	if block.Priority < 0 {
		v.error("Negative priority", models.IssueCategoryPriority, models.CriticalityHigh,
			"Priority values must be non-negative",
			"priority", fmt.Sprintf("%.2f", block.Priority), ">= 0")
	}

	if block.RequestedDurationSec < 0 {
		v.error("Negative requested duration", models.IssueCategoryDuration, models.CriticalityHigh,
			"Requested duration must be a positive value",
			"requested_duration_sec", seconds(block.RequestedDurationSec), "> 0")
	}

	if block.MinObservationSec < 0 {
		v.error("Negative minimum observation time", models.IssueCategoryDuration, models.CriticalityHigh,
			"Minimum observation time must be a positive value",
			"min_observation_sec", seconds(block.MinObservationSec), "> 0")
	}

	if block.MinObservationSec > block.RequestedDurationSec {
		v.error("Minimum observation time exceeds requested duration", models.IssueCategoryDuration, models.CriticalityHigh,
			fmt.Sprintf("Minimum observation time (%.2fh) cannot be greater than requested duration (%.2fh)",
				block.MinObservationHours(), requestedHours),
			"min_observation_sec", seconds(block.MinObservationSec), "<= "+seconds(block.RequestedDurationSec))
	}

	if block.TargetRA < 0 || block.TargetRA >= 360 {
		v.error("Invalid Right Ascension", models.IssueCategoryCoordinate, models.CriticalityMedium,
			fmt.Sprintf("Right Ascension %.2f° is outside valid range", block.TargetRA),
			"target_ra_deg", fmt.Sprintf("%.2f", block.TargetRA), "0-360")
	}

	if block.TargetDec < -90 || block.TargetDec > 90 {
		v.error("Invalid Declination", models.IssueCategoryCoordinate, models.CriticalityMedium,
			fmt.Sprintf("Declination %.2f° is outside valid range", block.TargetDec),
			"target_dec_deg", fmt.Sprintf("%.2f", block.TargetDec), "-90 to +90")
	}

	if c := block.Constraints; c.MinAlt != nil && c.MaxAlt != nil {
		minAlt, maxAlt := *c.MinAlt, *c.MaxAlt
		if minAlt > maxAlt {
			v.error("Invalid elevation constraint range", models.IssueCategoryConstraint, models.CriticalityMedium,
				fmt.Sprintf("Minimum altitude (%.1f°) exceeds maximum altitude (%.1f°)", minAlt, maxAlt),
				"min_alt_deg", fmt.Sprintf("%.1f", minAlt), fmt.Sprintf("<= %.1f", maxAlt))
		}

		elevation := maxAlt - minAlt
		if elevation < 0 || elevation > 180 {
			v.error("Physically impossible elevation range", models.IssueCategoryConstraint, models.CriticalityMedium,
				fmt.Sprintf("Elevation range %.1f° is physically impossible", elevation),
				"elevation_range", fmt.Sprintf("%.1f", elevation), "0-180")
		} else if elevation > 0 && elevation < narrowElevationDeg {
			v.warning("Very narrow elevation range", models.IssueCategoryConstraint, models.CriticalityMedium,
				fmt.Sprintf("Elevation range of %.1f° may make scheduling difficult", elevation),
				"elevation_range", fmt.Sprintf("%.1f", elevation))
		}
	}

	fixed := block.Constraints.FixedTime
	if fixed != nil {
		if fixed.Start > fixed.Stop {
			v.error("Invalid time constraint range", models.IssueCategoryConstraint, models.CriticalityHigh,
				fmt.Sprintf("Constraint start time (%.2f MJD) is after stop time (%.2f MJD)", fixed.Start, fixed.Stop),
				"constraint_start_mjd", fmt.Sprintf("%.2f", fixed.Start), fmt.Sprintf("<= %.2f", fixed.Stop))
		}

		windowHours := fixed.DurationHours()
		if windowHours+fixedWindowToleranceHours < requestedHours {
			v.error("Time constraint duration less than requested duration", models.IssueCategoryConstraint, models.CriticalityHigh,
				fmt.Sprintf("Time constraint allows %.2fh but %.2fh requested", windowHours, requestedHours),
				"constraint_duration", fmt.Sprintf("%.2fh", windowHours), fmt.Sprintf(">= %.2fh", requestedHours))
		}
	}

	if scheduled := block.ScheduledPeriod; scheduled != nil {
		if scheduled.Start > scheduled.Stop {
			v.error("Invalid scheduled period", models.IssueCategoryScheduledPeriod, models.CriticalityHigh,
				fmt.Sprintf("Scheduled start time (%.2f MJD) is after stop time (%.2f MJD)", scheduled.Start, scheduled.Stop),
				"scheduled_start_mjd", fmt.Sprintf("%.2f", scheduled.Start), fmt.Sprintf("<= %.2f", scheduled.Stop))
		}

		scheduledHours := scheduled.DurationHours()
		if scheduledHours > requestedHours*scheduledOverrunFactor {
			v.warning("Scheduled duration exceeds requested duration", models.IssueCategoryScheduledPeriod, models.CriticalityLow,
				fmt.Sprintf("Scheduled for %.2fh but only %.2fh requested", scheduledHours, requestedHours),
				"scheduled_duration", fmt.Sprintf("%.2fh", scheduledHours))
		}

		if fixed != nil && !scheduled.Within(*fixed, windowEdgeToleranceDays) {
			v.error("Scheduled period outside time constraint", models.IssueCategoryScheduledPeriod, models.CriticalityHigh,
				fmt.Sprintf("Scheduled [%.2f, %.2f] MJD is outside constraint [%.2f, %.2f] MJD",
					scheduled.Start, scheduled.Stop, fixed.Start, fixed.Stop),
				"scheduled_period",
				fmt.Sprintf("[%.2f, %.2f]", scheduled.Start, scheduled.Stop),
				fmt.Sprintf("[%.2f, %.2f]", fixed.Start, fixed.Stop))
		}
	}

	if len(v.results) == 0 {
		v.results = append(v.results, models.ValidationResult{
			ScheduleID: scheduleID,
			BlockID:    block.ID,
			Status:     models.ValidationStatusValid,
		})
	}
	return v.results
}

// HasImpossible reports whether any finding marks the block infeasible.
func HasImpossible(results []models.ValidationResult) bool {
	for _, r := range results {
		if r.Status == models.ValidationStatusImpossible {
			return true
		}
	}
	return false
}

type blockValidator struct {
	scheduleID int64
	blockID    int64
	results    []models.ValidationResult
}

func (v *blockValidator) impossible(issue string, category models.IssueCategory, description, field, current, expected string) {
	v.add(models.ValidationStatusImpossible, issue, category, models.CriticalityCritical, description, field, current, &expected)
}

func (v *blockValidator) error(issue string, category models.IssueCategory, criticality models.Criticality, description, field, current, expected string) {
	v.add(models.ValidationStatusError, issue, category, criticality, description, field, current, &expected)
}

func (v *blockValidator) warning(issue string, category models.IssueCategory, criticality models.Criticality, description, field, current string) {
	v.add(models.ValidationStatusWarning, issue, category, criticality, description, field, current, nil)
}

func (v *blockValidator) add(status models.ValidationStatus, issue string, category models.IssueCategory, criticality models.Criticality, description, field, current string, expected *string) {
	v.results = append(v.results, models.ValidationResult{
		ScheduleID:    v.scheduleID,
		BlockID:       v.blockID,
		Status:        status,
		IssueType:     &issue,
		Category:      &category,
		Criticality:   &criticality,
		FieldName:     &field,
		CurrentValue:  &current,
		ExpectedValue: expected,
		Description:   &description,
	})
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
