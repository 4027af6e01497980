package service

import (
	"math"
	"sort"

	"github.com/VPRamon/TSI-sub000/internal/models"
)

// visibilityBinEdgePad keeps the largest visibility value inside the last bin.
const visibilityBinEdgePad = 0.001

// AggregateSummary folds the blocks of one schedule, their analytics rows and
// validation findings into the schedule summary. analytics is matched to
// blocks by block id; a block without an analytics row is derived on the fly.
func AggregateSummary(scheduleID int64, blocks []models.SchedulingBlock, analytics []models.BlockAnalytics, findings []models.ValidationResult) models.ScheduleSummary {
	summary := models.ScheduleSummary{ScheduleID: scheduleID, TotalBlocks: len(blocks)}

	rows := make(map[int64]models.BlockAnalytics, len(analytics))
	for _, row := range analytics {
		rows[row.BlockID] = row
	}
	impossible := impossibleBlocks(findings)

	var (
		all, scheduled, unscheduled []float64
		visibility, requested       []float64
		periods                     []models.Period
	)
	for _, block := range blocks {
		row, ok := rows[block.ID]
		if !ok {
			row = ComputeBlockAnalytics(scheduleID, block)
		}

		all = append(all, block.Priority)
		visibility = append(visibility, row.TotalVisibilityHours)
		requested = append(requested, row.RequestedHours)

		if row.Scheduled {
			summary.ScheduledBlocks++
			scheduled = append(scheduled, block.Priority)
			if block.ScheduledPeriod != nil {
				periods = append(periods, *block.ScheduledPeriod)
				// inverted periods are reported by validation, not summed
				if block.ScheduledPeriod.Valid() {
					summary.ScheduledTotalHours += block.ScheduledPeriod.DurationHours()
				}
			}
		} else {
			unscheduled = append(unscheduled, block.Priority)
		}

		if _, flagged := impossible[block.ID]; flagged || row.ValidationImpossible {
			summary.ImpossibleBlocks++
		}
	}

	summary.UnscheduledBlocks = summary.TotalBlocks - summary.ScheduledBlocks
	if summary.TotalBlocks > 0 {
		summary.SchedulingRate = float64(summary.ScheduledBlocks) / float64(summary.TotalBlocks)
	}

	summary.PriorityMin, summary.PriorityMax = minMax(all)
	summary.PriorityMean = mean(all)
	summary.PriorityMedian = median(all)
	summary.PriorityScheduledMean = mean(scheduled)
	summary.PriorityScheduledMedian = median(scheduled)
	summary.PriorityUnscheduledMean = mean(unscheduled)
	summary.PriorityUnscheduledMedian = median(unscheduled)

	summary.VisibilityTotalHours = sum(visibility)
	summary.VisibilityMeanHours = mean(visibility)
	summary.RequestedTotalHours = sum(requested)
	summary.RequestedMeanHours = mean(requested)

	if gaps := GapHours(periods); len(gaps) > 0 {
		count := len(gaps)
		summary.GapCount = &count
		summary.GapMeanHours = mean(gaps)
		summary.GapMedianHours = median(gaps)
	}

	return summary
}

// GapHours sorts periods by start and returns the strictly positive idle
// time, in hours, between each consecutive pair. Overlapping or touching
// periods contribute no gap.
func GapHours(periods []models.Period) []float64 {
	if len(periods) < 2 {
		return nil
	}
	sorted := make([]models.Period, len(periods))
	copy(sorted, periods)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var gaps []float64
	for i := 1; i < len(sorted); i++ {
		if gap := sorted[i].Start - sorted[i-1].Stop; gap > 0 {
			gaps = append(gaps, gap*models.HoursPerDay)
		}
	}
	return gaps
}

// PriorityRates groups analytics rows by priority rounded to the nearest
// integer, ordered by ascending priority.
func PriorityRates(analytics []models.BlockAnalytics) []models.PriorityRate {
	type acc struct {
		rate       models.PriorityRate
		visibility []float64
		requested  []float64
	}
	groups := make(map[int]*acc)
	for _, row := range analytics {
		key := int(math.Round(row.Priority))
		g, ok := groups[key]
		if !ok {
			g = &acc{rate: models.PriorityRate{Priority: key}}
			groups[key] = g
		}
		g.rate.TotalCount++
		if row.Scheduled {
			g.rate.ScheduledCount++
		}
		if row.ValidationImpossible {
			g.rate.ImpossibleCount++
		}
		g.visibility = append(g.visibility, row.TotalVisibilityHours)
		g.requested = append(g.requested, row.RequestedHours)
	}

	rates := make([]models.PriorityRate, 0, len(groups))
	for _, g := range groups {
		g.rate.SchedulingRate = float64(g.rate.ScheduledCount) / float64(g.rate.TotalCount)
		g.rate.VisibilityMeanHours = mean(g.visibility)
		g.rate.RequestedMeanHours = mean(g.requested)
		rates = append(rates, g.rate)
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].Priority < rates[j].Priority })
	return rates
}

// VisibilityBins splits feasible blocks into n equal-width bins over their
// total visibility hours. Blocks flagged impossible are left out, empty bins
// are omitted, and a schedule whose blocks all share one visibility value
// yields a single bin.
func VisibilityBins(analytics []models.BlockAnalytics, n int) []models.VisibilityBin {
	if n <= 0 {
		n = 1
	}

	feasible := make([]models.BlockAnalytics, 0, len(analytics))
	for _, row := range analytics {
		if !row.ValidationImpossible {
			feasible = append(feasible, row)
		}
	}
	if len(feasible) == 0 {
		return []models.VisibilityBin{}
	}

	lo, hi := feasible[0].TotalVisibilityHours, feasible[0].TotalVisibilityHours
	for _, row := range feasible[1:] {
		lo = math.Min(lo, row.TotalVisibilityHours)
		hi = math.Max(hi, row.TotalVisibilityHours)
	}

	if hi-lo < 1e-12 {
		return []models.VisibilityBin{fillBin(0, lo, hi, lo, feasible, true)}
	}

	width := (hi - lo) / float64(n)
	bins := make([]models.VisibilityBin, 0, n)
	for i := 0; i < n; i++ {
		binMin := lo + float64(i)*width
		binMax := lo + float64(i+1)*width
		if i == n-1 {
			binMax = hi + visibilityBinEdgePad
		}
		bin := fillBin(i, binMin, binMax, (binMin+binMax)/2, feasible, false)
		if bin.TotalCount > 0 {
			bins = append(bins, bin)
		}
	}
	return bins
}

func fillBin(index int, binMin, binMax, mid float64, rows []models.BlockAnalytics, all bool) models.VisibilityBin {
	bin := models.VisibilityBin{Index: index, MinHours: binMin, MaxHours: binMax, MidHours: mid}
	var priorities []float64
	for _, row := range rows {
		if !all && (row.TotalVisibilityHours < binMin || row.TotalVisibilityHours >= binMax) {
			continue
		}
		bin.TotalCount++
		if row.Scheduled {
			bin.ScheduledCount++
		}
		priorities = append(priorities, row.Priority)
	}
	if bin.TotalCount > 0 {
		bin.SchedulingRate = float64(bin.ScheduledCount) / float64(bin.TotalCount)
	}
	bin.PriorityMean = mean(priorities)
	return bin
}

func impossibleBlocks(findings []models.ValidationResult) map[int64]struct{} {
	out := make(map[int64]struct{})
	for _, f := range findings {
		if f.Status == models.ValidationStatusImpossible {
			out[f.BlockID] = struct{}{}
		}
	}
	return out
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	m := sum(values) / float64(len(values))
	return &m
}

func median(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	m := sorted[mid]
	if len(sorted)%2 == 0 {
		m = (sorted[mid-1] + sorted[mid]) / 2
	}
	return &m
}

func minMax(values []float64) (*float64, *float64) {
	if len(values) == 0 {
		return nil, nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return &lo, &hi
}
