package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VPRamon/TSI-sub000/internal/models"
)

func summarize(blocks []models.SchedulingBlock) models.ScheduleSummary {
	var (
		rows     []models.BlockAnalytics
		findings []models.ValidationResult
	)
	for _, b := range blocks {
		row := ComputeBlockAnalytics(1, b)
		results := ValidateBlock(1, b, row)
		row.ValidationImpossible = HasImpossible(results)
		rows = append(rows, row)
		findings = append(findings, results...)
	}
	return AggregateSummary(1, blocks, rows, findings)
}

func TestAggregateSummaryScenarioC(t *testing.T) {
	scheduled := validBlock()
	scheduled.ID, scheduled.Priority = 1, 8
	scheduled.ScheduledPeriod = &models.Period{Start: 60000.0, Stop: 60000.04}

	// scheduled, but no longer visible
	contradicted := validBlock()
	contradicted.ID, contradicted.Priority = 2, 4
	contradicted.VisibilityPeriods = nil
	contradicted.ScheduledPeriod = &models.Period{Start: 60000.1, Stop: 60000.14}

	pending := validBlock()
	pending.ID, pending.Priority = 3, 3

	summary := summarize([]models.SchedulingBlock{scheduled, contradicted, pending})

	assert.Equal(t, 3, summary.TotalBlocks)
	assert.Equal(t, 2, summary.ScheduledBlocks)
	assert.Equal(t, 1, summary.UnscheduledBlocks)
	assert.Equal(t, 1, summary.ImpossibleBlocks)
	assert.InDelta(t, 0.6667, summary.SchedulingRate, 1e-4)

	assert.InDelta(t, 5.0, *summary.PriorityMean, 1e-9)
	assert.InDelta(t, 4.0, *summary.PriorityMedian, 1e-9)
	assert.InDelta(t, 6.0, *summary.PriorityScheduledMean, 1e-9)
	assert.InDelta(t, 6.0, *summary.PriorityScheduledMedian, 1e-9)
	assert.InDelta(t, 3.0, *summary.PriorityUnscheduledMean, 1e-9)
	assert.Equal(t, 3.0, *summary.PriorityMin)
	assert.Equal(t, 8.0, *summary.PriorityMax)

	assert.InDelta(t, 9.6, summary.VisibilityTotalHours, 1e-6)
	assert.InDelta(t, 3.0, summary.RequestedTotalHours, 1e-9)
	assert.InDelta(t, 1.0, *summary.RequestedMeanHours, 1e-9)
	assert.InDelta(t, 1.92, summary.ScheduledTotalHours, 1e-6)

	require.NotNil(t, summary.GapCount)
	assert.Equal(t, 1, *summary.GapCount)
	assert.InDelta(t, 1.44, *summary.GapMeanHours, 1e-6)
	assert.InDelta(t, 1.44, *summary.GapMedianHours, 1e-6)
}

func TestAggregateSummaryEmpty(t *testing.T) {
	summary := AggregateSummary(4, nil, nil, nil)

	assert.Equal(t, int64(4), summary.ScheduleID)
	assert.Zero(t, summary.TotalBlocks)
	assert.Zero(t, summary.SchedulingRate)
	assert.Nil(t, summary.PriorityMean)
	assert.Nil(t, summary.PriorityMedian)
	assert.Nil(t, summary.RequestedMeanHours)
	assert.Nil(t, summary.GapCount)
	assert.Nil(t, summary.GapMeanHours)
}

func TestAggregateSummaryUnscheduledSubsetEmpty(t *testing.T) {
	b := validBlock()
	b.ScheduledPeriod = &models.Period{Start: 60000, Stop: 60000.04}

	summary := summarize([]models.SchedulingBlock{b})

	assert.Equal(t, 1.0, summary.SchedulingRate)
	assert.NotNil(t, summary.PriorityScheduledMean)
	assert.Nil(t, summary.PriorityUnscheduledMean)
	assert.Nil(t, summary.PriorityUnscheduledMedian)
	assert.Nil(t, summary.GapCount, "a single scheduled period has no gaps")
}

func TestAggregateSummaryIgnoresInvertedScheduledPeriod(t *testing.T) {
	ok := validBlock()
	ok.ScheduledPeriod = &models.Period{Start: 60000.0, Stop: 60000.04}

	inverted := validBlock()
	inverted.ID = 2
	inverted.ScheduledPeriod = &models.Period{Start: 1, Stop: 0.5}

	summary := summarize([]models.SchedulingBlock{ok, inverted})

	assert.Equal(t, 2, summary.ScheduledBlocks)
	assert.InDelta(t, 0.96, summary.ScheduledTotalHours, 1e-6)
}

func TestGapHours(t *testing.T) {
	periods := []models.Period{
		{Start: 60000.5, Stop: 60000.6},
		{Start: 60000.0, Stop: 60000.1},
		{Start: 60000.05, Stop: 60000.2}, // overlaps the first
		{Start: 60000.6, Stop: 60000.7},  // touches the previous
		{Start: 60001.0, Stop: 60001.1},
	}

	gaps := GapHours(periods)

	assert.LessOrEqual(t, len(gaps), len(periods)-1)
	require.Len(t, gaps, 2)
	assert.InDelta(t, 7.2, gaps[0], 1e-6)
	assert.InDelta(t, 7.2, gaps[1], 1e-6)
	for _, g := range gaps {
		assert.Greater(t, g, 0.0)
	}
	assert.Equal(t, 60000.5, periods[0].Start, "input order is left untouched")

	assert.Nil(t, GapHours(periods[:1]))
}

func TestMedianEvenCount(t *testing.T) {
	assert.Equal(t, 2.5, *median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 3.0, *median([]float64{5, 1, 3}))
	assert.Nil(t, median(nil))
}

func TestPriorityRates(t *testing.T) {
	rows := []models.BlockAnalytics{
		{BlockID: 1, Priority: 4.6, Scheduled: true, TotalVisibilityHours: 2, RequestedHours: 1},
		{BlockID: 2, Priority: 5.2, Scheduled: false, TotalVisibilityHours: 4, RequestedHours: 3},
		{BlockID: 3, Priority: 1.1, Scheduled: false, ValidationImpossible: true},
	}

	rates := PriorityRates(rows)

	require.Len(t, rates, 2)
	assert.Equal(t, 1, rates[0].Priority)
	assert.Equal(t, 1, rates[0].ImpossibleCount)
	assert.Zero(t, rates[0].SchedulingRate)

	assert.Equal(t, 5, rates[1].Priority)
	assert.Equal(t, 2, rates[1].TotalCount)
	assert.Equal(t, 1, rates[1].ScheduledCount)
	assert.Equal(t, 0.5, rates[1].SchedulingRate)
	assert.Equal(t, 3.0, *rates[1].VisibilityMeanHours)
	assert.Equal(t, 2.0, *rates[1].RequestedMeanHours)
}

func TestVisibilityBins(t *testing.T) {
	rows := []models.BlockAnalytics{
		{BlockID: 1, Priority: 2, TotalVisibilityHours: 0, Scheduled: true},
		{BlockID: 2, Priority: 4, TotalVisibilityHours: 1},
		{BlockID: 3, Priority: 6, TotalVisibilityHours: 10, Scheduled: true},
		{BlockID: 4, Priority: 9, TotalVisibilityHours: 50, ValidationImpossible: true},
	}

	bins := VisibilityBins(rows, 5)

	require.Len(t, bins, 2, "empty bins are skipped")
	assert.Equal(t, 0, bins[0].Index)
	assert.Equal(t, 2, bins[0].TotalCount)
	assert.Equal(t, 0.5, bins[0].SchedulingRate)
	assert.Equal(t, 3.0, *bins[0].PriorityMean)
	assert.Equal(t, 4, bins[1].Index)
	assert.InDelta(t, 10.001, bins[1].MaxHours, 1e-9)
	assert.Equal(t, 1, bins[1].TotalCount)
}

func TestVisibilityBinsSingleValue(t *testing.T) {
	rows := []models.BlockAnalytics{
		{BlockID: 1, Priority: 2, TotalVisibilityHours: 3},
		{BlockID: 2, Priority: 4, TotalVisibilityHours: 3, Scheduled: true},
	}

	bins := VisibilityBins(rows, 10)

	require.Len(t, bins, 1)
	assert.Equal(t, 3.0, bins[0].MinHours)
	assert.Equal(t, 3.0, bins[0].MaxHours)
	assert.Equal(t, 2, bins[0].TotalCount)
	assert.Empty(t, VisibilityBins(nil, 10))
}
