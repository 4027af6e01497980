package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/VPRamon/TSI-sub000/internal/models"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
	"github.com/VPRamon/TSI-sub000/pkg/retry"
)

const (
	defaultVisibilityBins = 10
	maxVisibilityBins     = 200
)

type scheduleReader interface {
	Get(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.ScheduleRow, error)
	ListBlocks(ctx context.Context, exec sqlx.ExtContext, scheduleID int64) ([]models.SchedulingBlockRow, error)
}

type blockAnalyticsStore interface {
	LockSchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID int64) error
	UpsertBatch(ctx context.Context, exec sqlx.ExtContext, rows []models.BlockAnalytics) error
	DeleteStale(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, keep []int64) (int64, error)
	DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID int64) (int64, error)
	ResetImpossible(ctx context.Context, exec sqlx.ExtContext, scheduleID int64) error
	MarkImpossible(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, blockIDs []int64) error
	ListBySchedule(ctx context.Context, scheduleID int64) ([]models.BlockAnalytics, error)
	Exists(ctx context.Context, scheduleID int64) (bool, error)
}

type validationStore interface {
	DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID int64) (int64, error)
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, results []models.ValidationResult) (int64, error)
	ListBySchedule(ctx context.Context, scheduleID int64) ([]models.ValidationRow, error)
	Exists(ctx context.Context, scheduleID int64) (bool, error)
}

type summaryStore interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, summary *models.ScheduleSummary) error
	Get(ctx context.Context, scheduleID int64) (*models.ScheduleSummary, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, scheduleID int64) (int64, error)
	Exists(ctx context.Context, scheduleID int64) (bool, error)
}

// AnalyticsConfig tunes read projections.
type AnalyticsConfig struct {
	VisibilityBins int
	CacheTTL       time.Duration
}

// AnalyticsService runs the population pipeline for a schedule and serves
// the derived products.
type AnalyticsService struct {
	db         txProvider
	schedules  scheduleReader
	analytics  blockAnalyticsStore
	validation validationStore
	summaries  summaryStore
	cache      *CacheService
	metrics    *MetricsService
	storage    storageRunner
	logger     *zap.Logger
	cfg        AnalyticsConfig
}

// AnalyticsStores groups the repositories the analytics service writes to.
type AnalyticsStores struct {
	Schedules  scheduleReader
	Analytics  blockAnalyticsStore
	Validation validationStore
	Summaries  summaryStore
}

// NewAnalyticsService wires the analytics service. cache and metrics may be nil.
func NewAnalyticsService(db txProvider, stores AnalyticsStores, cache *CacheService, metrics *MetricsService, policy retry.Policy, logger *zap.Logger, cfg AnalyticsConfig) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.VisibilityBins <= 0 {
		cfg.VisibilityBins = defaultVisibilityBins
	}
	return &AnalyticsService{
		db:         db,
		schedules:  stores.Schedules,
		analytics:  stores.Analytics,
		validation: stores.Validation,
		summaries:  stores.Summaries,
		cache:      cache,
		metrics:    metrics,
		storage:    newStorageRunner(policy, metrics, logger),
		logger:     logger,
		cfg:        cfg,
	}
}

// Population is the complete derived state of one schedule.
type Population struct {
	Analytics  []models.BlockAnalytics
	Findings   []models.ValidationResult
	Impossible []int64
	Summary    models.ScheduleSummary
}

// BuildPopulation runs transform, validation and aggregation over blocks.
// It performs no I/O.
func BuildPopulation(scheduleID int64, blocks []models.SchedulingBlock) Population {
	pop := Population{
		Analytics:  make([]models.BlockAnalytics, 0, len(blocks)),
		Findings:   make([]models.ValidationResult, 0, len(blocks)),
		Impossible: []int64{},
	}
	for _, block := range blocks {
		row := ComputeBlockAnalytics(scheduleID, block)
		findings := ValidateBlock(scheduleID, block, row)
		if HasImpossible(findings) {
			pop.Impossible = append(pop.Impossible, block.ID)
		}
		pop.Analytics = append(pop.Analytics, row)
		pop.Findings = append(pop.Findings, findings...)
	}
	pop.Summary = AggregateSummary(scheduleID, blocks, pop.Analytics, pop.Findings)
	return pop
}

// Populate recomputes every derived product of a schedule in one
// transaction. Concurrent runs for the same schedule are serialized by a
// transaction-scoped advisory lock.
func (s *AnalyticsService) Populate(ctx context.Context, scheduleID int64) (*models.PopulateResult, error) {
	start := time.Now()
	var (
		result   *models.PopulateResult
		findings map[models.ValidationStatus]int
	)

	err := s.storage.inTx(ctx, s.db, "populate_analytics", func(ctx context.Context, tx *sqlx.Tx) error {
		if err := s.analytics.LockSchedule(ctx, tx, scheduleID); err != nil {
			return err
		}

		blocks, err := s.loadBlocks(ctx, tx, scheduleID)
		if err != nil {
			return err
		}

		pop := BuildPopulation(scheduleID, blocks)
		findings = countByStatus(pop.Findings)
		result = &models.PopulateResult{ScheduleID: scheduleID, BlocksProcessed: len(blocks)}

		if len(blocks) == 0 {
			if _, err := s.validation.DeleteBySchedule(ctx, tx, scheduleID); err != nil {
				return err
			}
			if _, err := s.analytics.DeleteBySchedule(ctx, tx, scheduleID); err != nil {
				return err
			}
			return s.summaries.Upsert(ctx, tx, &pop.Summary)
		}

		if err := s.analytics.UpsertBatch(ctx, tx, pop.Analytics); err != nil {
			return err
		}
		keep := make([]int64, 0, len(blocks))
		for _, block := range blocks {
			keep = append(keep, block.ID)
		}
		if _, err := s.analytics.DeleteStale(ctx, tx, scheduleID, keep); err != nil {
			return err
		}

		if _, err := s.validation.DeleteBySchedule(ctx, tx, scheduleID); err != nil {
			return err
		}
		written, err := s.validation.InsertBatch(ctx, tx, pop.Findings)
		if err != nil {
			return err
		}
		result.FindingsWritten = int(written)

		if err := s.analytics.ResetImpossible(ctx, tx, scheduleID); err != nil {
			return err
		}
		if err := s.analytics.MarkImpossible(ctx, tx, scheduleID, pop.Impossible); err != nil {
			return err
		}
		result.ImpossibleBlocks = pop.Summary.ImpossibleBlocks

		return s.summaries.Upsert(ctx, tx, &pop.Summary)
	})
	if err != nil {
		s.metrics.ObservePopulation(nil, err, nil)
		s.logger.Error("population failed", zap.Int64("schedule_id", scheduleID), zap.Error(err))
		return nil, err
	}

	result.Duration = time.Since(start)
	s.metrics.ObservePopulation(result, nil, findings)
	s.cache.InvalidateSchedule(ctx, scheduleID)
	s.logger.Info("population completed",
		zap.Int64("schedule_id", scheduleID),
		zap.Int("blocks", result.BlocksProcessed),
		zap.Int("findings", result.FindingsWritten),
		zap.Int("impossible", result.ImpossibleBlocks),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// loadBlocks reads the schedule and its blocks inside tx. A corrupt schedule
// header fails the run; corrupt block visibility degrades to no visibility.
func (s *AnalyticsService) loadBlocks(ctx context.Context, tx sqlx.ExtContext, scheduleID int64) ([]models.SchedulingBlock, error) {
	header, err := s.schedules.Get(ctx, tx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, scheduleNotFound(scheduleID)
		}
		return nil, err
	}
	if _, err := header.Schedule(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored schedule is unreadable")
	}

	rows, err := s.schedules.ListBlocks(ctx, tx, scheduleID)
	if err != nil {
		return nil, err
	}
	blocks := make([]models.SchedulingBlock, 0, len(rows))
	for _, row := range rows {
		visibility := DecodeVisibilityPeriods(row.VisibilityPeriods, row.ID, s.logger)
		blocks = append(blocks, row.Block(visibility))
	}
	return blocks, nil
}

func countByStatus(findings []models.ValidationResult) map[models.ValidationStatus]int {
	counts := make(map[models.ValidationStatus]int, 4)
	for _, f := range findings {
		counts[f.Status]++
	}
	return counts
}

// DeleteAnalytics removes the summary and block analytics of a schedule and
// returns the number of analytics rows removed.
func (s *AnalyticsService) DeleteAnalytics(ctx context.Context, scheduleID int64) (int64, error) {
	var removed int64
	err := s.storage.inTx(ctx, s.db, "delete_analytics", func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := s.summaries.Delete(ctx, tx, scheduleID); err != nil {
			return err
		}
		var err error
		removed, err = s.analytics.DeleteBySchedule(ctx, tx, scheduleID)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.cache.InvalidateSchedule(ctx, scheduleID)
	s.logger.Info("analytics deleted", zap.Int64("schedule_id", scheduleID), zap.Int64("rows", removed))
	return removed, nil
}

// DeleteValidation removes the findings of a schedule and clears the
// impossible flags derived from them.
func (s *AnalyticsService) DeleteValidation(ctx context.Context, scheduleID int64) (int64, error) {
	var removed int64
	err := s.storage.inTx(ctx, s.db, "delete_validation", func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		if removed, err = s.validation.DeleteBySchedule(ctx, tx, scheduleID); err != nil {
			return err
		}
		return s.analytics.ResetImpossible(ctx, tx, scheduleID)
	})
	if err != nil {
		return 0, err
	}
	s.cache.InvalidateSchedule(ctx, scheduleID)
	s.logger.Info("validation results deleted", zap.Int64("schedule_id", scheduleID), zap.Int64("rows", removed))
	return removed, nil
}

// FetchBlockAnalytics returns the analytics rows of a schedule ordered by block.
func (s *AnalyticsService) FetchBlockAnalytics(ctx context.Context, scheduleID int64) ([]models.BlockAnalytics, bool, error) {
	key := ScheduleKey(scheduleID, "analytics")
	var rows []models.BlockAnalytics
	if s.cache.Get(ctx, key, &rows) {
		return rows, true, nil
	}

	rows, err := s.listAnalytics(ctx, scheduleID)
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(ctx, key, rows, s.cfg.CacheTTL)
	return rows, false, nil
}

func (s *AnalyticsService) listAnalytics(ctx context.Context, scheduleID int64) ([]models.BlockAnalytics, error) {
	var rows []models.BlockAnalytics
	err := s.storage.run(ctx, "list_block_analytics", func(ctx context.Context) error {
		var err error
		rows, err = s.analytics.ListBySchedule(ctx, scheduleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.BlockAnalytics{}
	}
	return rows, nil
}

// FetchValidationReport groups the stored findings of a schedule. It is a
// NotFound error when the schedule has never been validated.
func (s *AnalyticsService) FetchValidationReport(ctx context.Context, scheduleID int64) (*models.ValidationReport, bool, error) {
	key := ScheduleKey(scheduleID, "validation")
	var report models.ValidationReport
	if s.cache.Get(ctx, key, &report) {
		return &report, true, nil
	}

	var rows []models.ValidationRow
	err := s.storage.run(ctx, "list_validation_results", func(ctx context.Context) error {
		var err error
		rows, err = s.validation.ListBySchedule(ctx, scheduleID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no validation results for schedule %d", scheduleID))
	}

	report = BuildValidationReport(scheduleID, rows)
	s.cache.Set(ctx, key, report, s.cfg.CacheTTL)
	return &report, false, nil
}

// BuildValidationReport buckets findings by status. TotalBlocks counts
// distinct blocks; ValidBlocks counts blocks whose single finding is valid.
func BuildValidationReport(scheduleID int64, rows []models.ValidationRow) models.ValidationReport {
	report := models.ValidationReport{
		ScheduleID: scheduleID,
		Impossible: []models.ValidationIssue{},
		Errors:     []models.ValidationIssue{},
		Warnings:   []models.ValidationIssue{},
	}
	seen := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.BlockID]; !ok {
			seen[row.BlockID] = struct{}{}
			report.TotalBlocks++
		}
		switch row.Status {
		case models.ValidationStatusValid:
			report.ValidBlocks++
		case models.ValidationStatusImpossible:
			report.Impossible = append(report.Impossible, toIssue(row))
		case models.ValidationStatusError:
			report.Errors = append(report.Errors, toIssue(row))
		case models.ValidationStatusWarning:
			report.Warnings = append(report.Warnings, toIssue(row))
		}
	}
	return report
}

func toIssue(row models.ValidationRow) models.ValidationIssue {
	issue := models.ValidationIssue{
		BlockID:         row.BlockID,
		OriginalBlockID: row.OriginalBlockID,
		Status:          row.Status,
		IssueType:       deref(row.IssueType),
		FieldName:       deref(row.FieldName),
		CurrentValue:    deref(row.CurrentValue),
		ExpectedValue:   deref(row.ExpectedValue),
		Description:     deref(row.Description),
	}
	if row.Category != nil {
		issue.Category = string(*row.Category)
	}
	if row.Criticality != nil {
		issue.Criticality = string(*row.Criticality)
	}
	return issue
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FetchSummary returns the stored schedule summary.
func (s *AnalyticsService) FetchSummary(ctx context.Context, scheduleID int64) (*models.ScheduleSummary, bool, error) {
	key := ScheduleKey(scheduleID, "summary")
	var summary models.ScheduleSummary
	if s.cache.Get(ctx, key, &summary) {
		return &summary, true, nil
	}

	var stored *models.ScheduleSummary
	err := s.storage.run(ctx, "get_schedule_summary", func(ctx context.Context) error {
		var err error
		stored, err = s.summaries.Get(ctx, scheduleID)
		return err
	})
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no summary for schedule %d", scheduleID))
		}
		return nil, false, err
	}
	s.cache.Set(ctx, key, stored, s.cfg.CacheTTL)
	return stored, false, nil
}

// PriorityRates groups the analytics rows of a schedule by rounded priority.
func (s *AnalyticsService) PriorityRates(ctx context.Context, scheduleID int64) ([]models.PriorityRate, bool, error) {
	key := ScheduleKey(scheduleID, "priority-rates")
	var rates []models.PriorityRate
	if s.cache.Get(ctx, key, &rates) {
		return rates, true, nil
	}

	rows, err := s.listAnalytics(ctx, scheduleID)
	if err != nil {
		return nil, false, err
	}
	rates = PriorityRates(rows)
	s.cache.Set(ctx, key, rates, s.cfg.CacheTTL)
	return rates, false, nil
}

// VisibilityBins histograms total visibility into bins equal-width bins.
// bins <= 0 uses the configured default.
func (s *AnalyticsService) VisibilityBins(ctx context.Context, scheduleID int64, bins int) ([]models.VisibilityBin, bool, error) {
	if bins <= 0 {
		bins = s.cfg.VisibilityBins
	}
	if bins > maxVisibilityBins {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("bins must be between 1 and %d", maxVisibilityBins))
	}

	key := ScheduleKey(scheduleID, "visibility-bins", bins)
	var out []models.VisibilityBin
	if s.cache.Get(ctx, key, &out) {
		return out, true, nil
	}

	rows, err := s.listAnalytics(ctx, scheduleID)
	if err != nil {
		return nil, false, err
	}
	out = VisibilityBins(rows, bins)
	s.cache.Set(ctx, key, out, s.cfg.CacheTTL)
	return out, false, nil
}

// Status reports which derived products exist for a schedule.
func (s *AnalyticsService) Status(ctx context.Context, scheduleID int64) (*models.AnalyticsStatus, error) {
	status := &models.AnalyticsStatus{ScheduleID: scheduleID}
	err := s.storage.run(ctx, "analytics_status", func(ctx context.Context) error {
		var err error
		if status.HasAnalytics, err = s.analytics.Exists(ctx, scheduleID); err != nil {
			return err
		}
		if status.HasValidation, err = s.validation.Exists(ctx, scheduleID); err != nil {
			return err
		}
		status.HasSummary, err = s.summaries.Exists(ctx, scheduleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}
