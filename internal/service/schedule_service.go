package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/VPRamon/TSI-sub000/internal/dto"
	"github.com/VPRamon/TSI-sub000/internal/models"
	"github.com/VPRamon/TSI-sub000/pkg/database"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
	"github.com/VPRamon/TSI-sub000/pkg/retry"
)

type scheduleStore interface {
	FindByChecksum(ctx context.Context, exec sqlx.ExtContext, checksum string) (*models.ScheduleInfo, error)
	Create(ctx context.Context, exec sqlx.ExtContext, row *models.ScheduleRow) error
	InsertBlocks(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, blocks []models.SchedulingBlock) (int, error)
	Info(ctx context.Context, id int64) (*models.ScheduleInfo, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleInfo, int, error)
}

type populateEnqueuer interface {
	EnqueuePopulate(scheduleID int64) (*models.ProcessingJob, error)
}

// ScheduleServiceConfig tunes store behaviour.
type ScheduleServiceConfig struct {
	// PopulateOnStore queues population for new schedules unless the
	// request says otherwise.
	PopulateOnStore bool
}

// ScheduleService stores uploaded schedules and serves schedule lookups.
type ScheduleService struct {
	db        txProvider
	repo      scheduleStore
	jobs      populateEnqueuer
	validator *validator.Validate
	storage   storageRunner
	logger    *zap.Logger
	cfg       ScheduleServiceConfig
}

// NewScheduleService instantiates ScheduleService. jobs may be nil, in which
// case population is never queued on store.
func NewScheduleService(db txProvider, repo scheduleStore, jobs populateEnqueuer, validate *validator.Validate, policy retry.Policy, metrics *MetricsService, logger *zap.Logger, cfg ScheduleServiceConfig) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		db:        db,
		repo:      repo,
		jobs:      jobs,
		validator: validate,
		storage:   newStorageRunner(policy, metrics, logger),
		logger:    logger,
		cfg:       cfg,
	}
}

// Store persists a schedule and its blocks in one transaction. Content that
// was already uploaded resolves to the existing schedule without writing.
func (s *ScheduleService) Store(ctx context.Context, req dto.StoreScheduleRequest) (*models.StoreResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	checksum, err := req.Checksum()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fingerprint schedule")
	}
	schedule, err := req.ToModel(checksum)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	result := &models.StoreResult{Checksum: checksum}
	err = s.storage.inTx(ctx, s.db, "store_schedule", func(ctx context.Context, tx *sqlx.Tx) error {
		existing, err := s.repo.FindByChecksum(ctx, tx, checksum)
		if err == nil {
			result.ScheduleID = existing.ID
			result.BlockCount = existing.BlockCount
			result.Created = false
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		row, err := models.NewScheduleRow(*schedule)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule")
		}
		if err := s.repo.Create(ctx, tx, &row); err != nil {
			return err
		}
		count, err := s.repo.InsertBlocks(ctx, tx, row.ID, schedule.Blocks)
		if err != nil {
			return err
		}
		result.ScheduleID = row.ID
		result.BlockCount = count
		result.Created = true
		return nil
	})
	if err != nil {
		if !database.IsUniqueViolation(err) {
			return nil, err
		}
		// A concurrent upload of the same content committed first.
		existing, findErr := s.findByChecksum(ctx, checksum)
		if findErr != nil {
			return nil, findErr
		}
		result.ScheduleID = existing.ID
		result.BlockCount = existing.BlockCount
		result.Created = false
	}

	if result.Created {
		s.logger.Info("schedule stored",
			zap.Int64("schedule_id", result.ScheduleID),
			zap.String("checksum", checksum),
			zap.Int("blocks", result.BlockCount),
		)
	} else {
		s.logger.Info("schedule already stored, skipping", zap.Int64("schedule_id", result.ScheduleID), zap.String("checksum", checksum))
	}

	if result.Created && s.shouldPopulate(req) {
		job, err := s.jobs.EnqueuePopulate(result.ScheduleID)
		if err != nil {
			s.logger.Warn("failed to queue population", zap.Int64("schedule_id", result.ScheduleID), zap.Error(err))
		} else {
			result.JobID = job.ID
		}
	}
	return result, nil
}

func (s *ScheduleService) shouldPopulate(req dto.StoreScheduleRequest) bool {
	if s.jobs == nil {
		return false
	}
	if req.PopulateAnalytics != nil {
		return *req.PopulateAnalytics
	}
	return s.cfg.PopulateOnStore
}

func (s *ScheduleService) findByChecksum(ctx context.Context, checksum string) (*models.ScheduleInfo, error) {
	var info *models.ScheduleInfo
	err := s.storage.run(ctx, "find_schedule_by_checksum", func(ctx context.Context) error {
		var err error
		info, err = s.repo.FindByChecksum(ctx, nil, checksum)
		return err
	})
	return info, err
}

// Get returns the list projection of one schedule.
func (s *ScheduleService) Get(ctx context.Context, id int64) (*models.ScheduleInfo, error) {
	var info *models.ScheduleInfo
	err := s.storage.run(ctx, "get_schedule", func(ctx context.Context) error {
		var err error
		info, err = s.repo.Info(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, scheduleNotFound(id)
		}
		return nil, err
	}
	return info, nil
}

// List returns stored schedules newest first.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleInfo, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	var (
		items []models.ScheduleInfo
		total int
	)
	err := s.storage.run(ctx, "list_schedules", func(ctx context.Context) error {
		var err error
		items, total, err = s.repo.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if items == nil {
		items = []models.ScheduleInfo{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func scheduleNotFound(id int64) error {
	return appErrors.Clone(appErrors.ErrScheduleNotFound, fmt.Sprintf("schedule %d not found", id))
}
