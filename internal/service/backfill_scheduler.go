package service

import (
	"context"
	"errors"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/VPRamon/TSI-sub000/internal/models"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
)

// BackfillStore lists schedules that have never been populated.
type BackfillStore interface {
	ListMissingSummary(ctx context.Context, limit int) ([]int64, error)
}

// BackfillScheduler periodically queues population for schedules that have
// no summary yet, such as uploads made while the worker pool was down.
type BackfillScheduler struct {
	store     BackfillStore
	jobs      populateEnqueuer
	spec      string
	batchSize int
	cron      *cron.Cron
	logger    *zap.Logger
	mu        sync.Mutex
	running   bool
}

// NewBackfillScheduler creates a backfill scheduler running on the given cron spec.
func NewBackfillScheduler(store BackfillStore, jobs populateEnqueuer, spec string, batchSize int, logger *zap.Logger) *BackfillScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	if spec == "" {
		spec = "*/15 * * * *"
	}
	return &BackfillScheduler{
		store:     store,
		jobs:      jobs,
		spec:      spec,
		batchSize: batchSize,
		cron:      cron.New(),
		logger:    logger.With(zap.String("component", "backfill")),
	}
}

// Start registers the cron entry and starts the scheduler.
func (s *BackfillScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("backfill scheduler already running")
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunNow(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("backfill scheduler started", zap.String("spec", s.spec), zap.Int("batch_size", s.batchSize))
	return nil
}

// Stop stops the scheduler; the returned context is done once running jobs finish.
func (s *BackfillScheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.running = false
	s.logger.Info("stopping backfill scheduler")
	return s.cron.Stop()
}

// RunNow queues one batch immediately and returns the queued jobs.
func (s *BackfillScheduler) RunNow(ctx context.Context) []models.ProcessingJob {
	ids, err := s.store.ListMissingSummary(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("backfill lookup failed", zap.Error(err))
		return nil
	}
	if len(ids) == 0 {
		return nil
	}

	queued := make([]models.ProcessingJob, 0, len(ids))
	for _, id := range ids {
		job, err := s.jobs.EnqueuePopulate(id)
		if err != nil {
			if errors.Is(err, appErrors.ErrConflict) {
				continue
			}
			s.logger.Warn("backfill enqueue failed", zap.Int64("schedule_id", id), zap.Error(err))
			continue
		}
		queued = append(queued, *job)
	}
	s.logger.Info("backfill batch queued", zap.Int("candidates", len(ids)), zap.Int("queued", len(queued)))
	return queued
}
