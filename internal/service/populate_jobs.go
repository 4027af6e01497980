package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/VPRamon/TSI-sub000/internal/models"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
	"github.com/VPRamon/TSI-sub000/pkg/jobs"
)

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type populateRunner interface {
	Populate(ctx context.Context, scheduleID int64) (*models.PopulateResult, error)
}

// PopulateJobs enqueues analytics population on the background queue and
// tracks each run. At most one population per schedule is in flight.
type PopulateJobs struct {
	queue   jobDispatcher
	tracker *JobTracker
	logger  *zap.Logger
}

// NewPopulateJobs constructs the dispatcher side of population jobs.
func NewPopulateJobs(queue jobDispatcher, tracker *JobTracker, logger *zap.Logger) *PopulateJobs {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PopulateJobs{queue: queue, tracker: tracker, logger: logger}
}

func populateKey(scheduleID int64) string {
	return "schedule:" + strconv.FormatInt(scheduleID, 10)
}

// EnqueuePopulate schedules a population run for scheduleID.
func (p *PopulateJobs) EnqueuePopulate(scheduleID int64) (*models.ProcessingJob, error) {
	job := p.tracker.Create(JobTypePopulate, scheduleID)
	err := p.queue.Enqueue(jobs.Job{
		ID:      job.ID,
		Type:    JobTypePopulate,
		Key:     populateKey(scheduleID),
		Payload: scheduleID,
	})
	if err != nil {
		p.tracker.Fail(job.ID, err)
		if errors.Is(err, jobs.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("population of schedule %d is already in progress", scheduleID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue population job")
	}
	p.logger.Info("population job queued", zap.String("job_id", job.ID), zap.Int64("schedule_id", scheduleID))
	return &job, nil
}

// Get returns the tracked state of a job.
func (p *PopulateJobs) Get(id string) (*models.ProcessingJob, error) {
	return p.tracker.Get(id)
}

// PopulateWorker bridges queue jobs to the analytics service.
type PopulateWorker struct {
	runner     populateRunner
	tracker    *JobTracker
	maxRetries int
	logger     *zap.Logger
}

// NewPopulateWorker constructs a worker.
func NewPopulateWorker(runner populateRunner, tracker *JobTracker, maxRetries int, logger *zap.Logger) *PopulateWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &PopulateWorker{runner: runner, tracker: tracker, maxRetries: maxRetries, logger: logger}
}

// Handle processes a queue job. Only transient failures are handed back to
// the queue for another attempt.
func (w *PopulateWorker) Handle(ctx context.Context, job jobs.Job) error {
	scheduleID, ok := job.Payload.(int64)
	if !ok {
		err := fmt.Errorf("job %s carries no schedule id", job.ID)
		w.tracker.Fail(job.ID, err)
		return nil
	}

	w.tracker.Start(job.ID)
	w.tracker.Log(job.ID, models.JobLogInfo, fmt.Sprintf("computing analytics for schedule %d (attempt %d)", scheduleID, job.Attempt+1))

	result, err := w.runner.Populate(ctx, scheduleID)
	if err != nil {
		if appErrors.IsRetryable(err) && job.Attempt < w.maxRetries {
			w.tracker.Log(job.ID, models.JobLogWarning, "transient failure, will retry: "+err.Error())
			return err
		}
		w.tracker.Fail(job.ID, err)
		w.logger.Error("population job failed", zap.String("job_id", job.ID), zap.Int64("schedule_id", scheduleID), zap.Error(err))
		return nil
	}

	if result.ImpossibleBlocks > 0 {
		w.tracker.Log(job.ID, models.JobLogWarning, fmt.Sprintf("%d block(s) can never be scheduled", result.ImpossibleBlocks))
	}
	w.tracker.Log(job.ID, models.JobLogInfo, fmt.Sprintf("processed %d block(s), wrote %d finding(s)", result.BlocksProcessed, result.FindingsWritten))
	w.tracker.Complete(job.ID, result)
	return nil
}

// OnFailure marks jobs that the queue gave up on.
func (w *PopulateWorker) OnFailure(job jobs.Job, err error) {
	w.tracker.Fail(job.ID, err)
}
