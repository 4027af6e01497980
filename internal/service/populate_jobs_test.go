package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VPRamon/TSI-sub000/internal/models"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
	"github.com/VPRamon/TSI-sub000/pkg/jobs"
)

type stubDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (s *stubDispatcher) Enqueue(job jobs.Job) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

type stubPopulateRunner struct {
	result *models.PopulateResult
	err    error
	calls  []int64
}

func (s *stubPopulateRunner) Populate(ctx context.Context, scheduleID int64) (*models.PopulateResult, error) {
	s.calls = append(s.calls, scheduleID)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestJobTrackerLifecycle(t *testing.T) {
	tracker := NewJobTracker(10)
	job := tracker.Create(JobTypePopulate, 7)
	assert.Equal(t, models.JobStatusQueued, job.Status)

	tracker.Start(job.ID)
	tracker.Log(job.ID, models.JobLogWarning, "slow storage")
	tracker.Complete(job.ID, &models.PopulateResult{ScheduleID: 7, BlocksProcessed: 3})

	got, err := tracker.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, 3, got.Result.BlocksProcessed)
	levels := make([]models.JobLogLevel, 0, len(got.Logs))
	for _, entry := range got.Logs {
		levels = append(levels, entry.Level)
	}
	assert.Equal(t, []models.JobLogLevel{models.JobLogInfo, models.JobLogInfo, models.JobLogWarning, models.JobLogSuccess}, levels)

	_, err = tracker.Get("missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestJobTrackerEvictsOldestFinished(t *testing.T) {
	tracker := NewJobTracker(2)
	first := tracker.Create(JobTypePopulate, 1)
	tracker.Fail(first.ID, errors.New("boom"))
	second := tracker.Create(JobTypePopulate, 2)
	third := tracker.Create(JobTypePopulate, 3)

	_, err := tracker.Get(first.ID)
	assert.Error(t, err)
	_, err = tracker.Get(second.ID)
	assert.NoError(t, err)
	_, err = tracker.Get(third.ID)
	assert.NoError(t, err)
}

func TestPopulateJobsEnqueue(t *testing.T) {
	dispatcher := &stubDispatcher{}
	tracker := NewJobTracker(10)
	svc := NewPopulateJobs(dispatcher, tracker, nil)

	job, err := svc.EnqueuePopulate(42)
	require.NoError(t, err)
	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, "schedule:42", dispatcher.jobs[0].Key)
	assert.Equal(t, int64(42), dispatcher.jobs[0].Payload)
	assert.Equal(t, job.ID, dispatcher.jobs[0].ID)

	stored, err := svc.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, stored.Status)
}

func TestPopulateJobsEnqueueDuplicate(t *testing.T) {
	svc := NewPopulateJobs(&stubDispatcher{err: jobs.ErrDuplicate}, NewJobTracker(10), nil)

	_, err := svc.EnqueuePopulate(42)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestPopulateWorkerCompletes(t *testing.T) {
	tracker := NewJobTracker(10)
	job := tracker.Create(JobTypePopulate, 5)
	runner := &stubPopulateRunner{result: &models.PopulateResult{ScheduleID: 5, BlocksProcessed: 2, ImpossibleBlocks: 1}}
	worker := NewPopulateWorker(runner, tracker, 2, nil)

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID, Payload: int64(5)}))

	got, err := tracker.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, []int64{5}, runner.calls)
}

func TestPopulateWorkerRetriesTransientFailures(t *testing.T) {
	tracker := NewJobTracker(10)
	job := tracker.Create(JobTypePopulate, 5)
	transient := appErrors.WrapAs(errors.New("conn reset"), appErrors.ErrConnection, "")
	worker := NewPopulateWorker(&stubPopulateRunner{err: transient}, tracker, 1, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: job.ID, Payload: int64(5)})
	assert.Error(t, err)
	got, _ := tracker.Get(job.ID)
	assert.Equal(t, models.JobStatusRunning, got.Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: job.ID, Payload: int64(5), Attempt: 1})
	assert.NoError(t, err)
	got, _ = tracker.Get(job.ID)
	assert.Equal(t, models.JobStatusFailed, got.Status)
}

func TestPopulateWorkerFailsPermanentErrorsImmediately(t *testing.T) {
	tracker := NewJobTracker(10)
	job := tracker.Create(JobTypePopulate, 9)
	worker := NewPopulateWorker(&stubPopulateRunner{err: appErrors.ErrScheduleNotFound}, tracker, 3, nil)

	assert.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID, Payload: int64(9)}))
	got, _ := tracker.Get(job.ID)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Contains(t, got.Error, "schedule not found")
}
