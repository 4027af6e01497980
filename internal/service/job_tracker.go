package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VPRamon/TSI-sub000/internal/models"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
)

// JobTypePopulate labels analytics population jobs.
const JobTypePopulate = "populate_analytics"

const defaultTrackedJobs = 500

// ErrJobNotFound is returned for unknown or evicted job ids.
var ErrJobNotFound = appErrors.Clone(appErrors.ErrNotFound, "job not found")

// JobTracker keeps the status and progress log of background jobs in memory.
// Once more than the configured number of jobs are tracked, the oldest
// finished ones are evicted.
type JobTracker struct {
	mu      sync.RWMutex
	jobs    map[string]*models.ProcessingJob
	order   []string
	maxJobs int
	now     func() time.Time
}

// NewJobTracker builds a tracker retaining up to maxJobs entries.
func NewJobTracker(maxJobs int) *JobTracker {
	if maxJobs <= 0 {
		maxJobs = defaultTrackedJobs
	}
	return &JobTracker{
		jobs:    make(map[string]*models.ProcessingJob),
		maxJobs: maxJobs,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a queued job and returns a snapshot of it.
func (t *JobTracker) Create(jobType string, scheduleID int64) models.ProcessingJob {
	t.mu.Lock()
	defer t.mu.Unlock()

	job := &models.ProcessingJob{
		ID:         uuid.NewString(),
		Type:       jobType,
		ScheduleID: scheduleID,
		Status:     models.JobStatusQueued,
		Logs:       []models.JobLogEntry{},
		CreatedAt:  t.now(),
	}
	t.jobs[job.ID] = job
	t.order = append(t.order, job.ID)
	t.appendLog(job, models.JobLogInfo, fmt.Sprintf("queued for schedule %d", scheduleID))
	t.evict()
	return snapshot(job)
}

// Start marks a job as running.
func (t *JobTracker) Start(id string) {
	t.update(id, func(job *models.ProcessingJob) {
		job.Status = models.JobStatusRunning
		t.appendLog(job, models.JobLogInfo, "started")
	})
}

// Log appends a progress entry.
func (t *JobTracker) Log(id string, level models.JobLogLevel, message string) {
	t.update(id, func(job *models.ProcessingJob) {
		t.appendLog(job, level, message)
	})
}

// Complete records the result of a successful job.
func (t *JobTracker) Complete(id string, result *models.PopulateResult) {
	t.update(id, func(job *models.ProcessingJob) {
		now := t.now()
		job.Status = models.JobStatusCompleted
		job.CompletedAt = &now
		job.Result = result
		job.Error = ""
		t.appendLog(job, models.JobLogSuccess, "completed")
	})
}

// Fail records the terminal error of a job.
func (t *JobTracker) Fail(id string, err error) {
	t.update(id, func(job *models.ProcessingJob) {
		now := t.now()
		job.Status = models.JobStatusFailed
		job.CompletedAt = &now
		if err != nil {
			job.Error = err.Error()
		}
		t.appendLog(job, models.JobLogError, "failed: "+job.Error)
	})
}

// Get returns a copy of the job.
func (t *JobTracker) Get(id string) (*models.ProcessingJob, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	copied := snapshot(job)
	return &copied, nil
}

func (t *JobTracker) update(id string, fn func(job *models.ProcessingJob)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[id]; ok {
		fn(job)
	}
}

func (t *JobTracker) appendLog(job *models.ProcessingJob, level models.JobLogLevel, message string) {
	job.Logs = append(job.Logs, models.JobLogEntry{Timestamp: t.now(), Level: level, Message: message})
}

// evict drops the oldest finished jobs while over capacity. Queued and
// running jobs are never evicted.
func (t *JobTracker) evict() {
	if len(t.jobs) <= t.maxJobs {
		return
	}
	kept := t.order[:0]
	for _, id := range t.order {
		job := t.jobs[id]
		if len(t.jobs) > t.maxJobs && (job.Status == models.JobStatusCompleted || job.Status == models.JobStatusFailed) {
			delete(t.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}

func snapshot(job *models.ProcessingJob) models.ProcessingJob {
	copied := *job
	copied.Logs = append([]models.JobLogEntry(nil), job.Logs...)
	if job.CompletedAt != nil {
		at := *job.CompletedAt
		copied.CompletedAt = &at
	}
	return copied
}
