package models

import "time"

// JobStatus is the lifecycle state of a background processing job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobLogLevel tags progress entries.
type JobLogLevel string

const (
	JobLogInfo    JobLogLevel = "info"
	JobLogSuccess JobLogLevel = "success"
	JobLogWarning JobLogLevel = "warning"
	JobLogError   JobLogLevel = "error"
)

// JobLogEntry is one timestamped progress message.
type JobLogEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Level     JobLogLevel `json:"level"`
	Message   string      `json:"message"`
}

// ProcessingJob tracks an asynchronous population run.
type ProcessingJob struct {
	ID          string          `json:"job_id"`
	Type        string          `json:"type"`
	ScheduleID  int64           `json:"schedule_id"`
	Status      JobStatus       `json:"status"`
	Logs        []JobLogEntry   `json:"logs"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      *PopulateResult `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}
