package model

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Rank orders statuses by forward progress. Terminal statuses share the top
// rank; an unknown status ranks below everything and is never applied.
func (s JobStatus) Rank() int {
	switch s {
	case JobStatusPending:
		return 1
	case JobStatusProcessing:
		return 2
	case JobStatusCompleted, JobStatusFailed:
		return 3
	default:
		return 0
	}
}

func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

func (s JobStatus) Valid() bool { return s.Rank() > 0 }

// Job is one client-tracked transformation request. The backend assigns the
// ID at submission; a locally rejected request never becomes a Job.
type Job struct {
	ID          string
	Type        TransformationType
	Status      JobStatus
	InputURL    string
	OutputURL   string
	Error       string
	CreatedAt   time.Time
	CompletedAt time.Time
}

func (j *Job) IsZero() bool { return j == nil || j.ID == "" }

// Advance applies a polled status update, enforcing forward-only movement:
// a report that ranks below the recorded status is stale and is dropped.
// Returns true when the update was applied.
func (j *Job) Advance(status JobStatus, outputURL string, completedAt time.Time) bool {
	if !status.Valid() || j.Status.Terminal() {
		return false
	}
	if status.Rank() < j.Status.Rank() {
		return false
	}
	j.Status = status
	if outputURL != "" {
		j.OutputURL = outputURL
	}
	if status.Terminal() && j.CompletedAt.IsZero() {
		if completedAt.IsZero() {
			completedAt = time.Now()
		}
		j.CompletedAt = completedAt
	}
	return true
}
