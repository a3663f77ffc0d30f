package domain

import "time"

// JobState tracks an asynchronous generation job through its lifecycle.
type JobState string

const (
	JobSubmitted  JobState = "SUBMITTED"
	JobPending    JobState = "PENDING"
	JobProcessing JobState = "PROCESSING"
	JobDone       JobState = "DONE"
	JobFailed     JobState = "FAILED"
	JobTimedOut   JobState = "TIMED_OUT"
)

// Terminal reports whether the state ends the polling lifecycle.
func (s JobState) Terminal() bool {
	switch s {
	case JobDone, JobFailed, JobTimedOut:
		return true
	}
	return false
}

// Job is the unit of work tracked while an asynchronous provider renders a
// batch. Handles are populated only once the job reaches DONE and keep the
// provider's reported order.
type Job struct {
	ID          string
	State       JobState
	SubmittedAt time.Time
	Handles     []string
}
