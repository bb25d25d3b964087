package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Photo is a single submitted image. Data is usually a data URL
// (data:image/jpeg;base64,...) but any URL the provider accepts works.
type Photo struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// Job tracks one video generation attempt.
type Job struct {
	ID          string
	Status      JobStatus
	Prompt      string
	PhotoCount  int
	VideoURL    string
	Error       string
	Details     string
	Model       string
	CreatedAt   time.Time
	CompletedAt time.Time
}

// Clone returns a copy safe to hand out of a store.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	return &cp
}

// JobUpdate is merged into an existing job. Zero-valued fields are left untouched.
type JobUpdate struct {
	Status      JobStatus
	VideoURL    string
	Error       string
	Details     string
	Model       string
	CompletedAt time.Time
}

// Completed builds the terminal update for a successful generation.
func Completed(videoURL, model string, at time.Time) JobUpdate {
	return JobUpdate{Status: JobStatusCompleted, VideoURL: videoURL, Model: model, CompletedAt: at}
}

// Failed builds the terminal update for a failed generation.
func Failed(msg, details, model string, at time.Time) JobUpdate {
	return JobUpdate{Status: JobStatusFailed, Error: msg, Details: details, Model: model, CompletedAt: at}
}
