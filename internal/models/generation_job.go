package models

import "time"

// GenerationJobStatus captures background generation lifecycle states.
type GenerationJobStatus string

const (
	GenerationJobQueued    GenerationJobStatus = "QUEUED"
	GenerationJobRunning   GenerationJobStatus = "RUNNING"
	GenerationJobSucceeded GenerationJobStatus = "SUCCEEDED"
	GenerationJobFailed    GenerationJobStatus = "FAILED"
)

// Finished reports whether the job reached a terminal state.
func (s GenerationJobStatus) Finished() bool {
	return s == GenerationJobSucceeded || s == GenerationJobFailed
}

// GenerationJob tracks an asynchronous timetable-set generation.
type GenerationJob struct {
	ID          string              `json:"id"`
	Status      GenerationJobStatus `json:"status"`
	Requested   int                 `json:"requested"`
	ProposalIDs []string            `json:"proposal_ids,omitempty"`
	BestScore   *int                `json:"best_score,omitempty"`
	Error       string              `json:"error,omitempty"`
	Hint        string              `json:"hint,omitempty"`
	CreatedBy   string              `json:"created_by,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
}
