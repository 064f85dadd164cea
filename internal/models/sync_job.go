package models

import "time"

// SyncJobStatus captures background sync lifecycle states.
type SyncJobStatus string

const (
	SyncJobQueued     SyncJobStatus = "QUEUED"
	SyncJobProcessing SyncJobStatus = "PROCESSING"
	SyncJobFinished   SyncJobStatus = "FINISHED"
	SyncJobFailed     SyncJobStatus = "FAILED"
)

// SyncJob tracks an asynchronous sync request.
type SyncJob struct {
	ID         string        `json:"id"`
	Status     SyncJobStatus `json:"status"`
	Group      string        `json:"group"`
	StartDate  string        `json:"start_date"`
	EndDate    string        `json:"end_date"`
	Attempts   int           `json:"attempts"`
	Outcome    *SyncOutcome  `json:"outcome,omitempty"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}
