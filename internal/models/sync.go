package models

import "time"

// CalendarEvent is the calendar-side representation of a lesson.
type CalendarEvent struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	TimeZone    string    `json:"time_zone"`
}

// SyncOperation names a calendar call made during a sync.
type SyncOperation string

const (
	SyncOperationList   SyncOperation = "list"
	SyncOperationDelete SyncOperation = "delete"
	SyncOperationInsert SyncOperation = "insert"
)

// SyncFailure records one calendar call that failed.
type SyncFailure struct {
	Operation   SyncOperation `json:"operation"`
	EventID     string        `json:"event_id,omitempty"`
	RecordIndex int           `json:"record_index"`
	Summary     string        `json:"summary,omitempty"`
	Message     string        `json:"message"`
}

// SkippedRecord is a lesson that could not become a calendar event.
type SkippedRecord struct {
	RecordIndex int    `json:"record_index"`
	Subject     string `json:"subject"`
	Date        string `json:"date"`
	Reason      string `json:"reason"`
}

// SyncResult summarises a full-replace calendar sync.
type SyncResult struct {
	CalendarID string          `json:"calendar_id"`
	Listed     int             `json:"listed"`
	Deleted    int             `json:"deleted"`
	Inserted   int             `json:"inserted"`
	Skipped    []SkippedRecord `json:"skipped"`
	Failures   []SyncFailure   `json:"failures"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Failed reports whether any calendar call failed.
func (r *SyncResult) Failed() bool {
	return r != nil && len(r.Failures) > 0
}

// SyncStatus is the outcome of one schedule sync request.
type SyncStatus string

const (
	SyncStatusSynced     SyncStatus = "synced"
	SyncStatusPartial    SyncStatus = "partial"
	SyncStatusUnchanged  SyncStatus = "unchanged"
	SyncStatusNoSessions SyncStatus = "no_sessions"
)

// SyncOutcome is what a sync request reports back.
type SyncOutcome struct {
	Status  SyncStatus     `json:"status"`
	Lessons []LessonRecord `json:"lessons"`
	Sync    *SyncResult    `json:"sync,omitempty"`
}
