package dto

// SyncRequest asks for the timetable of a date range to be mirrored into the calendar.
// Dates are ISO-8601 dates or timestamps.
type SyncRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
	StartDate   string `json:"start_date" validate:"required"`
	EndDate     string `json:"end_date" validate:"required"`
	Group       string `json:"group"`
}

// SyncJobAccepted is returned when a sync is queued.
type SyncJobAccepted struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}
