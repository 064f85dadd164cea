package models

import (
	"fmt"
	"time"
)

const (
	// WholeGroup is the group value used when a lesson names no stream or subgroup.
	WholeGroup = "Вся група"

	// SiteDateLayout is the day-month-year form the timetable site expects and prints.
	SiteDateLayout = "02.01.2006"
	// DateLayout is the normalized ISO date carried by LessonRecord.Date.
	DateLayout = "2006-01-02"
	// ClockLayout is the layout of LessonRecord.Start and LessonRecord.End.
	ClockLayout = "15:04"
)

// LessonRecord is one scheduled session extracted from the timetable page.
// All fields are comparable so snapshots can be compared element by element.
type LessonRecord struct {
	Date         string `json:"date"`
	LessonNumber string `json:"lesson_number"`
	Time         string `json:"time"`
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
	Room         string `json:"room"`
	Teacher      string `json:"teacher"`
	Group        string `json:"group"`
	Subject      string `json:"subject"`
	LessonType   string `json:"lesson_type"`
	Remote       bool   `json:"remote"`
}

// HasTimeRange reports whether the source exposed a start and end time.
func (r LessonRecord) HasTimeRange() bool {
	return r.Start != "" && r.End != ""
}

// TimeRange combines the lesson date with its start and end clock times in loc.
func (r LessonRecord) TimeRange(loc *time.Location) (time.Time, time.Time, error) {
	if !r.HasTimeRange() {
		return time.Time{}, time.Time{}, fmt.Errorf("lesson %q on %s has no time range", r.Subject, r.Date)
	}
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation(DateLayout+" "+ClockLayout, r.Date+" "+r.Start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse lesson start: %w", err)
	}
	end, err := time.ParseInLocation(DateLayout+" "+ClockLayout, r.Date+" "+r.End, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse lesson end: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("lesson %q on %s ends before it starts", r.Subject, r.Date)
	}
	return start, end, nil
}

// TimetableQuery is what gets typed into the timetable form.
type TimetableQuery struct {
	Group     string
	StartDate string
	EndDate   string
}

// CacheKey identifies the query in the schedule cache.
func (q TimetableQuery) CacheKey() string {
	return fmt.Sprintf("timetable:%s:%s:%s", q.Group, q.StartDate, q.EndDate)
}
