package service

import (
	"context"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
)

// ScheduleStore keeps the last schedule that was mirrored into the calendar.
// Load returns an empty schedule when nothing was stored yet. Persist overwrites
// the whole snapshot.
type ScheduleStore interface {
	Load(ctx context.Context) ([]models.LessonRecord, error)
	Persist(ctx context.Context, records []models.LessonRecord) error
}

// DiffSchedules reports whether next differs from previous. Order matters, so a
// reordered but otherwise identical schedule counts as changed. Nil and empty are equal.
func DiffSchedules(previous, next []models.LessonRecord) bool {
	if len(previous) != len(next) {
		return true
	}
	for i := range previous {
		if previous[i] != next[i] {
			return true
		}
	}
	return false
}
