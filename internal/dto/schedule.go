package dto

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
)

// ScheduleRequest is the timetable lookup accepted as a form or as JSON.
type ScheduleRequest struct {
	Group     string `form:"group" json:"group" validate:"required"`
	StartDate string `form:"sdate" json:"sdate" validate:"required,sitedate"`
	EndDate   string `form:"edate" json:"edate" validate:"required,sitedate"`
}

// Query converts the request into what gets typed into the timetable form.
func (r ScheduleRequest) Query() models.TimetableQuery {
	return models.TimetableQuery{Group: r.Group, StartDate: r.StartDate, EndDate: r.EndDate}
}

// ExportRequest selects the schedule and the file format of an export.
type ExportRequest struct {
	ScheduleRequest
	Format string `form:"format" json:"format" validate:"omitempty,oneof=csv pdf"`
}

// RegisterValidations adds the custom tags used by the request types.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("sitedate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.SiteDateLayout, fl.Field().String())
		return err == nil
	})
}

// NewValidator returns a validator with the custom tags registered. Field errors
// carry the form or JSON name of the field.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}
