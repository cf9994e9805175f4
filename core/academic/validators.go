package academic

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darien/gradebook/core"
)

var (
	attStatusTag  = "attstatus"
	attStatusText = "status must be one of: present, absent_excused, absent_unexcused"

	lessonSpanTag  = "lessonspan"
	lessonSpanText = "end time must be after start time"
)

// InitValidators registers the academic validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(attStatusTag, attStatusValidation)
	core.RegisterCustomTranslation(validate, translator, attStatusTag, attStatusText)

	validate.RegisterStructValidation(lessonStructValidation, NewLesson{})
	core.RegisterCustomTranslation(validate, translator, lessonSpanTag, lessonSpanText)
}

func attStatusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range AttendanceStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// lessonStructValidation: HH:MM strings order like the times they encode.
func lessonStructValidation(sl validator.StructLevel) {
	nl := sl.Current().Interface().(NewLesson)
	if nl.StartTime != "" && nl.EndTime != "" && nl.EndTime <= nl.StartTime {
		sl.ReportError(nl.EndTime, "end_time", "EndTime", lessonSpanTag, "")
	}
}
