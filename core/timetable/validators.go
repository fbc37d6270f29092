package timetable

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/KrossV2/progresspace-app-sub001/core"
)

var (
	weekdayTag  = "weekday"
	weekdayText = "must be a day of the week, e.g. monday"

	clockTag  = "clock"
	clockText = "must be a time in the HH:MM format"

	lessonTypeTag  = "lessontype"
	lessonTypeText = "must be one of lecture, seminar, lab or exam"

	resourceRequiredTag  = "resource_required"
	resourceRequiredText = "one of teacher_id, room_id or class_id is required"
)

// InitValidators registers the timetable validators. core.InitValidators must be called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(weekdayTag, weekdayValidation)
	core.RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	_ = validate.RegisterValidation(clockTag, clockValidation)
	core.RegisterCustomTranslation(validate, translator, clockTag, clockText)

	_ = validate.RegisterValidation(lessonTypeTag, lessonTypeValidation)
	core.RegisterCustomTranslation(validate, translator, lessonTypeTag, lessonTypeText)

	validate.RegisterStructValidation(entryStructValidation, EntryInput{})
	core.RegisterCustomTranslation(validate, translator, resourceRequiredTag, resourceRequiredText)
}

// Custom Validators

func weekdayValidation(fl validator.FieldLevel) bool {
	_, err := ParseWeekday(fl.Field().String())
	return err == nil
}

func clockValidation(fl validator.FieldLevel) bool {
	_, err := ParseClock(fl.Field().String())
	return err == nil
}

func lessonTypeValidation(fl validator.FieldLevel) bool {
	return LessonType(fl.Field().String()).Valid()
}

// entryStructValidation checks that at least one resource is booked.
func entryStructValidation(sl validator.StructLevel) {
	in, ok := sl.Current().Interface().(EntryInput)
	if !ok {
		return
	}
	if in.TeacherID == "" && in.RoomID == "" && in.ClassID == "" {
		sl.ReportError(in.TeacherID, "teacher_id", "TeacherID", resourceRequiredTag, "")
		sl.ReportError(in.RoomID, "room_id", "RoomID", resourceRequiredTag, "")
		sl.ReportError(in.ClassID, "class_id", "ClassID", resourceRequiredTag, "")
	}
}
