package report

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/KrossV2/progresspace-app-sub001/core"
)

var (
	attendanceTag  = "attendance"
	attendanceText = "must be one of present, absent, late or excused"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(attendanceTag, attendanceValidation)
	core.RegisterCustomTranslation(validate, translator, attendanceTag, attendanceText)
}

func attendanceValidation(fl validator.FieldLevel) bool {
	return AttendanceStatus(fl.Field().String()).Valid()
}
