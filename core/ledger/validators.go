package ledger

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/academia/sims/core"
)

var (
	enrollmentStatusTag  = "enrollmentstatus"
	enrollmentStatusText = "status must be one of Enrolled, Completed or Dropped"

	gradeStatusTag  = "gradestatus"
	gradeStatusText = "status must be one of Pending, Passed, Failed or Incomplete"

	termTag   = "term"
	termText  = "invalid term"
	termRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _-]{0,19}$`)
)

// InitValidators registers the ledger validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(enrollmentStatusTag, func(fl validator.FieldLevel) bool {
		return EnrollmentStatus(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, enrollmentStatusTag, enrollmentStatusText)

	_ = validate.RegisterValidation(gradeStatusTag, func(fl validator.FieldLevel) bool {
		return GradeStatus(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, gradeStatusTag, gradeStatusText)

	_ = validate.RegisterValidation(termTag, func(fl validator.FieldLevel) bool {
		return termRegex.MatchString(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, termTag, termText)
}
