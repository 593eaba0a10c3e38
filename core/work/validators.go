package work

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classboard/core"
)

var (
	workStateTag  = "workstate"
	workStateText = `state must be one of "completed", "doing" or "not yet started"`
)

// InitValidators registers the work validators. Must be called after core.InitValidators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(workStateTag, func(fl validator.FieldLevel) bool {
		return IsValidState(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, workStateTag, workStateText)
}
