package v1

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hrygo/tvuschedule/internal/errors"
	"github.com/hrygo/tvuschedule/plugin/academic/semester"
)

const semesterTag = "semester"

// requestValidator implements echo.Validator. Failures are reported as
// INVALID_ARGUMENT errors naming the offending parameter.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report query or JSON parameter names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"query", "json"} {
			if name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]; name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	if err := v.RegisterValidation(semesterTag, func(fl validator.FieldLevel) bool {
		_, err := semester.ParseID(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", semesterTag, err))
	}
	return &requestValidator{validate: v}
}

func (v *requestValidator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.InvalidArgument(err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.InvalidArgument(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("parameter %s is required", fe.Field())
	case "max":
		return fmt.Sprintf("parameter %s must be at most %s characters", fe.Field(), fe.Param())
	case semesterTag:
		return fmt.Sprintf("parameter %s must be a semester code such as 20251", fe.Field())
	default:
		return fmt.Sprintf("parameter %s is invalid (%s)", fe.Field(), fe.Tag())
	}
}
