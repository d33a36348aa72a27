// Package validation wraps go-playground/validator for request payloads.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/target/surveystats/internal/errors"
)

// Rule registers a custom tag on the underlying validator.
type Rule struct {
	Tag  string
	Func validator.Func
}

// Validator checks struct tags and reports failures as validation AppErrors.
// Field names in messages follow the json tag of the field.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator with the built-in rules plus notblank.
func New(rules ...Rule) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	for _, r := range append([]Rule{{Tag: "notblank", Func: notBlank}}, rules...) {
		if err := v.RegisterValidation(r.Tag, r.Func); err != nil {
			//nolint:forbidigo // rule tags are compile-time constants
			panic(fmt.Sprintf("register validation %q: %v", r.Tag, err))
		}
	}
	return &Validator{validate: v}
}

// Struct validates s. The first failing field becomes an AppError carrying that field name.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid request")
	}
	fe := fieldErrs[0]
	return apperrors.ValidationField(fe.Field(), Message(fe))
}

// Message renders a human readable message for one failed rule.
func Message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return !field.IsZero()
	}
	s := strings.TrimSpace(field.String())
	return s != "" && utf8.ValidString(s)
}
