// Package validation checks request DTOs against their `validate` struct tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// FieldViolation is one failed rule on one field, named by its JSON key.
type FieldViolation struct {
	Field   string
	Message string
}

// Messages maps "field.tag" (JSON field name, validator tag) to the message to report.
type Messages map[string]string

// Validator reports every failing field of a struct, in field order.
type Validator struct {
	validate *validator.Validate
	messages Messages
}

// New creates a Validator with the notblank rule registered.
func New(messages Messages) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	return &Validator{
		validate: v,
		messages: messages,
	}
}

// Struct validates s. It returns no violations when s is valid; the error is
// non-nil only when s cannot be validated at all.
func (v *Validator) Struct(s any) ([]FieldViolation, error) {
	err := v.validate.Struct(s)
	if err == nil {
		return nil, nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, fmt.Errorf("validation: %w", err)
	}

	violations := make([]FieldViolation, 0, len(validationErrors))
	for _, e := range validationErrors {
		violations = append(violations, FieldViolation{
			Field:   e.Field(),
			Message: v.message(e),
		})
	}
	return violations, nil
}

func (v *Validator) message(e validator.FieldError) string {
	if msg, ok := v.messages[e.Field()+"."+e.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}
