package dto

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one failed field validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrorResponse is the body returned for request binding failures.
type ValidationErrorResponse struct {
	Errors []FieldError `json:"errors"`
}

// ToValidationErrorResponse turns a gin binding error into a field-level
// error list. Non-validator errors (malformed JSON) yield a single entry.
func ToValidationErrorResponse(err error) ValidationErrorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationErrorResponse{Errors: []FieldError{{Field: "body", Message: err.Error()}}}
	}

	fieldErrors := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   strings.ToLower(fe.Field()[:1]) + fe.Field()[1:],
			Message: validationMessage(fe),
		})
	}
	return ValidationErrorResponse{Errors: fieldErrors}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " elements"
	case "max":
		return "must have at most " + fe.Param() + " elements"
	default:
		return "failed validation on " + fe.Tag()
	}
}
