// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var paymentRefPattern = regexp.MustCompile(`^[0-9]{6,12}$`)

func init() {
	validate = validator.New()
	validate.RegisterValidation("payment_ref", validatePaymentRef)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// Bank transfer references are 6-12 digit strings; anything else cannot
// be matched against an order and is rejected up front.
func validatePaymentRef(fl validator.FieldLevel) bool {
	return paymentRefPattern.MatchString(fl.Field().String())
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param() + " characters"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "gt":
		return e.Field() + " must be greater than " + e.Param()
	case "payment_ref":
		return "Payment reference must be 6-12 digits"
	default:
		return e.Field() + " is invalid"
	}
}
