package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	MaxScopeLength = 128
	MaxIDLength    = 128

	// Scopes and node ids travel in URL paths and SQL parameters
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_.:\-]+$`)
)

// ErrNilValue is returned when a nil pointer is handed to Struct
var ErrNilValue = errors.New("value cannot be nil")

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// Struct validates v against its `validate` struct tags and returns the first
// failure in a readable form.
func Struct(v any) error {
	if v == nil {
		return ErrNilValue
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateScope checks a graph-loading scope such as an order id or "all"
func ValidateScope(scope string) error {
	return validateIdentifier("scope", scope, MaxScopeLength)
}

// ValidateNodeID checks an id before it is sent to the data service
func ValidateNodeID(id string) error {
	return validateIdentifier("node id", id, MaxIDLength)
}

func validateIdentifier(kind, value string, max int) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	if len(value) > max {
		return fmt.Errorf("%s exceeds maximum length of %d characters", kind, max)
	}
	if !identifierPattern.MatchString(value) {
		return fmt.Errorf("%s %q contains invalid characters", kind, value)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s], got %q", field, param, fmt.Sprint(e.Value()))
		case "url", "http_url":
			return fmt.Errorf("%s: must be a valid URL", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
