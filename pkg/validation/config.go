package validation

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ConfigValidator provides a fluent interface for validating configuration values.
// It collects all validation errors rather than failing on the first one.
type ConfigValidator struct {
	errors []error
	name   string // config section name for error messages
}

// NewConfigValidator creates a new config validator with the given section name.
func NewConfigValidator(configName string) *ConfigValidator {
	return &ConfigValidator{
		name:   configName,
		errors: make([]error, 0),
	}
}

func (cv *ConfigValidator) addf(field, format string, args ...any) {
	cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %s", cv.name, field, fmt.Sprintf(format, args...)))
}

// Required validates that a string field is not empty.
func (cv *ConfigValidator) Required(field, value string) *ConfigValidator {
	if value == "" {
		cv.addf(field, "required field is empty")
	}
	return cv
}

// RangeInt validates that an int field is within [min, max].
func (cv *ConfigValidator) RangeInt(field string, value, min, max int) *ConfigValidator {
	if value < min || value > max {
		cv.addf(field, "value %d is outside range [%d, %d]", value, min, max)
	}
	return cv
}

// RangeDuration validates that a duration is within [min, max].
func (cv *ConfigValidator) RangeDuration(field string, value, min, max time.Duration) *ConfigValidator {
	if value < min || value > max {
		cv.addf(field, "duration %v is outside range [%v, %v]", value, min, max)
	}
	return cv
}

// PositiveFloat validates that a float field is positive (> 0).
func (cv *ConfigValidator) PositiveFloat(field string, value float64) *ConfigValidator {
	if value <= 0 {
		cv.addf(field, "value %g must be positive", value)
	}
	return cv
}

// OneOf validates that a string field is one of the allowed values.
func (cv *ConfigValidator) OneOf(field, value string, allowed []string) *ConfigValidator {
	for _, a := range allowed {
		if value == a {
			return cv
		}
	}
	cv.addf(field, "value %q must be one of %v", value, allowed)
	return cv
}

// URL validates that a string field is an absolute http(s) URL.
func (cv *ConfigValidator) URL(field, value string) *ConfigValidator {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		cv.addf(field, "value %q is not an absolute http(s) URL", value)
	}
	return cv
}

// Custom applies a custom validation function.
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %w", cv.name, field, err))
	}
	return cv
}

// When conditionally applies validations if the condition is true.
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

// HasErrors returns true if any validation errors occurred.
func (cv *ConfigValidator) HasErrors() bool {
	return len(cv.errors) > 0
}

// Errors returns all validation errors.
func (cv *ConfigValidator) Errors() []error {
	return cv.errors
}

// Validate returns all collected errors joined, or nil.
func (cv *ConfigValidator) Validate() error {
	if len(cv.errors) == 0 {
		return nil
	}
	return errors.Join(cv.errors...)
}

// DefaultOr returns the value if it's non-zero, otherwise returns the default.
func DefaultOr[T comparable](value, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
