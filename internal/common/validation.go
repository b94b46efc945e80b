package common

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError is the first failing rule of one payment field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
	Cause   error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s (got %q)", e.Field, e.Message, fmt.Sprint(e.Value))
}

func (e ValidationError) Unwrap() error {
	return e.Cause
}

// Validator collects field failures so every field is reported at once.
type Validator struct {
	failures []ValidationError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field validates a field and collects errors. Only the first failing rule
// of a field is recorded.
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.failures = append(v.failures, *err)
			break
		}
	}
	return v
}

// Error returns nil or a *ValidationFailedError holding every collected failure.
func (v *Validator) Error() error {
	if len(v.failures) == 0 {
		return nil
	}
	fields := make([]ValidationError, len(v.failures))
	copy(fields, v.failures)
	return &ValidationFailedError{Fields: fields}
}

// ValidationRule returns nil when value passes.
type ValidationRule func(fieldName string, value any) *ValidationError

// Required rejects nil values and blank strings.
func Required(fieldName string, value any) *ValidationError {
	blank := value == nil
	switch v := value.(type) {
	case string:
		blank = strings.TrimSpace(v) == ""
	case *string:
		blank = v == nil || strings.TrimSpace(*v) == ""
	}
	if blank {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

func CurrencyCode(fieldName string, value any) *ValidationError {
	if str, ok := value.(string); ok && currencyRegex.MatchString(str) {
		return nil
	}
	return &ValidationError{Field: fieldName, Value: value, Message: "must be an ISO 4217 code"}
}
