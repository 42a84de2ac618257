package forms

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError is a local pre-flight failure. A form that returns one has
// not contacted the server.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %s (got %q)", e.Field, e.Reason, e.Value)
}

func RequireNonBlank(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

// ParseMinInt parses value as a decimal integer no smaller than min.
func ParseMinInt(field, value string, min int) (int, error) {
	if err := RequireNonBlank(field, value); err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &ValidationError{Field: field, Value: value, Reason: "must be a whole number"}
	}
	if n < min {
		return 0, &ValidationError{Field: field, Value: value, Reason: fmt.Sprintf("must be at least %d", min)}
	}
	return n, nil
}

// ParsePositiveInt parses value as an integer greater than zero.
func ParsePositiveInt(field, value string) (int, error) {
	return ParseMinInt(field, value, 1)
}

// ParseBool accepts "true" and "false" in any case.
func ParseBool(field, value string) (bool, error) {
	switch {
	case strings.EqualFold(value, "true"):
		return true, nil
	case strings.EqualFold(value, "false"):
		return false, nil
	}
	return false, &ValidationError{Field: field, Value: value, Reason: "must be true or false"}
}

// FormatBool renders b the way the server expects it.
func FormatBool(b bool) string {
	return strconv.FormatBool(b)
}
