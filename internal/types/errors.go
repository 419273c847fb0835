package types

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a single requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed input: either caller input rejected before
// any network call, or an upstream payload that failed normalization
// (Upstream set).
type ValidationError struct {
	Field    string
	Value    string
	Reason   string
	Upstream bool
}

func (e *ValidationError) Error() string {
	if e.Upstream {
		if e.Value == "" {
			return fmt.Sprintf("malformed upstream %s: %s", e.Field, e.Reason)
		}
		return fmt.Sprintf("malformed upstream %s %q: %s", e.Field, e.Value, e.Reason)
	}
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Invalid is shorthand for constructing a *ValidationError.
func Invalid(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// InvalidUpstream is shorthand for a *ValidationError raised while
// normalizing an upstream payload.
func InvalidUpstream(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason, Upstream: true}
}

// ConfigurationError reports missing or unusable settings. It is never retried.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Key, e.Reason)
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInputValidation reports whether err is a *ValidationError about caller input.
func IsInputValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && !ve.Upstream
}

// IsConfiguration reports whether err is (or wraps) a *ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
