package models

import "fmt"

// SchemaError reports malformed input bars: a missing column, a bad value or bad ordering.
type SchemaError struct {
	Column string
	Row    int // -1 when the error is not tied to a row
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("schema: column %q row %d: %s", e.Column, e.Row, e.Reason)
	}
	return fmt.Sprintf("schema: column %q: %s", e.Column, e.Reason)
}

// InvalidField names the offending column to request validators.
func (e *SchemaError) InvalidField() string { return e.Column }

// ConfigurationError reports an invalid parameter.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
