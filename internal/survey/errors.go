package survey

import (
	"fmt"
)

// SchemaError reports a required role that no column could be resolved to.
type SchemaError struct {
	Role    Role
	Headers []string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: required column %q could not be resolved from %d headers", e.Role, len(e.Headers))
}

// ParseError reports a timestamp that matched none of the configured layouts.
// It is local to a single record and never aborts the pipeline.
type ParseError struct {
	Value string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("temporal: cannot parse %q", e.Value)
}

// SourceUnavailableError reports that the raw table could not be fetched.
type SourceUnavailableError struct {
	Source string
	Cause  error
}

// Error implements the error interface
func (e *SourceUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Cause)
	}
	return fmt.Sprintf("source %s unavailable", e.Source)
}

// Unwrap allows errors.Is and errors.As to inspect the cause
func (e *SourceUnavailableError) Unwrap() error {
	return e.Cause
}
