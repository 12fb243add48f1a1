package arcgis

import (
	"errors"
	"fmt"
)

// Common configuration errors surfaced before any feature query runs.
var (
	// ErrMissingIdentifierField is returned when a service supports neither
	// offset pagination nor exposes a unique identifier field, leaving no
	// way to partition the record set.
	ErrMissingIdentifierField = errors.New("arcgis: service has no identifier field")

	// ErrMissingIdentifierBounds is returned when the identifier field is
	// known but its min/max bounds could not be resolved.
	ErrMissingIdentifierBounds = errors.New("arcgis: identifier bounds unavailable")
)

// SchemaError reports a missing or mistyped key in service metadata.
// It is a configuration error: the run aborts before any chunk is fetched.
type SchemaError struct {
	Key    string
	Reason string
	Raw    string
}

func (e *SchemaError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("arcgis: metadata key %q: %s: %q", e.Key, e.Reason, e.Raw)
	}
	return fmt.Sprintf("arcgis: metadata key %q: %s", e.Key, e.Reason)
}
