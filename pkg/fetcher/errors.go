package fetcher

import (
	"errors"
	"fmt"
)

// ErrorClass tags a fetch failure for the retry loop. The loop inspects
// the class directly; no dynamic type inspection happens anywhere else.
type ErrorClass string

const (
	// ErrorClassTransient marks failures worth retrying: bad status,
	// unparsable body, or a service-reported error payload.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassFatal marks data contract violations, such as a malformed
	// feature inside an otherwise successful response. Never retried.
	ErrorClassFatal ErrorClass = "fatal"

	// ErrorClassExhausted marks a chunk whose retry budget ran out.
	ErrorClassExhausted ErrorClass = "exhausted"
)

// FetchError is a classified chunk fetch failure.
type FetchError struct {
	Class  ErrorClass
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s error: %s: %v", e.Class, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s error: %s", e.Class, e.Reason)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient builds a retryable fetch error.
func Transient(reason string, err error) *FetchError {
	return &FetchError{Class: ErrorClassTransient, Reason: reason, Err: err}
}

// Fatal builds a non-retryable fetch error.
func Fatal(reason string, err error) *FetchError {
	return &FetchError{Class: ErrorClassFatal, Reason: reason, Err: err}
}

// classOf extracts the error class, defaulting to fatal for unclassified
// errors so unknown failures never loop.
func classOf(err error) ErrorClass {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ErrorClassFatal
}

// IsTransient reports whether err is a retryable fetch failure.
func IsTransient(err error) bool {
	return classOf(err) == ErrorClassTransient
}

// IsExhausted reports whether err is an exhausted-retries failure.
func IsExhausted(err error) bool {
	return classOf(err) == ErrorClassExhausted
}
