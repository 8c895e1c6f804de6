package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by the repository when a row does not exist.
var ErrNotFound = errors.New("record not found")

// ValidationError rejects a request before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// TransientIOError wraps a backend or network failure. It is surfaced to the caller
// for retry messaging and never retried here.
type TransientIOError struct {
	Op  string
	Err error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientIOError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientIOError. nil stays nil, and an error that is
// already transient or not-found is returned untouched.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransientIOError
	if errors.As(err, &te) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &TransientIOError{Op: op, Err: err}
}

// NonFatalPlaybackError marks a failed audible alert. Logged and ignored.
type NonFatalPlaybackError struct {
	Err error
}

func (e *NonFatalPlaybackError) Error() string {
	return fmt.Sprintf("alert playback failed: %v", e.Err)
}

func (e *NonFatalPlaybackError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsTransient(err error) bool {
	var te *TransientIOError
	return errors.As(err, &te)
}
