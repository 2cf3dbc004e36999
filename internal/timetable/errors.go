package timetable

import (
	"errors"
	"fmt"
)

var (
	// ErrBackend marks a failed call to the extraction backend (auth, quota,
	// network, rejected request). It is never retried by the core.
	ErrBackend = errors.New("extraction backend failed")

	// ErrMalformedResponse means the backend output was not JSON, even after
	// stripping code fences.
	ErrMalformedResponse = errors.New("malformed backend response")

	// ErrMissingTimeblocks means the parsed JSON has no timeblocks array.
	ErrMissingTimeblocks = errors.New("backend response has no timeblocks array")

	// ErrEmptyExtraction means the timeblocks array was present but empty.
	// A backend that returns nothing has almost always given up on the
	// document, so this is a failure and not "no events".
	ErrEmptyExtraction = errors.New("no timeblocks extracted: document too complex or unreadable")

	// ErrUnsupportedSource means no configured path can read the input type.
	ErrUnsupportedSource = errors.New("unsupported source document")
)

// BackendError carries the provider context of a failed backend call.
// errors.Is(err, ErrBackend) holds for every BackendError.
type BackendError struct {
	Provider   string
	StatusCode int // HTTP status when known, otherwise 0
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s backend error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s backend error: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrBackend without losing the wrapped cause.
func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// NewBackendError wraps err for provider. A nil err yields nil.
func NewBackendError(provider string, status int, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Provider: provider, StatusCode: status, Err: err}
}
