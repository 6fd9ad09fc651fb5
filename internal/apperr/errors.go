// Package apperr defines the error taxonomy shared by the store, the remote
// source, and the edit session controller.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrNetwork    = errors.New("network error")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage unavailable")
	ErrReset      = errors.New("reset failed")

	ErrBusy         = errors.New("another operation is in progress for this record")
	ErrStale        = errors.New("result superseded by a newer request")
	ErrInvalidState = errors.New("operation not allowed in current state")
	ErrUnknownField = errors.New("unknown field")
	ErrNoRecord     = errors.New("no record loaded")
	ErrEmptyPatch   = errors.New("empty patch")
)

// NotFoundError reports that the remote source has no record for ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NetworkError reports an unreachable or failing remote source.
// Status is the HTTP status code, or 0 when no response was received.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: remote returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// StorageError wraps a failure of the local persistence backend.
type StorageError struct {
	Op  string
	ID  string
	Err error
}

func (e *StorageError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ResetError reports a reset that could not complete. Nothing was changed.
type ResetError struct {
	ID  string
	Err error
}

func (e *ResetError) Error() string {
	return fmt.Sprintf("reset %q: %v", e.ID, e.Err)
}

func (e *ResetError) Unwrap() error { return e.Err }

func (e *ResetError) Is(target error) bool { return target == ErrReset }

// ValidationError carries one message per invalid field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
