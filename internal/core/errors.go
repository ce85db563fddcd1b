package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")

	// ErrNotFound covers both "doesn't exist" and "exists but outside the
	// caller's scope". The two are deliberately indistinguishable so that
	// existence never leaks across tenants.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials covers every login failure: unknown username,
	// wrong password, and reserved usernames on the regular login path.
	// One error for all three, so none of them is distinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrLoginRequired means no identity was present for an operation that
	// needs one. Surfaced as a redirect-to-login outcome.
	ErrLoginRequired = errors.New("login required")

	// ErrAccessDenied means an identity was present but its tier is
	// insufficient for the requested action.
	ErrAccessDenied = errors.New("access denied")
)

// ValidationError carries field-level messages for malformed input. It is
// handled at the action boundary and never persists partial records.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}
	v.Fields[field] = msg
}

func (v *ValidationError) Error() string {
	if len(v.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(v.Fields))
	for field, msg := range v.Fields {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// StorageError wraps an unexpected persistence fault. The operation left
// prior data untouched and may be retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorage reports whether err is (or wraps) a StorageError.
func IsStorage(err error) bool {
	var s *StorageError
	return errors.As(err, &s)
}
