// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound = errors.New("entity not found")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")

	// Storage errors
	ErrPersistence        = errors.New("persistence error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrStaleVersion       = errors.New("stale snapshot version")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "catalog", "streak"
	Op      string // Operation that failed, e.g., "UnlockBadge", "Load"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progress domain errors
var (
	ErrSnapshotNotFound  = NewDomainError("progress", "Load", ErrNotFound, "progress snapshot not found")
	ErrUnknownBadge      = NewDomainError("progress", "UnlockBadge", ErrInvalidID, "unknown badge id")
	ErrNegativePoints    = NewDomainError("progress", "AwardPoints", ErrNegativeValue, "points cannot be negative")
	ErrUnknownStreakKind = NewDomainError("progress", "UpdateStreak", ErrInvalidInput, "unknown streak kind")
	ErrEmptyEventType    = NewDomainError("progress", "TrackEvent", ErrEmptyValue, "event type cannot be empty")
	ErrNoUser            = NewDomainError("progress", "Resolve", ErrUnauthorized, "no authenticated user")
	ErrSnapshotStale     = NewDomainError("progress", "Save", ErrStaleVersion, "stored snapshot is newer or equal")
)

// Catalog errors
var (
	ErrInvalidCatalog = NewDomainError("catalog", "Validate", ErrValidation, "invalid catalog")
	ErrUnknownMetric  = NewDomainError("catalog", "Validate", ErrInvalidInput, "unknown achievement metric")
)

// NewPersistenceError wraps a storage failure.
func NewPersistenceError(op string, err error) *DomainError {
	return WrapError("storage", op, ErrPersistence, "persistence operation failed", err)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsStale reports whether a save was rejected by the version guard.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleVersion)
}

// IsPersistence checks if the error came from a storage gateway.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
