/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The leave package and the stores wrap these with context.

ERROR CATEGORIES:
  1. Validation errors - bad input, rejected before any state change
  2. NotFound errors - missing balance record, request or rollover source
  3. Consistency errors - concurrent writes, failed transactions, maintenance

  Accrual cache mismatches are NOT errors. They are reconciled and logged.

USAGE:
  if generic.IsNotFound(err) {
      // fall back to the previous year's record
  }

SEE ALSO:
  - leave/rollover.go: NotFound when no active source records exist
  - store/postgres/errors.go: pgconn codes translated to these sentinels
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation marks bad caller input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing record.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a (email, year) record or a request
	// id is inserted twice.
	ErrAlreadyExists = errors.New("already exists")

	// ErrConcurrentModification is returned when a row changed underneath a writer.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrTransactionFailed wraps a failure that rolled a transaction back.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrInvalidTransition is returned for a request status change that the
	// lifecycle does not allow (e.g. cancelling a rejected request).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMaintenanceMode is returned by mutating operations while the
	// process is in maintenance mode.
	ErrMaintenanceMode = errors.New("maintenance mode is on")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError names what was looked up.
type NotFoundError struct {
	Kind string // e.g. "balance record", "leave request"
	Key  string
}

func NewNotFoundError(kind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsValidation returns true if the error is due to invalid client input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidTransition)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true for errors caused by existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrMaintenanceMode)
}
