package portal

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/portal/api"
	"github.com/xraph/portal/estimate"
	"github.com/xraph/portal/pending"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("portal: not found")
	ErrInvalidInput = errors.New("portal: invalid input")

	// Snapshot errors
	ErrSnapshotNotFound    = errors.New("portal: snapshot not found")
	ErrMissingOrganization = errors.New("portal: subscription has no organization")

	// Mutation errors
	ErrMutationInFlight  = pending.ErrMutationInFlight
	ErrActionUnavailable = errors.New("portal: action not available")
	ErrStaleResponse     = errors.New("portal: stale response dropped")

	// Estimate errors
	ErrCurrencyMismatch = estimate.ErrCurrencyMismatch
	ErrAmountOverflow   = estimate.ErrAmountOverflow

	// Link errors
	ErrMissingLink = errors.New("portal: backend returned no link")

	// Store errors
	ErrStoreNotReady   = errors.New("portal: store not ready")
	ErrStoreClosed     = errors.New("portal: store is closed")
	ErrMigrationFailed = errors.New("portal: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("portal: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "portal: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("portal: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrorOrNil returns e when it holds errors, nil otherwise.
func (e MultiError) ErrorOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// MutationError is a failed cancel, uncancel or plan change. The stored
// snapshot is left unchanged and the pending slot is released, so the
// customer may retry.
type MutationError struct {
	Op             string
	SubscriptionID string
	Err            error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("portal: %s %s: %v", e.Op, e.SubscriptionID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSnapshotNotFound) ||
		errors.Is(err, api.ErrNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried. A failed mutation is always retryable from the customer's
// side unless the API rejected it as not found.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var me *MutationError
	if errors.As(err, &me) {
		return !IsNotFound(me.Err)
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return errors.Is(err, ErrMutationInFlight) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsDataError returns true for contract violations in upstream data. These
// are programming or data errors, never shown to the customer.
func IsDataError(err error) bool {
	return errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrAmountOverflow) ||
		errors.Is(err, ErrMissingOrganization)
}
