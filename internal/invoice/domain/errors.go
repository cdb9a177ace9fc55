package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrNotFound               = errors.New("invoice_not_found")
	ErrInvalidTransition      = errors.New("invalid_transition")
	ErrMalformedInvoiceNumber = errors.New("malformed_invoice_number")
	ErrConcurrencyConflict    = errors.New("concurrency_conflict")
	ErrValidation             = errors.New("validation_error")
	ErrDeliveryFailed         = errors.New("delivery_failed")
	ErrInvalidTenant          = errors.New("invalid_tenant")
	ErrInvalidID              = errors.New("invalid_id")
)

// StatusDeleted is the pseudo-target reported when a delete is refused.
const StatusDeleted InvoiceStatus = "deleted"

// TransitionError reports a refused state change.
type TransitionError struct {
	From InvoiceStatus
	To   InvoiceStatus
}

func NewTransitionError(from, to InvoiceStatus) error {
	return &TransitionError{From: from, To: to}
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
