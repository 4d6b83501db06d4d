package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services wraps exactly one of these.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrIdentityMismatch  = errors.New("identity mismatch")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrOverpayment       = errors.New("payment exceeds remaining balance")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrConflict          = errors.New("conflict")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound      = "LOAN_NOT_FOUND"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeValidation        = "VALIDATION_FAILED"
	ErrCodeIdentityMismatch  = "IDENTITY_MISMATCH"
	ErrCodeIllegalTransition = "ILLEGAL_TRANSITION"
	ErrCodeOverpayment       = "OVERPAYMENT"
	ErrCodePermissionDenied  = "PERMISSION_DENIED"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeStoreUnavailable  = "STORE_UNAVAILABLE"
)

func WrapLoanNotFound(id string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", id),
		ErrNotFound,
	)
}

func WrapUserNotFound(ref string) *BusinessError {
	return NewBusinessError(
		ErrCodeUserNotFound,
		fmt.Sprintf("User %s not found", ref),
		ErrNotFound,
	)
}

func WrapValidation(message string) *BusinessError {
	return NewBusinessError(ErrCodeValidation, message, ErrValidation)
}

func WrapIdentityMismatch(nin, boundName, givenName string) *BusinessError {
	return NewBusinessError(
		ErrCodeIdentityMismatch,
		fmt.Sprintf("NIN %s is registered to %s, not %s", nin, boundName, givenName),
		ErrIdentityMismatch,
	)
}

func WrapIllegalTransition(loanRef, status, operation string) *BusinessError {
	return NewBusinessError(
		ErrCodeIllegalTransition,
		fmt.Sprintf("Cannot %s loan %s in status %s", operation, loanRef, status),
		ErrIllegalTransition,
	)
}

func WrapOverpayment(amount, remaining string) *BusinessError {
	return NewBusinessError(
		ErrCodeOverpayment,
		fmt.Sprintf("Payment amount %s exceeds remaining balance %s", amount, remaining),
		ErrOverpayment,
	)
}

func WrapPermissionDenied(reason string) *BusinessError {
	return NewBusinessError(ErrCodePermissionDenied, reason, ErrPermissionDenied)
}

func WrapConflict(message string) *BusinessError {
	return NewBusinessError(ErrCodeConflict, message, ErrConflict)
}

// WrapStoreError marks err as a store failure while keeping the driver error
// reachable through errors.Is / errors.As.
func WrapStoreError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeStoreUnavailable,
		"store operation failed",
		fmt.Errorf("%w: %w", ErrStoreUnavailable, err),
	)
}

// Kind returns the error kind wrapped by err, or nil when err carries none.
func Kind(err error) error {
	for _, kind := range []error{
		ErrNotFound, ErrValidation, ErrIdentityMismatch, ErrIllegalTransition,
		ErrOverpayment, ErrPermissionDenied, ErrConflict, ErrStoreUnavailable,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Is and As re-export the standard helpers so callers importing this package
// under its usual alias do not need a second errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
