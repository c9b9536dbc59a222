package payments

import (
	"errors"
	"fmt"
)

var (
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrAuditLogNotFound = errors.New("audit log not found")
)

// ValidationError reports malformed or inconsistent input. Nothing is mutated
// when one is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a payment or audit entry in a state that forbids the
// requested transition.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// BackendError wraps a GL simulator failure. The failure audit entry has been
// written by the time one surfaces; business state is untouched.
type BackendError struct {
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BackendError) Unwrap() error { return e.Err }
