package ledger

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the ledger service.
var (
	ErrInsufficientWalletBalance = errors.New("insufficient wallet balance")
	ErrInsufficientPoints        = errors.New("insufficient points")
	ErrLoadAmountOutOfRange      = errors.New("load amount out of range")
	ErrDailyLoadCapExceeded      = errors.New("daily load cap exceeded")
	ErrWalletNotFound            = errors.New("wallet not found")
	ErrCustomerNotFound          = errors.New("customer not found")
	ErrInvalidAmountCents        = errors.New("invalid amount cents")
	ErrInvalidPoints             = errors.New("invalid points amount")
	ErrInvalidMetadataJSON       = errors.New("invalid metadata json")
	ErrInvalidServiceConfig      = errors.New("invalid service config")
	ErrStaffOnly                 = errors.New("staff only operation")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
