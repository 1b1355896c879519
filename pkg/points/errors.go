package points

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the points service.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrProgramNotFound     = errors.New("program not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrProgramInactive     = errors.New("program inactive")
	ErrInsufficientBudget  = errors.New("insufficient giving budget")
	ErrInsufficientBalance = errors.New("insufficient point balance")
	ErrInsufficientStock   = errors.New("insufficient item stock")
	ErrWalletExists        = errors.New("wallet already exists")

	ErrInvalidProgramID     = errors.New("invalid program id")
	ErrInvalidUserID        = errors.New("invalid user id")
	ErrInvalidWalletID      = errors.New("invalid wallet id")
	ErrInvalidItemID        = errors.New("invalid item id")
	ErrInvalidPointAmount   = errors.New("invalid point amount")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidDateRange     = errors.New("invalid date range")
	ErrInvalidPolicy        = errors.New("invalid policy")
	ErrInvalidBalance       = errors.New("invalid balance")
	ErrInvalidServiceConfig = errors.New("invalid service config")
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
