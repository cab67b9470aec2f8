package types

import (
	"errors"
	"fmt"
)

var (
	// Lookup failures while quoting
	ErrPairNotSupported = errors.New("exchange rate not available for pair")
	ErrConversionFailed = errors.New("could not convert USD amount")

	ErrSwapNotFound      = errors.New("swap not found")
	ErrDuplicateSwap     = errors.New("swap already exists")
	ErrInvalidTransition = errors.New("invalid swap status transition")

	// Access failures
	ErrAccessDenied = errors.New("you are not allowed to use this command")
	ErrMaintenance  = errors.New("bot is currently in maintenance mode")
	ErrNotOwner     = errors.New("you don't have permission to use this command")
	ErrNotSwapOwner = errors.New("you don't have permission to view this swap")
)

// ValidationError reports bad user input. The swap is never created.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError with a formatted message
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
