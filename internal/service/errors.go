// Package service holds the application's use cases.  Services validate
// input, enforce cross-entity rules and delegate storage to the
// repositories; handlers translate the errors below into HTTP responses.
package service

import (
	"errors"
	"fmt"
)

// ErrValidation is the parent of every input validation failure.  Wrapped
// errors carry a human readable explanation.
var ErrValidation = errors.New("invalid input")

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("forbidden")

	ErrInvalidSeats    = fmt.Errorf("%w: seats must be at least 1", ErrValidation)
	ErrInvalidStatus   = fmt.Errorf("%w: status must be confirmed or cancelled", ErrValidation)
	ErrInvalidPrice    = fmt.Errorf("%w: price must be at least 0.01", ErrValidation)
	ErrInvalidDuration = fmt.Errorf("%w: duration must be greater than 0", ErrValidation)
	ErrInvalidDate     = fmt.Errorf("%w: date must be formatted as YYYY-MM-DD", ErrValidation)
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
