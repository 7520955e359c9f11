// internal/pkg/apperr/errors.go
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds shared by every layer. Domain errors wrap one of these so
// transports can map them without knowing the domain.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("concurrency conflict")
	ErrIntegrity    = errors.New("integrity violation")
)

// Error carries a message together with its kind
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// New creates an error of the given kind
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates an error of the given kind with a formatted message
func Newf(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether the caller may retry the whole operation
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
