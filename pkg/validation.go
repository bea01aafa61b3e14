package pkg

import (
	"errors"
	"strings"
)

// ValidationError carries human-readable messages meant to be shown back to the user.
type ValidationError struct {
	Messages []string
}

func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// AsValidationError unwraps err into a *ValidationError, if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// Messages accumulates validation messages; Err returns nil when nothing was added.
type Messages []string

func (m *Messages) Add(msg string) {
	*m = append(*m, msg)
}

func (m Messages) Err() error {
	if len(m) == 0 {
		return nil
	}
	return NewValidationError(m...)
}
