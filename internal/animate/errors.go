package animate

import (
	"errors"
	"fmt"
)

// ErrInvalidParameters indicates a session that cannot be started.
var ErrInvalidParameters = errors.New("animate: invalid animation parameters")

// ParameterError names the offending parameter.
type ParameterError struct {
	Field  string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("animate: invalid %s: %s", e.Field, e.Reason)
}

func (e *ParameterError) Unwrap() error { return ErrInvalidParameters }
