// Copyright 2025 Certen Protocol

package prehandle

import "fmt"

// InvalidArgumentError marks a programmer error: a precondition violated by
// the caller of this package's API, as opposed to a PreCheckError arising
// from transaction content. These must surface as immediate failures and
// must not be caught and reclassified — the pre-handle workflow's
// recovery boundary re-panics on this type instead of mapping it to
// UnknownFailure.
type InvalidArgumentError struct {
	Msg string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Msg)
}

// NewInvalidArgumentError constructs an InvalidArgumentError.
func NewInvalidArgumentError(msg string) *InvalidArgumentError {
	return &InvalidArgumentError{Msg: msg}
}
