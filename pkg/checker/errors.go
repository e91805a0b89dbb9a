package checker

import (
	"errors"
	"fmt"
)

// ErrSetCurrentTimed is returned when a timed check asks to promote versions
var ErrSetCurrentTimed = errors.New("setting the current version is only supported for manual checks")

// ProviderError is returned when the latest version of a program could not be
// determined. It aborts the whole pass.
type ProviderError struct {
	Program string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("failed to check %s for updates: %v", e.Program, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
