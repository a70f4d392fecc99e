package errors

import (
	stderr "errors"
	"fmt"
)

// SpawnError is a service domain error for a language server binary that
// could not be started.
type SpawnError struct {
	Command string
	Err     error
}

// Error is an implementation of the error interface.
func (s *SpawnError) Error() string {
	return fmt.Sprintf("spawning %q: %v", s.Command, s.Err)
}

// Unwrap returns the underlying exec error.
func (s *SpawnError) Unwrap() error {
	return s.Err
}

// SpawnFailedCommand returns the command and true if SpawnError is part of
// the error chain.
func SpawnFailedCommand(e error) (_ string, ok bool) {
	var se *SpawnError
	if !stderr.As(e, &se) {
		return "", false
	}
	return se.Command, true
}
