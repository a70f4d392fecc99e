package errors

import (
	stderr "errors"
	"fmt"
)

// UnsupportedLanguageError reports that no language server mapping exists for
// a file path. This is a caller error, not a session fault.
type UnsupportedLanguageError struct {
	Path string
}

// Error is an implementation of the error interface.
func (u *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("no language server for %q", u.Path)
}

// IsUnsupportedLanguage reports whether UnsupportedLanguageError is part of
// the error chain.
func IsUnsupportedLanguage(e error) bool {
	var ul *UnsupportedLanguageError
	return stderr.As(e, &ul)
}

// InitializationError reports that the language server answered the
// initialize request with an error response. The session is discarded and the
// language is unusable until the next respawn.
type InitializationError struct {
	Language string
	Code     int64
	Message  string
}

// Error is an implementation of the error interface.
func (i *InitializationError) Error() string {
	return fmt.Sprintf("initializing %s server: %d %s", i.Language, i.Code, i.Message)
}

// ResponseError carries the error object of a JSON-RPC error response for a
// regular call. The session remains usable.
type ResponseError struct {
	Method  string
	Code    int64
	Message string
}

// Error is an implementation of the error interface.
func (r *ResponseError) Error() string {
	return fmt.Sprintf("%s: server error %d: %s", r.Method, r.Code, r.Message)
}

// NotConfiguredError reports a recognized language with no launch
// configuration, so no server can be started for it.
type NotConfiguredError struct {
	Language string
}

// Error is an implementation of the error interface.
func (n *NotConfiguredError) Error() string {
	return fmt.Sprintf("no launch configuration for language %q", n.Language)
}
