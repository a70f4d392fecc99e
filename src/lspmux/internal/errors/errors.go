package errors

import stderr "errors"

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

var (
	// ErrSessionClosed reports that the language server process exited or was
	// shut down while requests were outstanding. All pending calls on a
	// session fail with this error when the session closes.
	ErrSessionClosed = New("session closed")
	// ErrRequestTimeout reports that a single call exceeded its deadline.
	// The session remains usable.
	ErrRequestTimeout = New("request timed out")
	// ErrInitializeTimeout reports that the initialize handshake did not
	// complete within the configured window.
	ErrInitializeTimeout = New("initialize timed out")
	// ErrFraming reports a malformed Content-Length header or a truncated
	// message body on the wire.
	ErrFraming = New("malformed message framing")
	// ErrNotReady reports a call issued before the session finished
	// initializing or after it began shutting down.
	ErrNotReady = New("session is not ready")
)

// IsSessionClosed reports whether the error indicates a closed session.
func IsSessionClosed(e error) bool {
	return stderr.Is(e, ErrSessionClosed)
}

// IsTimeout reports whether the error is a request or initialize timeout.
func IsTimeout(e error) bool {
	return stderr.Is(e, ErrRequestTimeout) || stderr.Is(e, ErrInitializeTimeout)
}
