package tem

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrMalformedResponse is wrapped when a successful response body cannot be
// decoded.
var ErrMalformedResponse = errors.New("malformed response body")

// TransportError reports a request that never produced an HTTP response:
// DNS, connection, TLS or timeout failures.
type TransportError struct {
	// Code is always 0; there is no HTTP status for a failed exchange.
	Code int
	// Errno is the system error number found in the cause, or 0.
	Errno int
	Err   error
}

func newTransportError(err error) *TransportError {
	te := &TransportError{Err: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		te.Errno = int(errno)
	}
	return te
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transactional email request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is the error envelope of a response whose status is neither
// 200 nor 201.
type RemoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Errno   int    `json:"errno"`
	Detail  string `json:"detail"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("transactional email API error (HTTP %d): %s", e.Code, e.Message)
}
