package spotilocal

import (
	"errors"
	"fmt"
)

// CredentialError is returned when the OAuth token could not be obtained
// from the public token endpoint.
type CredentialError struct {
	Reason string
	Err    error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("spotilocal: credential: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("spotilocal: credential: %s", e.Reason)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when a response envelope does not have the
// expected shape (wrong array cardinality, undecodable wrapper, blank token).
type ProtocolError struct {
	Op     string // Logical operation, e.g. "status" or "csrf"
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("spotilocal: %s: %s", e.Op, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// RemoteError carries a structured error object reported by the local
// endpoint. Type and Message are copied verbatim from the response.
type RemoteError struct {
	Op      string
	Type    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("spotilocal: %s: remote error of type %q: %s", e.Op, e.Type, e.Message)
}

// EmptyResponseError is returned when the endpoint answered with a blank body.
type EmptyResponseError struct {
	Op string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("spotilocal: %s: empty response", e.Op)
}

// TransportError wraps failures below the JSON layer: DNS, TLS, connection
// resets, timeouts and unexpected HTTP status codes.
type TransportError struct {
	Op         string
	StatusCode int // Zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("spotilocal: %s: http status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("spotilocal: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Predefined errors for common cases.
var (
	// ErrEmptyPath is returned by the signer for an empty request path.
	ErrEmptyPath = errors.New("spotilocal: request path is empty")

	// ErrNotBootstrapped is returned when an authenticated request is
	// attempted without a ready session.
	ErrNotBootstrapped = errors.New("spotilocal: session not bootstrapped")
)

// remoteErr converts a decoded error object into a *RemoteError, or nil.
func remoteErr(op string, apiErr *APIError) error {
	if apiErr == nil {
		return nil
	}
	return &RemoteError{Op: op, Type: apiErr.Type, Message: apiErr.Message}
}
