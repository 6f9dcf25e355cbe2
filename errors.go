package factsync

import (
	"errors"
	"fmt"
)

// Common errors returned by the factsync client.
var (
	// ErrNotFound is returned when a fact is not found.
	ErrNotFound = errors.New("fact not found")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrOffline is returned when a remote operation is attempted without a fact source.
	ErrOffline = errors.New("operation unavailable in offline mode")

	// ErrInvalidQuery is returned when a query references an unknown column
	// or carries a negative limit or offset.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrSubscriptionClosed is reported by Subscription.Err after Close.
	ErrSubscriptionClosed = errors.New("subscription closed")

	// ErrPersistence matches any *PersistenceError.
	ErrPersistence = errors.New("persistence failure")

	// ErrRemoteClient matches a *RemoteError for a 4xx response.
	ErrRemoteClient = errors.New("remote client error")

	// ErrRemoteServer matches a *RemoteError for a 5xx response.
	ErrRemoteServer = errors.New("remote server error")

	// ErrRemoteTransport matches a *RemoteError for network failures,
	// timeouts and unexpected statuses.
	ErrRemoteTransport = errors.New("remote transport error")

	// ErrDecode matches a *RemoteError for a malformed response body.
	ErrDecode = errors.New("remote decode error")
)

// ValidationError is returned when configuration validation fails.
// Extractable via errors.As().
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// RemoteErrorKind classifies a failed remote call.
type RemoteErrorKind string

const (
	RemoteClient    RemoteErrorKind = "client"
	RemoteServer    RemoteErrorKind = "server"
	RemoteTransport RemoteErrorKind = "transport"
	RemoteDecode    RemoteErrorKind = "decode"
)

// RemoteError is returned by a FactSource when a fetch fails.
// Extractable via errors.As(). Supports Unwrap() and errors.Is against the
// kind sentinels (ErrRemoteClient, ErrRemoteServer, ErrRemoteTransport, ErrDecode).
type RemoteError struct {
	Kind       RemoteErrorKind
	Operation  string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote: %s failed (%s, status %d): %v", e.Operation, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote: %s failed (%s): %v", e.Operation, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's kind.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrRemoteClient:
		return e.Kind == RemoteClient
	case ErrRemoteServer:
		return e.Kind == RemoteServer
	case ErrRemoteTransport:
		return e.Kind == RemoteTransport
	case ErrDecode:
		return e.Kind == RemoteDecode
	}
	return false
}

// ClassifyStatus maps an HTTP status code to a remote error kind.
// The second result is false for statuses outside 400-599.
func ClassifyStatus(statusCode int) (RemoteErrorKind, bool) {
	switch {
	case statusCode >= 400 && statusCode <= 499:
		return RemoteClient, true
	case statusCode >= 500 && statusCode <= 599:
		return RemoteServer, true
	default:
		return "", false
	}
}

// IsRetryable reports whether err is a remote failure worth retrying:
// server-side (5xx) and transport failures. Client and decode errors are not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRemoteServer) || errors.Is(err, ErrRemoteTransport)
}

// PersistenceError is returned when a store write transaction cannot commit.
// The batch is rolled back. Extractable via errors.As(); matches ErrPersistence.
type PersistenceError struct {
	Operation string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s failed: %v", e.Operation, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
