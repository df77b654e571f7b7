package errors

import "errors"

// This package defines a centralized set of sentinel errors for the application.
// Services, the synchronization engine and the HTTP client all return these
// (wrapped with fmt.Errorf("%w: ...")) so callers can branch with errors.Is
// without knowing which transport or storage produced them.

var (
	// ErrNotFound signifies that a requested resource could not be located.
	// This is typically mapped to a 404 Not Found HTTP status.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that input data provided by a client failed
	// business rule validation.
	// This is typically mapped to a 400 Bad Request HTTP status.
	ErrValidation = errors.New("validation failed")

	// ErrConflict signifies that an operation could not be completed because
	// it conflicts with the current state of a resource.
	// This is typically mapped to a 409 Conflict HTTP status.
	ErrConflict = errors.New("resource conflict")

	// ErrPermission signifies that the caller is not authorized to perform
	// the requested action.
	// This is typically mapped to a 403 Forbidden HTTP status.
	ErrPermission = errors.New("permission denied")

	// ErrInsufficientCredits signifies a quota rejection. Retrying cannot
	// succeed until the account state changes, so callers surface a notice
	// and never retry automatically.
	// This is typically mapped to a 402 Payment Required HTTP status.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrTransport signifies a network-level failure (stream read, upload).
	// Partial progress made before the failure is kept by the caller.
	ErrTransport = errors.New("transport failure")

	// ErrIndexingTimeout signifies that a background indexing job did not
	// reach a terminal state before the wait ceiling. It is distinct from
	// ErrIndexingFailed so the UI can show "still processing".
	ErrIndexingTimeout = errors.New("indexing timed out")

	// ErrIndexingFailed signifies that a background indexing job reported
	// failure. The job's recorded error is wrapped alongside it.
	ErrIndexingFailed = errors.New("indexing failed")

	// ErrInternal signifies an unexpected error on the server. This is a generic
	// error used to prevent leaking sensitive implementation details to the client.
	// This is typically mapped to a 500 Internal Server Error HTTP status.
	ErrInternal = errors.New("internal server error")
)
