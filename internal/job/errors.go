package job

import "errors"

// Sentinel error kinds shared by every layer. Callers should compare with
// errors.Is; the HTTP shell's error mapper switches on these, never on
// message text.
var (
	// ErrInvalidRequest covers a bad UUID, a missing bucket, or an
	// out-of-range pagination limit. Surfaced as 4xx, never retried.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound covers an unknown job id. Surfaced as 404.
	ErrNotFound = errors.New("not found")

	// ErrTooLarge means an object exceeded the size cap. Recorded as a
	// terminal failure on the JobObject; retrying would fail identically.
	ErrTooLarge = errors.New("object too large")

	// ErrUnsupported means a key suffix is outside the supported set.
	// Recorded as succeeded with a note; never retried.
	ErrUnsupported = errors.New("unsupported object type")

	// ErrTransport covers transient failures talking to the queue, blob
	// store, or database. The worker does not acknowledge on this error;
	// the queue is responsible for redelivery and eventual dead-lettering.
	ErrTransport = errors.New("transport error")
)
