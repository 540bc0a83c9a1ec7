package domain

import "errors"

// Error taxonomy surfaced to callers. Handlers map these to HTTP statuses;
// anything unlisted stays a 500 with no internal detail exposed.
var (
	// ErrPayloadTooLarge is returned when an upload exceeds the configured
	// size cap, either by declared size or mid-stream.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrNotFound covers unknown codes, expired codes and missing blobs
	// alike, so callers cannot tell "never existed" from "expired".
	ErrNotFound = errors.New("file not found")

	// ErrDuplicateCode is returned by the index when inserting a record
	// whose share code is already held by an active record.
	ErrDuplicateCode = errors.New("duplicate share code")

	// ErrGenerationExhausted signals the active code space is saturated.
	ErrGenerationExhausted = errors.New("share code generation exhausted")

	// ErrStoreIO wraps underlying storage failures.
	ErrStoreIO = errors.New("storage i/o failure")

	// ErrMalformedRequest covers unreadable upload requests and empty files.
	ErrMalformedRequest = errors.New("malformed request")
)
