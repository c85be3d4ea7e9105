package did

import "errors"

// Sentinel errors returned by the did package. Callers should use
// errors.Is against these rather than matching on message text.
var (
	// ErrMethodNotSupported is returned when no resolver is registered for
	// a DID's method segment (did:<method>:...).
	ErrMethodNotSupported = errors.New("did: method not supported")

	// ErrInvalidDid is returned when a DID string fails to parse.
	ErrInvalidDid = errors.New("did: invalid did")

	// ErrResolutionFailed wraps any transport or decoding error
	// encountered while resolving a valid DID.
	ErrResolutionFailed = errors.New("did: resolution failed")
)
