package kv

import "errors"

// Sentinel errors returned by the kv package. Callers should use
// errors.Is against these rather than matching on message text.
var (
	// ErrStorageUnavailable wraps any error surfaced by the backing KV
	// engine (open failures, transaction failures, disk errors).
	ErrStorageUnavailable = errors.New("kv: storage unavailable")

	// ErrNotFound names a missing key. Partition.Get does not return it:
	// Get reports a missing key through its found result with a nil error.
	ErrNotFound = errors.New("kv: key not found")

	// ErrPartitionClosed names an operation on a closed Store. The bbolt
	// Store does not return it; an operation after Close surfaces bbolt's
	// own error wrapped in ErrStorageUnavailable.
	ErrPartitionClosed = errors.New("kv: partition closed")
)
