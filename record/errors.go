package record

import "errors"

// Sentinel errors returned by the record package (Component C7).
var (
	// ErrImmutablePropertyChanged is returned when an update references
	// an existing recordId but disagrees with its initial write on one of
	// the immutable fields (RecordsWriteImmutablePropertyChanged).
	ErrImmutablePropertyChanged = errors.New("record: immutable property changed")

	// ErrWriteConflict is returned (not by the winner) to signal that a
	// write lost the latest-writer-wins conflict rule and was rejected
	// rather than applied (RecordsWriteConflict, surfaced as 409).
	ErrWriteConflict = errors.New("record: write lost conflict resolution")

	// ErrRecordNotFound is returned by Read when recordId has no current
	// write (never written, or its only write was deleted).
	ErrRecordNotFound = errors.New("record: not found")
)
