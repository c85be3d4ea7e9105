package index

import "errors"

// Sentinel errors returned by the index package.
var (
	// ErrInvalidSortProperty is returned when a query names a sort
	// property that is not indexed for one or more of its matched results
	// (the IndexInvalidSortProperty fatal error from spec.md §4.2).
	ErrInvalidSortProperty = errors.New("index: invalid sort property")

	// ErrItemNotIndexed is returned by Delete when the item id has no
	// reverse-lookup entry.
	ErrItemNotIndexed = errors.New("index: item not indexed")
)
