// Package kv wraps an embedded ordered key-value engine (bbolt) with the
// nested-namespace, batched-write, and bounded-range-iteration contract the
// rest of the node is built on (Component C1 — the Ordered KV Wrapper).
//
// A Store opens one bbolt file per tenant-store location (message store,
// event log); within it, Partition recursively carves out nested namespaces
// (per tenant: "messages", "index/props/<property>", "index/reverse",
// "events/meta", "events/byseq", "events/bycid") the way
// the teacher's db/bolt.DB carves out flat buckets. Keys and values are
// always []byte; callers base-encode binary payloads upstream.
package kv

// Range bounds a key iteration. Exactly one of Gt/Gte may be set (lower
// bound) and exactly one of Lt/Lte may be set (upper bound); either bound
// may be omitted for an open range. Reverse iterates from the high end.
// Limit, if positive, stops the iteration after that many items.
type Range struct {
	Gt      []byte
	Gte     []byte
	Lt      []byte
	Lte     []byte
	Reverse bool
	Limit   int
}

// hasLower reports whether a lower bound was set.
func (r Range) hasLower() bool { return r.Gt != nil || r.Gte != nil }

// hasUpper reports whether an upper bound was set.
func (r Range) hasUpper() bool { return r.Lt != nil || r.Lte != nil }

// Batch accumulates Put/Delete operations that commit atomically: either
// every operation in the batch lands, or none do. A Batch is only valid
// for the lifetime of the Partition.Batch callback that produced it.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Partition is a namespace within the keyspace: either the tenant root
// returned by Store.Partition, or a nested namespace returned by a further
// call to Partition on an existing one. Operations on a Partition only see
// keys written under that namespace.
type Partition interface {
	// Partition descends into (creating if necessary) a nested namespace.
	Partition(name string) Partition

	// Get fetches a single value. The returned bool is false, with a nil
	// error, when the key is absent.
	Get(key []byte) ([]byte, bool, error)

	// Batch runs fn against a fresh Batch and commits every operation
	// issued on it atomically when fn returns nil; any error aborts the
	// whole batch with no partial effect.
	Batch(fn func(b Batch) error) error

	// Iterate walks keys in rng in byte-lexicographic order (or reverse,
	// per rng.Reverse), calling fn for each. Iterate stops when fn
	// returns (false, nil) or a non-nil error, or when rng.Limit items
	// have been yielded. The iteration runs inside one read transaction,
	// so it observes a consistent snapshot regardless of concurrent
	// writers.
	Iterate(rng Range, fn func(key, value []byte) (bool, error)) error
}

// Txn is a write scope spanning potentially several nested partitions,
// all committed (or rolled back) together by the Store.Transaction call
// that produced it. Use this instead of per-partition Batch whenever two
// partitions in the same Store must change atomically — for example a
// message store's raw-message partition and its index partition on
// record delete.
type Txn interface {
	// Partition descends into a nested namespace within this transaction.
	Partition(name string) Txn

	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Store is the top-level handle returned by Open. It is itself a
// Partition rooted at the backing file; most callers immediately descend
// with Partition(tenantDID) to get tenant isolation.
type Store interface {
	Partition

	// Transaction runs fn in a single write transaction over the whole
	// Store: every Put/Delete issued through fn's Txn (however many
	// partitions it descends into) commits atomically together, or none
	// do if fn returns an error. This only spans partitions within one
	// Store (one backing file) — it cannot span two separately Opened
	// Stores.
	Transaction(fn func(t Txn) error) error

	Close() error
}
