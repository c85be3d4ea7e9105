package kv

import (
	"bytes"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Open opens (creating if necessary) a bbolt-backed Store at path. This is
// the persistence layer for both the per-tenant message store and the
// per-tenant event log (spec.md §6, messageStoreLocation/eventLogLocation).
func Open(path string) (Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorageUnavailable, path, err)
	}
	return &boltStore{db: db}, nil
}

// boltStore is the root Partition: an empty bucket path into db.
type boltStore struct {
	db *bolt.DB
}

func (s *boltStore) Close() error { return s.db.Close() }

func (s *boltStore) Partition(name string) Partition {
	return &boltPartition{db: s.db, path: [][]byte{[]byte(name)}}
}

func (s *boltStore) Get(key []byte) ([]byte, bool, error) {
	return (&boltPartition{db: s.db}).Get(key)
}

func (s *boltStore) Batch(fn func(b Batch) error) error {
	return (&boltPartition{db: s.db}).Batch(fn)
}

func (s *boltStore) Iterate(rng Range, fn func(key, value []byte) (bool, error)) error {
	return (&boltPartition{db: s.db}).Iterate(rng, fn)
}

func (s *boltStore) Transaction(fn func(t Txn) error) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTxn{tx: tx})
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// boltTxn is a Txn scoped to a single bolt.Tx, letting callers touch
// several nested partitions within one atomic commit.
type boltTxn struct {
	tx   *bolt.Tx
	path [][]byte
}

func (t *boltTxn) Partition(name string) Txn {
	child := make([][]byte, len(t.path)+1)
	copy(child, t.path)
	child[len(t.path)] = []byte(name)
	return &boltTxn{tx: t.tx, path: child}
}

func (t *boltTxn) Get(key []byte) ([]byte, bool, error) {
	b, err := navigate(t.tx, t.path, false)
	if err != nil {
		return nil, false, err
	}
	if b == nil {
		return nil, false, nil
	}
	v := b.Get(key)
	if v == nil {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (t *boltTxn) Put(key, value []byte) error {
	b, err := navigate(t.tx, t.path, true)
	if err != nil {
		return err
	}
	return b.Put(key, value)
}

func (t *boltTxn) Delete(key []byte) error {
	b, err := navigate(t.tx, t.path, false)
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	return b.Delete(key)
}

// boltPartition is a nested-bucket namespace addressed by path. Every
// operation opens its own bbolt transaction and walks path from the root,
// which is how a Partition handle stays valid across the underlying file
// being closed and reopened between process runs.
type boltPartition struct {
	db   *bolt.DB
	path [][]byte
}

func (p *boltPartition) Partition(name string) Partition {
	child := make([][]byte, len(p.path)+1)
	copy(child, p.path)
	child[len(p.path)] = []byte(name)
	return &boltPartition{db: p.db, path: child}
}

// navigate descends tx to the bucket at p.path, creating intermediate
// buckets as needed. An empty path (the Store root itself) is an error,
// since bbolt keeps keys only inside buckets.
func navigate(tx *bolt.Tx, path [][]byte, create bool) (*bolt.Bucket, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("kv: empty bucket path")
	}
	var b *bolt.Bucket
	for i, seg := range path {
		if i == 0 {
			if create {
				nb, err := tx.CreateBucketIfNotExists(seg)
				if err != nil {
					return nil, err
				}
				b = nb
			} else {
				b = tx.Bucket(seg)
			}
		} else {
			if create {
				nb, err := b.CreateBucketIfNotExists(seg)
				if err != nil {
					return nil, err
				}
				b = nb
			} else {
				b = b.Bucket(seg)
			}
		}
		if b == nil {
			return nil, nil
		}
	}
	return b, nil
}

func (p *boltPartition) Get(key []byte) ([]byte, bool, error) {
	var out []byte
	err := p.db.View(func(tx *bolt.Tx) error {
		b, err := navigate(tx, p.path, false)
		if err != nil || b == nil {
			return err
		}
		if v := b.Get(key); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return out, out != nil, nil
}

type boltBatch struct {
	bucket *bolt.Bucket
}

func (b *boltBatch) Put(key, value []byte) error { return b.bucket.Put(key, value) }
func (b *boltBatch) Delete(key []byte) error     { return b.bucket.Delete(key) }

func (p *boltPartition) Batch(fn func(b Batch) error) error {
	err := p.db.Update(func(tx *bolt.Tx) error {
		bucket, err := navigate(tx, p.path, true)
		if err != nil {
			return err
		}
		return fn(&boltBatch{bucket: bucket})
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Iterate implements the bounded-range contract (spec.md §4.1/§4.2): gt
// excludes the bound explicitly, lte is satisfied by seeking past it and
// walking backward (bbolt's Seek lands on the first key >= target, which
// for a reverse scan we then have to step back from if it overshot).
func (p *boltPartition) Iterate(rng Range, fn func(key, value []byte) (bool, error)) error {
	err := p.db.View(func(tx *bolt.Tx) error {
		b, err := navigate(tx, p.path, false)
		if err != nil || b == nil {
			return err
		}
		c := b.Cursor()
		count := 0
		emit := func(k, v []byte) (bool, error) {
			if rng.Limit > 0 && count >= rng.Limit {
				return false, nil
			}
			cont, err := fn(k, v)
			if err != nil {
				return false, err
			}
			count++
			return cont, nil
		}

		if !rng.Reverse {
			var k, v []byte
			if rng.hasLower() {
				lower := rng.Gte
				if lower == nil {
					lower = rng.Gt
				}
				k, v = c.Seek(lower)
				if rng.Gt != nil && k != nil && bytes.Equal(k, rng.Gt) {
					k, v = c.Next()
				}
			} else {
				k, v = c.First()
			}
			for k != nil {
				if rng.hasUpper() && !withinUpper(k, rng) {
					break
				}
				cont, ferr := emit(k, v)
				if ferr != nil {
					return ferr
				}
				if !cont {
					break
				}
				k, v = c.Next()
			}
			return nil
		}

		// Reverse: seek to (or past) the upper bound, then walk backward.
		var k, v []byte
		if rng.hasUpper() {
			upper := rng.Lte
			if upper == nil {
				upper = rng.Lt
			}
			k, v = c.Seek(upper)
			if k == nil {
				k, v = c.Last()
			} else if rng.Lt != nil && bytes.Compare(k, rng.Lt) >= 0 {
				k, v = c.Prev()
			} else if rng.Lte != nil && bytes.Compare(k, rng.Lte) > 0 {
				k, v = c.Prev()
			}
		} else {
			k, v = c.Last()
		}
		for k != nil {
			if rng.hasLower() && !aboveLower(k, rng) {
				break
			}
			cont, ferr := emit(k, v)
			if ferr != nil {
				return ferr
			}
			if !cont {
				break
			}
			k, v = c.Prev()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func withinUpper(k []byte, rng Range) bool {
	if rng.Lt != nil {
		return bytes.Compare(k, rng.Lt) < 0
	}
	if rng.Lte != nil {
		return bytes.Compare(k, rng.Lte) <= 0
	}
	return true
}

func aboveLower(k []byte, rng Range) bool {
	if rng.Gt != nil {
		return bytes.Compare(k, rng.Gt) > 0
	}
	if rng.Gte != nil {
		return bytes.Compare(k, rng.Gte) >= 0
	}
	return true
}
