// Package messagestore implements Component C3: tenant-scoped, schema-
// agnostic storage for signed messages, with queries answered by delegating
// to Component C2's index.Engine over the same kv.Partition.
package messagestore

import (
	"fmt"

	"dwn.evalgo.org/index"
	"dwn.evalgo.org/kv"
)

// Result is one message returned by Query: its raw encoded bytes plus the
// CID it was stored under.
type Result struct {
	MessageCid string
	Raw        []byte
}

// MessageStore is Component C3. One MessageStore instance serves every
// tenant; tenant isolation comes from nesting each operation under
// kv.Partition(tenantDid).
type MessageStore struct {
	root kv.Store
}

// New builds a MessageStore over root, typically the Store opened at
// config.Options.MessageStoreLocation.
func New(root kv.Store) *MessageStore {
	return &MessageStore{root: root}
}

func (s *MessageStore) tenant(tenantDid string) kv.Partition {
	return s.root.Partition(tenantDid)
}

func (s *MessageStore) indexEngine(tenantDid string) *index.Engine {
	return index.New(s.root, tenantDid, "index")
}

// Put persists raw under messageCid for tenantDid and indexes it under
// indexes so Query can find it later. The raw message and its index
// entries are written in two separate commits (message first, then
// index), so a failure between them leaves the message stored but not
// indexed.
func (s *MessageStore) Put(tenantDid, messageCid string, raw []byte, indexes map[string]any) error {
	err := s.root.Transaction(func(tx kv.Txn) error {
		return tx.Partition(tenantDid).Partition("messages").Put([]byte(messageCid), raw)
	})
	if err != nil {
		return fmt.Errorf("messagestore: storing message %s: %w", messageCid, err)
	}
	if err := s.indexEngine(tenantDid).Put(messageCid, messageCid, indexes); err != nil {
		return fmt.Errorf("messagestore: indexing message %s: %w", messageCid, err)
	}
	return nil
}

// Get fetches the raw message stored under messageCid for tenantDid.
func (s *MessageStore) Get(tenantDid, messageCid string) ([]byte, error) {
	raw, found, err := s.tenant(tenantDid).Partition("messages").Get([]byte(messageCid))
	if err != nil {
		return nil, fmt.Errorf("messagestore: get %s: %w", messageCid, err)
	}
	if !found {
		return nil, ErrMessageNotFound
	}
	return raw, nil
}

// Delete removes both the raw message and its index entries, in two
// separate commits (index first, then message); a failure between them
// leaves the message stored but no longer indexed.
func (s *MessageStore) Delete(tenantDid, messageCid string) error {
	rec, found, err := s.tenant(tenantDid).Partition("messages").Get([]byte(messageCid))
	if err != nil {
		return fmt.Errorf("messagestore: delete %s: %w", messageCid, err)
	}
	if !found {
		return ErrMessageNotFound
	}
	_ = rec

	if err := s.indexEngine(tenantDid).Delete(messageCid); err != nil {
		return fmt.Errorf("messagestore: deleting index for %s: %w", messageCid, err)
	}
	err = s.root.Transaction(func(tx kv.Txn) error {
		return tx.Partition(tenantDid).Partition("messages").Delete([]byte(messageCid))
	})
	if err != nil {
		return fmt.Errorf("messagestore: deleting message %s: %w", messageCid, err)
	}
	return nil
}

// Query evaluates filters (OR of AND-groups) against the tenant's index,
// sorts by sortProperty, and resolves each match back to its raw message.
func (s *MessageStore) Query(tenantDid string, filters []index.Filter, sortProperty string, reverse bool, cursor *index.Cursor, limit int) ([]Result, *index.Cursor, error) {
	matches, nextCursor, err := s.indexEngine(tenantDid).Query(filters, sortProperty, reverse, cursor, limit)
	if err != nil {
		return nil, nil, err
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		raw, err := s.Get(tenantDid, m.MessageCid)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, Result{MessageCid: m.MessageCid, Raw: raw})
	}
	return results, nextCursor, nil
}
