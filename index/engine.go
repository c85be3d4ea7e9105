package index

import (
	"encoding/json"
	"fmt"
	"sort"

	"dwn.evalgo.org/kv"
)

// Match is one result of a Query: the indexed item's id and the message
// CID it was recorded under.
type Match struct {
	ItemID     string
	MessageCid string
}

type storedRecord struct {
	MessageCid string         `json:"messageCid"`
	Properties map[string]any `json:"properties"`
}

// Engine is Component C2: it maintains a forward index (property value ->
// item id) and a reverse index (item id -> indexed properties) over a
// tenant's namespace, and answers filtered, sorted, paginated queries
// against them. It holds the backing kv.Store (not just a Partition) so
// Put/Delete can run their forward- and reverse-index writes inside one
// kv.Txn, per spec.md §4.2's one-atomic-batch requirement.
type Engine struct {
	store kv.Store
	path  []string
}

// New builds an Engine over store, namespaced under the given path
// segments (callers typically pass store, tenantDid, "index").
func New(store kv.Store, path ...string) *Engine {
	return &Engine{store: store, path: path}
}

// root resolves the engine's namespace as a read-only Partition, for
// Query's non-transactional lookups.
func (e *Engine) root() kv.Partition {
	var p kv.Partition = e.store
	for _, seg := range e.path {
		p = p.Partition(seg)
	}
	return p
}

// txnRoot resolves the engine's namespace as a Txn scoped to an
// in-progress kv.Store.Transaction call, for Put/Delete's atomic writes.
func (e *Engine) txnRoot(t kv.Txn) kv.Txn {
	for _, seg := range e.path {
		t = t.Partition(seg)
	}
	return t
}

func (e *Engine) props() kv.Partition   { return e.root().Partition("props") }
func (e *Engine) reverse() kv.Partition { return e.root().Partition("reverse") }

func (e *Engine) propPartition(name string) kv.Partition { return e.props().Partition(name) }

// Put indexes itemID under messageCid with the given properties, replacing
// any prior index entries for the same itemID atomically: the reverse
// record's read, every forward-key delete/put, and the reverse record's
// write all run inside a single kv.Txn.
func (e *Engine) Put(itemID, messageCid string, properties map[string]any) error {
	rec := storedRecord{MessageCid: messageCid, Properties: properties}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("index: encoding reverse record: %w", err)
	}

	return e.store.Transaction(func(t kv.Txn) error {
		base := e.txnRoot(t)
		reverseTxn := base.Partition("reverse")
		propsTxn := base.Partition("props")

		if existing, found, err := reverseTxn.Get([]byte(itemID)); err != nil {
			return err
		} else if found {
			var old storedRecord
			if err := json.Unmarshal(existing, &old); err == nil {
				if err := deleteForwardEntries(propsTxn, itemID, old.Properties); err != nil {
					return err
				}
			}
		}

		for prop, val := range properties {
			key, err := forwardKey(val, itemID)
			if err != nil {
				return fmt.Errorf("index: property %q: %w", prop, err)
			}
			if err := propsTxn.Partition(prop).Put(key, []byte(itemID)); err != nil {
				return err
			}
		}

		return reverseTxn.Put([]byte(itemID), encoded)
	})
}

// Delete removes every index entry for itemID: the reverse record's read,
// every forward-key delete, and the reverse record's delete all run
// inside a single kv.Txn.
func (e *Engine) Delete(itemID string) error {
	return e.store.Transaction(func(t kv.Txn) error {
		base := e.txnRoot(t)
		reverseTxn := base.Partition("reverse")
		propsTxn := base.Partition("props")

		existing, found, err := reverseTxn.Get([]byte(itemID))
		if err != nil {
			return err
		}
		if !found {
			return ErrItemNotIndexed
		}
		var rec storedRecord
		if err := json.Unmarshal(existing, &rec); err != nil {
			return fmt.Errorf("index: decoding reverse record: %w", err)
		}
		if err := deleteForwardEntries(propsTxn, itemID, rec.Properties); err != nil {
			return err
		}
		return reverseTxn.Delete([]byte(itemID))
	})
}

func deleteForwardEntries(propsTxn kv.Txn, itemID string, properties map[string]any) error {
	for prop, val := range properties {
		key, err := forwardKey(val, itemID)
		if err != nil {
			continue
		}
		if err := propsTxn.Partition(prop).Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func forwardKey(value any, itemID string) ([]byte, error) {
	encoded, err := encodeValue(value)
	if err != nil {
		return nil, err
	}
	return []byte(encoded + "\x00" + itemID), nil
}

// Query evaluates the OR-disjunction of filters, sorts the union of
// matches by sortProperty (ascending, or descending if reverse), and
// returns up to limit results starting after cursor (nil for the first
// page). A non-nil returned cursor means more results remain.
func (e *Engine) Query(filters []Filter, sortProperty string, reverse bool, cursor *Cursor, limit int) ([]Match, *Cursor, error) {
	matched := map[string]storedRecord{}

	for _, f := range filters {
		candidates, err := e.candidatesFor(f)
		if err != nil {
			return nil, nil, err
		}
		for itemID, rec := range candidates {
			if _, already := matched[itemID]; already {
				continue
			}
			if f.matchesAll(rec.Properties) {
				matched[itemID] = rec
			}
		}
	}

	type sortable struct {
		Match
		sortKey string
	}
	items := make([]sortable, 0, len(matched))
	for itemID, rec := range matched {
		var sortKey string
		if sortProperty != "" {
			val, ok := rec.Properties[sortProperty]
			if !ok {
				return nil, nil, fmt.Errorf("%w: %s", ErrInvalidSortProperty, sortProperty)
			}
			encoded, err := encodeValue(val)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %s", ErrInvalidSortProperty, sortProperty)
			}
			sortKey = encoded
		}
		items = append(items, sortable{Match: Match{ItemID: itemID, MessageCid: rec.MessageCid}, sortKey: sortKey})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].sortKey != items[j].sortKey {
			if reverse {
				return items[i].sortKey > items[j].sortKey
			}
			return items[i].sortKey < items[j].sortKey
		}
		if items[i].ItemID != items[j].ItemID {
			return items[i].ItemID < items[j].ItemID
		}
		return items[i].MessageCid < items[j].MessageCid
	})

	start := 0
	if cursor != nil {
		for i, it := range items {
			if it.sortKey == cursor.SortValueEncoded && it.ItemID == cursor.ItemID && it.MessageCid == cursor.MessageCid {
				start = i + 1
				break
			}
		}
	}
	items = items[start:]

	var nextCursor *Cursor
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if limit > 0 && len(items) == limit && len(matched) > start+limit {
		last := items[len(items)-1]
		nextCursor = &Cursor{SortValueEncoded: last.sortKey, ItemID: last.ItemID, MessageCid: last.MessageCid}
	}

	results := make([]Match, len(items))
	for i, it := range items {
		results[i] = it.Match
	}
	return results, nextCursor, nil
}

// candidatesFor returns every reverse-index record whose best-indexed
// property value falls in the range f implies, or, when no property in f
// is equality-indexed, every record in the tenant (the documented
// sorted-index scan fallback).
func (e *Engine) candidatesFor(f Filter) (map[string]storedRecord, error) {
	prop := f.bestIndexedProperty()
	if prop == "" {
		return e.allRecords()
	}

	itemIDs := map[string]struct{}{}
	switch fv := f[prop].(type) {
	case EqualFilter:
		ids, err := e.scanEqual(prop, fv.Value)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			itemIDs[id] = struct{}{}
		}
	case OneOfFilter:
		for _, val := range fv.Values {
			ids, err := e.scanEqual(prop, val)
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				itemIDs[id] = struct{}{}
			}
		}
	}

	out := map[string]storedRecord{}
	for itemID := range itemIDs {
		raw, found, err := e.reverse().Get([]byte(itemID))
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		var rec storedRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("index: decoding reverse record: %w", err)
		}
		out[itemID] = rec
	}
	return out, nil
}

func (e *Engine) scanEqual(prop string, value any) ([]string, error) {
	encoded, err := encodeValue(value)
	if err != nil {
		return nil, err
	}
	lower := []byte(encoded + "\x00")
	upper := []byte(encoded + "\x01")

	var ids []string
	err = e.propPartition(prop).Iterate(kv.Range{Gte: lower, Lt: upper}, func(_, v []byte) (bool, error) {
		ids = append(ids, string(v))
		return true, nil
	})
	return ids, err
}

func (e *Engine) allRecords() (map[string]storedRecord, error) {
	out := map[string]storedRecord{}
	err := e.reverse().Iterate(kv.Range{}, func(k, v []byte) (bool, error) {
		var rec storedRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return false, fmt.Errorf("index: decoding reverse record: %w", err)
		}
		out[string(k)] = rec
		return true, nil
	})
	return out, err
}
