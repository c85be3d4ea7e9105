package record

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"dwn.evalgo.org/eventlog"
	"dwn.evalgo.org/index"
	"dwn.evalgo.org/messagestore"
)

// Message is a signed RecordsWrite (or RecordsDelete) envelope as the
// lifecycle sees it: the descriptor that drives conflict resolution and
// indexing, plus whatever the caller needs to re-derive the raw bytes
// that get persisted.
type Message struct {
	Author        string
	Descriptor    Descriptor
	Authorization any
	Raw           []byte
	Data          io.Reader
}

// Lifecycle is Component C7: it decides whether an incoming RecordsWrite
// is the record's initial write or an update, applies the latest-writer-
// wins conflict rule, enforces immutable-field stability, and routes the
// associated data to inline storage or the external DataStore.
type Lifecycle struct {
	messages  *messagestore.MessageStore
	events    *eventlog.Log
	data      DataStore
	threshold int64
}

// NewLifecycle wires Component C7 over an already-opened message store
// and event log, with payloads at or under threshold bytes stored inline
// in the descriptor's DataCid entry and larger payloads routed to data.
func NewLifecycle(messages *messagestore.MessageStore, events *eventlog.Log, data DataStore, threshold int64) *Lifecycle {
	return &Lifecycle{messages: messages, events: events, data: data, threshold: threshold}
}

// Write applies msg to tenantDid's record chain. It computes msg's
// message CID, validates immutable fields against the record's initial
// write (if any), resolves conflicts against whatever currently occupies
// msg.Descriptor.RecordID by latest-messageTimestamp-wins (ties broken by
// the lexicographically larger CID), and persists the winner.
//
// ErrWriteConflict is returned when msg itself loses; the store is left
// unchanged. ErrImmutablePropertyChanged is returned when msg disagrees
// with the record's initial write on a field that must never change.
func (l *Lifecycle) Write(ctx context.Context, tenantDid string, msg Message) (string, error) {
	messageCid, err := ComputeCID(Envelope{Descriptor: msg.Descriptor, Authorization: msg.Authorization})
	if err != nil {
		return "", fmt.Errorf("record: computing message cid: %w", err)
	}

	current, currentCid, found, err := l.latestWrite(tenantDid, msg.Descriptor.RecordID)
	if err != nil {
		return "", err
	}
	if found && !msg.Descriptor.sameImmutableFields(current) {
		return "", ErrImmutablePropertyChanged
	}
	if found && !wins(msg.Descriptor, messageCid, current, currentCid) {
		return "", ErrWriteConflict
	}

	if err := l.storeData(ctx, &msg); err != nil {
		return "", err
	}

	if found {
		if err := l.reap(tenantDid, currentCid); err != nil {
			return "", err
		}
	}

	indexes := msg.Descriptor.Indexes(msg.Author)
	if err := l.messages.Put(tenantDid, messageCid, msg.Raw, indexes); err != nil {
		return "", fmt.Errorf("record: storing write %s: %w", messageCid, err)
	}
	if _, err := l.events.Append(tenantDid, messageCid); err != nil {
		return "", fmt.Errorf("record: logging write %s: %w", messageCid, err)
	}
	return messageCid, nil
}

// Delete removes recordId's current write (message, index entries, and
// data) and records the tombstone in the event log as messageCid, the
// CID of the RecordsDelete message itself.
func (l *Lifecycle) Delete(ctx context.Context, tenantDid, recordID, messageCid string, raw []byte) error {
	_, currentCid, found, err := l.latestWrite(tenantDid, recordID)
	if err != nil {
		return err
	}
	if !found {
		return ErrRecordNotFound
	}

	current, err := l.messages.Get(tenantDid, currentCid)
	if err != nil {
		return fmt.Errorf("record: loading current write for %s: %w", recordID, err)
	}
	var currentDescriptor Descriptor
	if err := unmarshalDescriptor(current, &currentDescriptor); err == nil && currentDescriptor.DataCid != "" && l.data != nil {
		if err := l.data.Delete(ctx, currentDescriptor.DataCid); err != nil {
			return fmt.Errorf("record: deleting data for %s: %w", recordID, err)
		}
	}

	if err := l.reap(tenantDid, currentCid); err != nil {
		return err
	}
	if err := l.messages.Put(tenantDid, messageCid, raw, map[string]any{
		"recordId": recordID, "interface": "Records", "method": "Delete",
	}); err != nil {
		return fmt.Errorf("record: storing delete %s: %w", messageCid, err)
	}
	if _, err := l.events.Append(tenantDid, messageCid); err != nil {
		return fmt.Errorf("record: logging delete %s: %w", messageCid, err)
	}
	return nil
}

// Read returns recordId's current write and its message CID.
func (l *Lifecycle) Read(tenantDid, recordID string) (Descriptor, string, error) {
	d, cid, found, err := l.latestWrite(tenantDid, recordID)
	if err != nil {
		return Descriptor{}, "", err
	}
	if !found {
		return Descriptor{}, "", ErrRecordNotFound
	}
	return d, cid, nil
}

// latestWrite finds recordId's current RecordsWrite by querying the
// message store's recordId index, which spec.md §4.2 lists as the most
// selective lookup the filter planner can take.
func (l *Lifecycle) latestWrite(tenantDid, recordID string) (Descriptor, string, bool, error) {
	filters := []index.Filter{{
		"recordId": index.EqualFilter{Value: recordID},
		"method":   index.EqualFilter{Value: "Write"},
	}}
	results, _, err := l.messages.Query(tenantDid, filters, "messageTimestamp", true, nil, 1)
	if err != nil {
		return Descriptor{}, "", false, fmt.Errorf("record: looking up %s: %w", recordID, err)
	}
	if len(results) == 0 {
		return Descriptor{}, "", false, nil
	}
	var d Descriptor
	if err := unmarshalDescriptor(results[0].Raw, &d); err != nil {
		return Descriptor{}, "", false, fmt.Errorf("record: decoding current write for %s: %w", recordID, err)
	}
	return d, results[0].MessageCid, true, nil
}

// reap removes a conflict-losing (or superseded) write's message and
// index entries, and its event-log tombstone, per spec.md §4.7's "the
// losing message... is deleted". The message-store deletion and the
// event-log deletion are two separate kv.Store files, so this cannot be a
// single atomic commit; losing the process between the two calls leaves
// an orphaned event-log entry, which GetEvents callers must tolerate by
// treating a watermark whose message is already gone as already-delivered.
func (l *Lifecycle) reap(tenantDid, messageCid string) error {
	if err := l.messages.Delete(tenantDid, messageCid); err != nil {
		return fmt.Errorf("record: reaping message %s: %w", messageCid, err)
	}
	if err := l.events.DeleteByCid(tenantDid, messageCid); err != nil {
		return fmt.Errorf("record: reaping event for %s: %w", messageCid, err)
	}
	return nil
}

// wins reports whether candidate (with CID candidateCid) beats incumbent
// (with CID incumbentCid) under spec.md §4.7's conflict rule: the higher
// messageTimestamp wins; a tie is broken by the lexicographically larger
// CID.
func wins(candidate Descriptor, candidateCid string, incumbent Descriptor, incumbentCid string) bool {
	if candidate.MessageTimestamp != incumbent.MessageTimestamp {
		return candidate.MessageTimestamp > incumbent.MessageTimestamp
	}
	return candidateCid > incumbentCid
}

// storeData routes msg's payload to inline storage (leaving DataCid as
// whatever the caller already computed into the descriptor) or to the
// external DataStore when it exceeds the configured threshold.
func (l *Lifecycle) storeData(ctx context.Context, msg *Message) error {
	if msg.Data == nil {
		return nil
	}
	if msg.Descriptor.DataSize <= l.threshold {
		return nil
	}
	if l.data == nil {
		return fmt.Errorf("record: payload %d bytes exceeds inline threshold %d but no DataStore is configured", msg.Descriptor.DataSize, l.threshold)
	}
	if err := l.data.Put(ctx, msg.Descriptor.DataCid, msg.Data); err != nil {
		return fmt.Errorf("record: storing external data %s: %w", msg.Descriptor.DataCid, err)
	}
	return nil
}

// ReadData fetches a record's payload: from the external DataStore when
// it was routed there, or an error if the caller should instead read the
// inline copy embedded in the message itself.
func (l *Lifecycle) ReadData(ctx context.Context, d Descriptor) (io.ReadCloser, error) {
	if d.DataSize > l.threshold {
		if l.data == nil {
			return nil, fmt.Errorf("record: no DataStore configured to read %s", d.DataCid)
		}
		return l.data.Get(ctx, d.DataCid)
	}
	return nil, fmt.Errorf("record: %s is stored inline, not in the external DataStore", d.DataCid)
}

// unmarshalDescriptor decodes a stored write's raw bytes, which are either
// a {descriptor, authorization} envelope (the shape dwn.Write stores) or a
// bare Descriptor.
func unmarshalDescriptor(raw []byte, d *Descriptor) error {
	var env struct {
		Descriptor *Descriptor `json:"descriptor"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Descriptor != nil {
		*d = *env.Descriptor
		return nil
	}
	return json.Unmarshal(raw, d)
}
