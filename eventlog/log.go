// Package eventlog implements Component C4: an append-only, per-tenant log
// of message CIDs in the order the node accepted them, which is how
// subscribers replay everything they missed since a given watermark.
package eventlog

import (
	"encoding/binary"
	"fmt"

	"dwn.evalgo.org/kv"
)

// Event is one entry in the log: the message it names, and the
// monotonically increasing watermark it was appended at.
type Event struct {
	MessageCid string
	Watermark  string
}

// Log is Component C4.
type Log struct {
	root kv.Store
}

// New builds a Log over root, typically the Store opened at
// config.Options.EventLogLocation.
func New(root kv.Store) *Log {
	return &Log{root: root}
}

func (l *Log) tenant(tenantDid string) kv.Partition { return l.root.Partition(tenantDid) }

const watermarkWidth = 20

func encodeWatermark(seq uint64) string {
	return fmt.Sprintf("%0*d", watermarkWidth, seq)
}

// Append adds messageCid to tenantDid's log and returns its watermark.
func (l *Log) Append(tenantDid, messageCid string) (string, error) {
	var watermark string
	err := l.root.Transaction(func(tx kv.Txn) error {
		meta := tx.Partition(tenantDid).Partition("events").Partition("meta")
		seq, err := nextSeq(meta)
		if err != nil {
			return err
		}
		watermark = encodeWatermark(seq)

		byseq := tx.Partition(tenantDid).Partition("events").Partition("byseq")
		if err := byseq.Put([]byte(watermark), []byte(messageCid)); err != nil {
			return err
		}
		bycid := tx.Partition(tenantDid).Partition("events").Partition("bycid")
		return bycid.Put([]byte(messageCid), []byte(watermark))
	})
	if err != nil {
		return "", fmt.Errorf("eventlog: appending %s: %w", messageCid, err)
	}
	return watermark, nil
}

func nextSeq(meta kv.Txn) (uint64, error) {
	raw, found, err := meta.Get([]byte("seq"))
	if err != nil {
		return 0, err
	}
	var seq uint64
	if found {
		seq = binary.BigEndian.Uint64(raw)
	}
	seq++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	if err := meta.Put([]byte("seq"), buf); err != nil {
		return 0, err
	}
	return seq, nil
}

// GetEvents returns every event appended after since (exclusive), in
// watermark order. Pass "" to replay the whole log.
func (l *Log) GetEvents(tenantDid, since string) ([]Event, error) {
	byseq := l.tenant(tenantDid).Partition("events").Partition("byseq")

	rng := kv.Range{}
	if since != "" {
		rng.Gt = []byte(since)
	}

	var events []Event
	err := byseq.Iterate(rng, func(k, v []byte) (bool, error) {
		events = append(events, Event{MessageCid: string(v), Watermark: string(k)})
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("eventlog: replaying events for %s: %w", tenantDid, err)
	}
	return events, nil
}

// DeleteByCid removes the event recording messageCid, used when a record's
// conflict-losing message is reaped from the store.
func (l *Log) DeleteByCid(tenantDid, messageCid string) error {
	bycid := l.tenant(tenantDid).Partition("events").Partition("bycid")
	watermark, found, err := bycid.Get([]byte(messageCid))
	if err != nil {
		return fmt.Errorf("eventlog: looking up %s: %w", messageCid, err)
	}
	if !found {
		return ErrEventNotFound
	}

	err = l.root.Transaction(func(tx kv.Txn) error {
		if err := tx.Partition(tenantDid).Partition("events").Partition("byseq").Delete(watermark); err != nil {
			return err
		}
		return tx.Partition(tenantDid).Partition("events").Partition("bycid").Delete([]byte(messageCid))
	})
	if err != nil {
		return fmt.Errorf("eventlog: deleting %s: %w", messageCid, err)
	}
	return nil
}
