package messagestore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwn.evalgo.org/index"
	"dwn.evalgo.org/kv"
	"dwn.evalgo.org/messagestore"
)

func newTestStore(t *testing.T) *messagestore.MessageStore {
	t.Helper()
	root, err := kv.Open(filepath.Join(t.TempDir(), "messages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })
	return messagestore.New(root)
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("did:example:alice", "cid1", []byte("message-bytes"), map[string]any{
		"schema": "foo",
	}))

	raw, err := s.Get("did:example:alice", "cid1")
	require.NoError(t, err)
	assert.Equal(t, "message-bytes", string(raw))
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("did:example:alice", "missing")
	require.ErrorIs(t, err, messagestore.ErrMessageNotFound)
}

func TestTenantIsolation(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("did:example:alice", "cid1", []byte("alice-data"), nil))

	_, err := s.Get("did:example:bob", "cid1")
	require.ErrorIs(t, err, messagestore.ErrMessageNotFound)
}

func TestQueryDelegatesToIndex(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("did:example:alice", "cid1", []byte("one"), map[string]any{"schema": "A"}))
	require.NoError(t, s.Put("did:example:alice", "cid2", []byte("two"), map[string]any{"schema": "B"}))

	results, _, err := s.Query("did:example:alice", []index.Filter{
		{"schema": index.EqualFilter{Value: "A"}},
	}, "", false, nil, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "one", string(results[0].Raw))
}

func TestDeleteRemovesMessageAndIndex(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("did:example:alice", "cid1", []byte("one"), map[string]any{"schema": "A"}))
	require.NoError(t, s.Delete("did:example:alice", "cid1"))

	_, err := s.Get("did:example:alice", "cid1")
	require.ErrorIs(t, err, messagestore.ErrMessageNotFound)

	results, _, err := s.Query("did:example:alice", []index.Filter{
		{"schema": index.EqualFilter{Value: "A"}},
	}, "", false, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDeleteMissingMessageFails(t *testing.T) {
	s := newTestStore(t)
	err := s.Delete("did:example:alice", "missing")
	require.ErrorIs(t, err, messagestore.ErrMessageNotFound)
}
