package authz_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwn.evalgo.org/authz"
	"dwn.evalgo.org/index"
	"dwn.evalgo.org/kv"
	"dwn.evalgo.org/messagestore"
	"dwn.evalgo.org/protocol"
)

const (
	alice = "did:example:alice"
	bob   = "did:example:bob"
)

func newTestStore(t *testing.T) *messagestore.MessageStore {
	t.Helper()
	root, err := kv.Open(filepath.Join(t.TempDir(), "messages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })
	return messagestore.New(root)
}

func TestAnonymousUnpublishedFilterForbidden(t *testing.T) {
	messages := newTestStore(t)
	engine := authz.NewEngine(messages)

	_, err := engine.AuthorizeQuery(authz.QueryRequest{
		TenantDid: alice,
		Filters:   []index.Filter{{"published": index.EqualFilter{Value: false}}},
	})
	require.ErrorIs(t, err, authz.ErrForbidden)
}

func TestAnonymousSeesOnlyPublished(t *testing.T) {
	messages := newTestStore(t)
	require.NoError(t, messages.Put(alice, "pub-cid", []byte("published-record"), map[string]any{
		"published": true, "schema": "note",
	}))
	require.NoError(t, messages.Put(alice, "draft-cid", []byte("draft-record"), map[string]any{
		"published": false, "schema": "note",
	}))

	engine := authz.NewEngine(messages)
	result, err := engine.AuthorizeQuery(authz.QueryRequest{
		TenantDid: alice,
		Filters:   []index.Filter{{"schema": index.EqualFilter{Value: "note"}}},
	})
	require.NoError(t, err)
	require.False(t, result.EmptyResult)

	got, _, err := messages.Query(alice, result.Filters, "", false, nil, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "published-record", string(got[0].Raw))
}

func TestAuthenticatedNonOwnerUnpublishedIsSilentlyEmpty(t *testing.T) {
	messages := newTestStore(t)
	engine := authz.NewEngine(messages)

	result, err := engine.AuthorizeQuery(authz.QueryRequest{
		TenantDid: alice,
		SignerDid: bob,
		Filters:   []index.Filter{{"published": index.EqualFilter{Value: false}}},
	})
	require.NoError(t, err)
	assert.True(t, result.EmptyResult)
}

func TestOwnerUnrestricted(t *testing.T) {
	messages := newTestStore(t)
	require.NoError(t, messages.Put(alice, "draft-cid", []byte("draft-record"), map[string]any{
		"published": false, "schema": "note",
	}))

	engine := authz.NewEngine(messages)
	result, err := engine.AuthorizeQuery(authz.QueryRequest{
		TenantDid: alice,
		SignerDid: alice,
		Filters:   []index.Filter{{"published": index.EqualFilter{Value: false}}},
	})
	require.NoError(t, err)
	require.False(t, result.EmptyResult)

	got, _, err := messages.Query(alice, result.Filters, "", false, nil, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestProtocolRoleGrantsFullVisibility(t *testing.T) {
	messages := newTestStore(t)
	require.NoError(t, messages.Put(alice, "friend-cid", []byte("{}"), map[string]any{
		"protocol": "social", "protocolPath": "friend", "recipient": bob, "method": "Write",
	}))
	for i, cid := range []string{"chat-1", "chat-2", "chat-3"} {
		require.NoError(t, messages.Put(alice, cid, []byte(cid), map[string]any{
			"protocol": "social", "protocolPath": "chat", "published": false, "method": "Write", "seq": i,
		}))
	}

	engine := authz.NewEngine(messages)

	withRole, err := engine.AuthorizeQuery(authz.QueryRequest{
		TenantDid: alice, SignerDid: bob,
		Filters:      []index.Filter{{"protocol": index.EqualFilter{Value: "social"}, "protocolPath": index.EqualFilter{Value: "chat"}}},
		ProtocolRole: "friend", RoleScope: protocol.GlobalRole, Protocol: "social", ProtocolPath: "chat",
	})
	require.NoError(t, err)
	require.False(t, withRole.EmptyResult)
	got, _, err := messages.Query(alice, withRole.Filters, "", false, nil, 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	withoutRole, err := engine.AuthorizeQuery(authz.QueryRequest{
		TenantDid: alice, SignerDid: "did:example:carol",
		Filters:      []index.Filter{{"protocol": index.EqualFilter{Value: "social"}, "protocolPath": index.EqualFilter{Value: "chat"}}},
		ProtocolRole: "friend", RoleScope: protocol.GlobalRole, Protocol: "social", ProtocolPath: "chat",
	})
	require.NoError(t, err)
	assert.True(t, withoutRole.EmptyResult)
}

func TestProtocolRoleMissingContextIDFails(t *testing.T) {
	messages := newTestStore(t)
	engine := authz.NewEngine(messages)

	_, err := engine.AuthorizeQuery(authz.QueryRequest{
		TenantDid: alice, SignerDid: bob,
		Filters:      []index.Filter{{"protocol": index.EqualFilter{Value: "social"}}},
		ProtocolRole: "friend", RoleScope: protocol.ContextRole, Protocol: "social", ProtocolPath: "chat",
	})
	require.ErrorIs(t, err, authz.ErrMissingContextID)
}

func TestProtocolQueryMissingProtocolPathFails(t *testing.T) {
	messages := newTestStore(t)
	engine := authz.NewEngine(messages)

	_, err := engine.AuthorizeQuery(authz.QueryRequest{
		TenantDid: alice, SignerDid: bob,
		ProtocolRole: "friend", Protocol: "social",
	})
	require.ErrorIs(t, err, authz.ErrMissingProtocolPath)
}
