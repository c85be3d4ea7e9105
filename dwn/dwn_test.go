package dwn_test

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-varint"
	"github.com/stretchr/testify/require"

	"dwn.evalgo.org/config"
	"dwn.evalgo.org/dwn"
	"dwn.evalgo.org/index"
	"dwn.evalgo.org/protocol"
	"dwn.evalgo.org/record"
	"dwn.evalgo.org/verifier"
)

type signer struct {
	did string
	key jwk.Key
}

func newSigner(t *testing.T) signer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	prefixed := append(varint.ToUvarint(0xed), pub...)
	mb, err := multibase.Encode(multibase.Base58BTC, prefixed)
	require.NoError(t, err)
	did := "did:key:" + mb
	kid := did + "#" + mb

	key, err := jwk.FromRaw(priv)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.EdDSA))
	return signer{did: did, key: key}
}

func (s signer) sign(t *testing.T, payload []byte) verifier.JWS {
	t.Helper()
	signed, err := jws.Sign(payload, jws.WithKey(jwa.EdDSA, s.key), jws.WithDetached(true))
	require.NoError(t, err)
	parts := strings.SplitN(string(signed), ".", 3)
	require.Len(t, parts, 3)
	return verifier.JWS{
		Payload: base64.RawURLEncoding.EncodeToString(payload),
		Signatures: []verifier.Signature{
			{Protected: parts[0], Signature: parts[2]},
		},
	}
}

func (s signer) auth(t *testing.T, descriptorCid string) *dwn.Authorization {
	return &dwn.Authorization{Signature: s.sign(t, []byte(descriptorCid))}
}

func newTestNode(t *testing.T) *dwn.Dwn {
	t.Helper()
	dir := t.TempDir()
	opts := config.DefaultOptions()
	opts.MessageStoreLocation = filepath.Join(dir, "messages.db")
	opts.EventLogLocation = filepath.Join(dir, "events.db")
	opts.DataStoreLocation = filepath.Join(dir, "data")

	node, err := dwn.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { node.Close() })
	return node
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	node := newTestNode(t)
	owner := newSigner(t)
	ctx := context.Background()

	desc := record.Descriptor{
		Interface: "Records", Method: "Write",
		RecordID: "rec-1", DateCreated: "2026-01-01T00:00:00Z",
		Schema: "https://schema.example/note", DataFormat: "text/plain",
		MessageTimestamp: "2026-01-01T00:00:00Z",
	}
	reply, err := node.Write(ctx, owner.did, desc, strings.NewReader("hello"), owner.auth(t, "rec-1"))
	require.NoError(t, err)
	require.Equal(t, 202, reply.Status.Code)

	readReply, err := node.Read(ctx, owner.did, "rec-1", owner.auth(t, "rec-1"))
	require.NoError(t, err)
	require.Equal(t, 200, readReply.Status.Code)
	require.Len(t, readReply.Entries, 1)
}

func TestWriteWithoutAuthorizationRejected(t *testing.T) {
	node := newTestNode(t)
	ctx := context.Background()

	desc := record.Descriptor{
		Interface: "Records", Method: "Write",
		RecordID: "rec-1", DateCreated: "2026-01-01T00:00:00Z",
		MessageTimestamp: "2026-01-01T00:00:00Z",
	}
	_, err := node.Write(ctx, "did:key:zOwner", desc, strings.NewReader("hello"), nil)
	require.ErrorIs(t, err, dwn.ErrUnauthenticatedWrite)
}

func TestEqualTimestampTiebreakOnLargerCid(t *testing.T) {
	node := newTestNode(t)
	owner := newSigner(t)
	ctx := context.Background()

	base := record.Descriptor{
		Interface: "Records", Method: "Write",
		RecordID: "rec-tie", DateCreated: "2026-01-01T00:00:00Z",
		MessageTimestamp: "2026-01-01T00:00:00Z",
	}
	first := base
	first.DataFormat = "text/plain"
	firstReply, err := node.Write(ctx, owner.did, first, strings.NewReader("a"), owner.auth(t, "rec-tie-a"))
	require.NoError(t, err)
	cidA := firstReply.PaginationMessageCid

	second := base
	second.DataFormat = "application/json"
	secondReply, err := node.Write(ctx, owner.did, second, strings.NewReader("b"), owner.auth(t, "rec-tie-b"))

	readReply, readErr := node.Read(ctx, owner.did, "rec-tie", owner.auth(t, "rec-tie"))
	require.NoError(t, readErr)
	require.Len(t, readReply.Entries, 1)
	if err == nil {
		cidB := secondReply.PaginationMessageCid
		require.Greater(t, cidB, cidA)
		require.Equal(t, cidB, readReply.PaginationMessageCid)
	} else {
		require.ErrorIs(t, err, record.ErrWriteConflict)
		require.Equal(t, cidA, readReply.PaginationMessageCid)
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	node := newTestNode(t)
	owner := newSigner(t)
	ctx := context.Background()

	desc := record.Descriptor{
		Interface: "Records", Method: "Write",
		RecordID: "rec-del", DateCreated: "2026-01-01T00:00:00Z",
		MessageTimestamp: "2026-01-01T00:00:00Z",
	}
	_, err := node.Write(ctx, owner.did, desc, strings.NewReader("x"), owner.auth(t, "rec-del"))
	require.NoError(t, err)

	_, err = node.Delete(ctx, owner.did, "rec-del", "tombstone-cid", []byte("delete-msg"), owner.auth(t, "rec-del-delete"))
	require.NoError(t, err)

	_, err = node.Read(ctx, owner.did, "rec-del", owner.auth(t, "rec-del"))
	require.ErrorIs(t, err, record.ErrRecordNotFound)
}

func TestAnonymousQuerySeesOnlyPublishedRecords(t *testing.T) {
	node := newTestNode(t)
	owner := newSigner(t)
	ctx := context.Background()

	published := record.Descriptor{
		Interface: "Records", Method: "Write",
		RecordID: "rec-pub", DateCreated: "2026-01-01T00:00:00Z",
		MessageTimestamp: "2026-01-01T00:00:00Z", Published: true,
	}
	_, err := node.Write(ctx, owner.did, published, strings.NewReader("p"), owner.auth(t, "rec-pub"))
	require.NoError(t, err)

	unpublished := record.Descriptor{
		Interface: "Records", Method: "Write",
		RecordID: "rec-priv", DateCreated: "2026-01-01T00:00:00Z",
		MessageTimestamp: "2026-01-01T00:00:00Z", Published: false,
	}
	_, err = node.Write(ctx, owner.did, unpublished, strings.NewReader("s"), owner.auth(t, "rec-priv"))
	require.NoError(t, err)

	reply, err := node.Query(ctx, owner.did, dwn.QueryParams{
		Filters: []index.Filter{{"schema": index.EqualFilter{Value: ""}}},
	})
	require.NoError(t, err)
	require.Equal(t, 200, reply.Status.Code)
	require.Len(t, reply.Entries, 1)
}

func TestAnonymousQueryForUnpublishedForbidden(t *testing.T) {
	node := newTestNode(t)
	owner := newSigner(t)
	ctx := context.Background()

	_, err := node.Query(ctx, owner.did, dwn.QueryParams{
		Filters: []index.Filter{{"published": index.EqualFilter{Value: false}}},
	})
	require.Error(t, err)
}

func TestOwnerQueryIsUnrestricted(t *testing.T) {
	node := newTestNode(t)
	owner := newSigner(t)
	ctx := context.Background()

	desc := record.Descriptor{
		Interface: "Records", Method: "Write",
		RecordID: "rec-owner-only", DateCreated: "2026-01-01T00:00:00Z",
		MessageTimestamp: "2026-01-01T00:00:00Z", Published: false,
	}
	_, err := node.Write(ctx, owner.did, desc, strings.NewReader("x"), owner.auth(t, "rec-owner-only"))
	require.NoError(t, err)

	reply, err := node.Query(ctx, owner.did, dwn.QueryParams{
		Filters: []index.Filter{{"recordId": index.EqualFilter{Value: "rec-owner-only"}}},
		Auth:    owner.auth(t, "owner-query"),
	})
	require.NoError(t, err)
	require.Len(t, reply.Entries, 1)
}

func TestProtocolRoleGrantsVisibility(t *testing.T) {
	node := newTestNode(t)
	owner := newSigner(t)
	friend := newSigner(t)
	ctx := context.Background()

	roleRecord := record.Descriptor{
		Interface: "Records", Method: "Write",
		RecordID: "rec-role", DateCreated: "2026-01-01T00:00:00Z",
		MessageTimestamp: "2026-01-01T00:00:00Z",
		Protocol:          "https://protocol.example/social",
		ProtocolPath:      "friend",
		Recipient:         friend.did,
	}
	_, err := node.Write(ctx, owner.did, roleRecord, strings.NewReader("x"), owner.auth(t, "rec-role"))
	require.NoError(t, err)

	gated := record.Descriptor{
		Interface: "Records", Method: "Write",
		RecordID: "rec-gated", DateCreated: "2026-01-01T00:00:00Z",
		MessageTimestamp: "2026-01-01T00:00:00Z", Published: false,
		Protocol:     "https://protocol.example/social",
		ProtocolPath: "post",
	}
	_, err = node.Write(ctx, owner.did, gated, strings.NewReader("x"), owner.auth(t, "rec-gated"))
	require.NoError(t, err)

	reply, err := node.Query(ctx, owner.did, dwn.QueryParams{
		Filters:      []index.Filter{{"protocol": index.EqualFilter{Value: "https://protocol.example/social"}}},
		ProtocolRole: "friend", RoleScope: protocol.GlobalRole,
		Protocol: "https://protocol.example/social", ProtocolPath: "friend",
		Auth: friend.auth(t, "role-query"),
	})
	require.NoError(t, err)
	require.Len(t, reply.Entries, 2)
}

func TestPermissionGrantUnknownIsRejected(t *testing.T) {
	node := newTestNode(t)
	owner := newSigner(t)
	grantee := newSigner(t)
	ctx := context.Background()

	_, err := node.Query(ctx, owner.did, dwn.QueryParams{
		Filters:           []index.Filter{{"schema": index.EqualFilter{Value: ""}}},
		PermissionGrantID: "grant-does-not-exist",
		Auth:              grantee.auth(t, "grant-query"),
	})
	require.Error(t, err)
}

func TestQueryByDateCreatedRange(t *testing.T) {
	node := newTestNode(t)
	owner := newSigner(t)
	ctx := context.Background()

	early := record.Descriptor{
		Interface: "Records", Method: "Write",
		RecordID: "rec-early", DateCreated: "2026-01-01T00:00:00Z",
		MessageTimestamp: "2026-01-01T00:00:00Z", Published: true,
	}
	late := record.Descriptor{
		Interface: "Records", Method: "Write",
		RecordID: "rec-late", DateCreated: "2026-06-01T00:00:00Z",
		MessageTimestamp: "2026-06-01T00:00:00Z", Published: true,
	}
	_, err := node.Write(ctx, owner.did, early, strings.NewReader("a"), owner.auth(t, "rec-early"))
	require.NoError(t, err)
	_, err = node.Write(ctx, owner.did, late, strings.NewReader("b"), owner.auth(t, "rec-late"))
	require.NoError(t, err)

	reply, err := node.Query(ctx, owner.did, dwn.QueryParams{
		Filters: []index.Filter{{
			"dateCreated": index.RangeFilter{Gte: "2026-03-01T00:00:00Z"},
		}},
	})
	require.NoError(t, err)
	require.Len(t, reply.Entries, 1)
}
