package dwn_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dwn.evalgo.org/authz"
	"dwn.evalgo.org/dwn"
	"dwn.evalgo.org/grant"
	"dwn.evalgo.org/index"
)

func TestGrantByNonTenantForbidden(t *testing.T) {
	node := newTestNode(t)
	owner := newSigner(t)
	stranger := newSigner(t)
	ctx := context.Background()

	now := time.Now().UTC()
	g := grant.Grant{
		GrantID:     "grant-forbidden-1",
		GrantedBy:   owner.did,
		GrantedTo:   stranger.did,
		GrantedFor:  owner.did,
		Scope:       grant.Scope{Interface: "Records", Method: "Query"},
		DateGranted: now.Format(time.RFC3339),
	}
	_, err := node.Grant(ctx, owner.did, g, stranger.auth(t, "grant-forbidden"))
	require.ErrorIs(t, err, authz.ErrForbidden)
}

func TestGrantRoundTripThenRevokeIsEnforced(t *testing.T) {
	node := newTestNode(t)
	owner := newSigner(t)
	grantee := newSigner(t)
	ctx := context.Background()

	now := time.Now().UTC()
	g := grant.Grant{
		GrantID:     "grant-roundtrip-1",
		GrantedBy:   owner.did,
		GrantedTo:   grantee.did,
		GrantedFor:  owner.did,
		Scope:       grant.Scope{Interface: "Records", Method: "Query"},
		DateGranted: now.Add(-time.Minute).Format(time.RFC3339),
		DateExpires: now.Add(time.Hour).Format(time.RFC3339),
	}
	reply, err := node.Grant(ctx, owner.did, g, owner.auth(t, "grant-roundtrip"))
	require.NoError(t, err)
	require.Equal(t, 202, reply.Status.Code)

	revokeReply, err := node.Revoke(ctx, owner.did, g.GrantID, owner.auth(t, "revoke-roundtrip"))
	require.NoError(t, err)
	require.Equal(t, 202, revokeReply.Status.Code)

	_, err = node.Query(ctx, owner.did, dwn.QueryParams{
		Filters:           []index.Filter{{"schema": index.EqualFilter{Value: ""}}},
		PermissionGrantID: g.GrantID,
		Auth:              grantee.auth(t, "revoked-grant-query"),
	})
	require.ErrorIs(t, err, grant.ErrGrantRevoked)
}
