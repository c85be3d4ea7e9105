package dwn_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"dwn.evalgo.org/authz"
	"dwn.evalgo.org/protocol"
	"dwn.evalgo.org/record"
)

func TestNonOwnerWriteWithoutProtocolForbidden(t *testing.T) {
	node := newTestNode(t)
	owner := newSigner(t)
	stranger := newSigner(t)
	ctx := context.Background()

	desc := record.Descriptor{
		Interface: "Records", Method: "Write",
		RecordID: "rec-no-protocol", DateCreated: "2026-01-01T00:00:00Z",
		MessageTimestamp: "2026-01-01T00:00:00Z",
	}
	_, err := node.Write(ctx, owner.did, desc, strings.NewReader("x"), stranger.auth(t, "rec-no-protocol"))
	require.ErrorIs(t, err, authz.ErrForbidden)
}

func TestNonOwnerWriteAllowedByAnyoneActionRule(t *testing.T) {
	node := newTestNode(t)
	owner := newSigner(t)
	contributor := newSigner(t)
	ctx := context.Background()

	def := protocol.Definition{
		Protocol: "https://protocol.example/thread",
		Nodes: map[string]protocol.Node{
			"chat": {Actions: []protocol.ActionRule{{Who: "anyone", Can: []string{"create", "update"}}}},
		},
	}
	_, err := node.ConfigureProtocol(ctx, owner.did, def, owner.auth(t, "configure-anyone"), "")
	require.NoError(t, err)

	desc := record.Descriptor{
		Interface: "Records", Method: "Write",
		RecordID: "rec-chat-1", DateCreated: "2026-01-01T00:00:00Z",
		MessageTimestamp: "2026-01-01T00:00:00Z",
		Protocol:          "https://protocol.example/thread",
		ProtocolPath:      "chat",
	}
	reply, err := node.Write(ctx, owner.did, desc, strings.NewReader("hi"), contributor.auth(t, "rec-chat-1"))
	require.NoError(t, err)
	require.Equal(t, 202, reply.Status.Code)
}
