package protocol

import (
	"fmt"

	"dwn.evalgo.org/index"
	"dwn.evalgo.org/messagestore"
)

// RoleQuery resolves whether a DID holds a given protocol role by issuing
// an index query against the role record's declared path, never by
// walking an in-memory graph — the approach spec.md §9 calls out under
// "cyclic references avoided".
type RoleQuery struct {
	messages *messagestore.MessageStore
}

// NewRoleQuery builds a RoleQuery over the tenant's message store.
func NewRoleQuery(messages *messagestore.MessageStore) *RoleQuery {
	return &RoleQuery{messages: messages}
}

// HasRole reports whether signerDid has a live write under protocol at
// rolePath naming signerDid as recipient. For ContextRole, contextID must
// additionally match the role record's own contextId.
func (q *RoleQuery) HasRole(tenantDid, protocolName, rolePath, contextID, signerDid string, scope RoleScope) (bool, error) {
	filter := index.Filter{
		"protocol":     index.EqualFilter{Value: protocolName},
		"protocolPath": index.EqualFilter{Value: rolePath},
		"recipient":    index.EqualFilter{Value: signerDid},
		"method":       index.EqualFilter{Value: "Write"},
	}
	if scope == ContextRole {
		filter["contextId"] = index.EqualFilter{Value: contextID}
	}

	results, _, err := q.messages.Query(tenantDid, []index.Filter{filter}, "", false, nil, 1)
	if err != nil {
		return false, fmt.Errorf("protocol: querying role %s for %s: %w", rolePath, signerDid, err)
	}
	return len(results) > 0, nil
}
