// Package authz implements Component C8: the RecordsQuery/RecordsRead
// authorization pipeline — anonymous/non-owner/owner visibility,
// protocol-role evaluation, and permission-grant scoping, evaluated in
// the order spec.md §4.8 specifies.
package authz

import (
	"fmt"
	"time"

	"dwn.evalgo.org/grant"
	"dwn.evalgo.org/index"
	"dwn.evalgo.org/messagestore"
	"dwn.evalgo.org/protocol"
)

// Engine is Component C8.
type Engine struct {
	roles     *protocol.RoleQuery
	grants    *grant.Store
	protocols *protocol.Store
}

// NewEngine wires an Engine over the tenant's message store, which the
// role query, the grant store, and the protocol store all resolve their
// lookups against.
func NewEngine(messages *messagestore.MessageStore) *Engine {
	return &Engine{
		roles:     protocol.NewRoleQuery(messages),
		grants:    grant.NewStore(messages),
		protocols: protocol.NewStore(messages),
	}
}

// QueryRequest describes an incoming RecordsQuery/RecordsRead awaiting
// authorization.
type QueryRequest struct {
	TenantDid string
	// SignerDid is "" for an anonymous (unauthenticated) caller.
	SignerDid string
	Filters   []index.Filter

	// ProtocolRole, when non-empty, names the role path the caller
	// invoked (spec.md's protocolRole:'friend' style). Protocol and
	// ProtocolPath must both be set; ContextID is required when
	// RoleScope is protocol.ContextRole.
	ProtocolRole string
	RoleScope    protocol.RoleScope
	Protocol     string
	ProtocolPath string
	ContextID    string

	// PermissionGrantID, when non-empty, names a PermissionsGrant the
	// caller presents in lieu of owning the record or holding a role.
	PermissionGrantID string
	Operation         grant.Scope

	Now time.Time
}

// Result is what the caller should actually run against the index/
// message store once authorization has resolved.
type Result struct {
	// Filters is the (possibly rewritten) filter set to query with.
	Filters []index.Filter
	// EmptyResult, when true, means the caller is authorized to ask the
	// question but the answer is defined to be zero entries — skip the
	// query entirely.
	EmptyResult bool
}

// AuthorizeQuery runs spec.md §4.8's 5-step evaluation order and returns
// either the filters to query with, a directive to return zero entries,
// or an error (ErrForbidden, ErrMissingContextID,
// ErrMissingProtocolPath, or one of the grant package's sentinels).
func (e *Engine) AuthorizeQuery(req QueryRequest) (Result, error) {
	// Step 3: owner — any filter is accepted unrestricted.
	if req.SignerDid != "" && req.SignerDid == req.TenantDid {
		return Result{Filters: req.Filters}, nil
	}

	requestsUnpublished := anyFilterRequestsUnpublished(req.Filters)

	// Step 1: anonymous.
	if req.SignerDid == "" {
		if requestsUnpublished {
			return Result{}, ErrForbidden
		}
		return Result{Filters: restrictToPublished(req.Filters)}, nil
	}

	// Step 4: protocol-scoped query via role.
	if req.ProtocolRole != "" {
		if req.Protocol == "" || req.ProtocolPath == "" {
			return Result{}, ErrMissingProtocolPath
		}
		if req.RoleScope == protocol.ContextRole && req.ContextID == "" {
			return Result{}, ErrMissingContextID
		}
		has, err := e.roles.HasRole(req.TenantDid, req.Protocol, req.ProtocolRole, req.ContextID, req.SignerDid, req.RoleScope)
		if err != nil {
			return Result{}, fmt.Errorf("authz: evaluating protocol role: %w", err)
		}
		if !has {
			return Result{EmptyResult: true}, nil
		}
		return Result{Filters: req.Filters}, nil
	}

	// Step 5: permission grant.
	if req.PermissionGrantID != "" {
		if _, err := e.grants.Evaluate(req.TenantDid, req.SignerDid, req.PermissionGrantID, req.Now, req.Operation); err != nil {
			return Result{}, err
		}
		return Result{Filters: req.Filters}, nil
	}

	// Step 2: authenticated non-owner, no role or grant presented.
	if requestsUnpublished {
		return Result{EmptyResult: true}, nil
	}
	return Result{Filters: expandForNonOwner(req.SignerDid, req.Filters)}, nil
}
