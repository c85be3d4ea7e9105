package authz

import (
	"fmt"

	"dwn.evalgo.org/protocol"
)

// WriteRequest describes an incoming RecordsWrite/Delete awaiting
// protocol-rule authorization, once ownership alone has already been
// ruled out by the caller.
type WriteRequest struct {
	TenantDid    string
	SignerDid    string
	Protocol     string
	ProtocolPath string
	ContextID    string
	Recipient    string
	// Op is the $actions verb being attempted: "create", "update", or
	// "co-delete".
	Op string
}

// AuthorizeWrite evaluates a non-owner RecordsWrite/Delete against the
// $actions who/can rules def.ActionRulesFor(req.ProtocolPath) declares,
// per spec.md §4.2's protocol rule-tree. A record with no protocol is
// never non-owner-writable; Definition.ActionRulesFor is the one path
// that can grant it. Returns ErrForbidden when no rule admits req.Op.
func (e *Engine) AuthorizeWrite(req WriteRequest) error {
	if req.SignerDid != "" && req.SignerDid == req.TenantDid {
		return nil
	}
	if req.Protocol == "" || req.ProtocolPath == "" {
		return ErrForbidden
	}

	def, ok, err := e.protocols.Lookup(req.TenantDid, req.Protocol)
	if err != nil {
		return fmt.Errorf("authz: looking up protocol %s: %w", req.Protocol, err)
	}
	if !ok {
		return ErrForbidden
	}

	for _, rule := range def.ActionRulesFor(req.ProtocolPath) {
		if !rule.Allows(req.Op) {
			continue
		}
		switch rule.Who {
		case "anyone":
			return nil
		case "recipient":
			if req.SignerDid != "" && req.SignerDid == req.Recipient {
				return nil
			}
		case "role":
			scope := protocol.ContextRole
			if req.ContextID == "" {
				scope = protocol.GlobalRole
			}
			has, err := e.roles.HasRole(req.TenantDid, req.Protocol, rule.Role, req.ContextID, req.SignerDid, scope)
			if err != nil {
				return fmt.Errorf("authz: evaluating write role %s: %w", rule.Role, err)
			}
			if has {
				return nil
			}
		}
	}
	return ErrForbidden
}
