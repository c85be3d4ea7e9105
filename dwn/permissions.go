package dwn

import (
	"context"
	"encoding/json"
	"fmt"

	"dwn.evalgo.org/authz"
	"dwn.evalgo.org/dispatch"
	"dwn.evalgo.org/grant"
	"dwn.evalgo.org/record"
)

// grantEnvelope is a PermissionsGrant message's full wire shape.
type grantEnvelope struct {
	Grant         grant.Grant    `json:"grant"`
	Authorization *Authorization `json:"authorization,omitempty"`
}

type grantParams struct {
	grant grant.Grant
	auth  *Authorization
}

// Grant submits a PermissionsGrant. Only the tenant itself may issue a
// grant over its own data; g.GrantedBy and g.GrantedFor must both name
// tenantDid.
func (d *Dwn) Grant(ctx context.Context, tenantDid string, g grant.Grant, auth *Authorization) (dispatch.Reply, error) {
	raw, err := json.Marshal(grantEnvelope{Grant: g, Authorization: auth})
	if err != nil {
		return dispatch.Reply{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return d.dispatcher.Dispatch(ctx, dispatch.Request{
		TenantDid: tenantDid, Interface: "Permissions", Method: "Grant", Raw: raw,
		Data: grantParams{grant: g, auth: auth},
	})
}

func (d *Dwn) handlePermissionsGrant(ctx context.Context, req dispatch.Request) (dispatch.Reply, error) {
	params, ok := req.Data.(grantParams)
	if !ok {
		return dispatch.Reply{}, ErrInvalidMessage
	}
	signerDid, err := d.authenticate(params.auth)
	if err != nil {
		return dispatch.Reply{}, err
	}
	if signerDid == "" {
		return dispatch.Reply{}, ErrUnauthenticatedWrite
	}
	if signerDid != req.TenantDid || params.grant.GrantedBy != req.TenantDid || params.grant.GrantedFor != req.TenantDid {
		return dispatch.Reply{}, authz.ErrForbidden
	}

	messageCid, err := record.ComputeCID(req.Raw)
	if err != nil {
		return dispatch.Reply{}, err
	}
	if err := d.grants.Put(req.TenantDid, messageCid, params.grant); err != nil {
		return dispatch.Reply{}, err
	}
	return dispatch.Reply{Status: dispatch.Status{Code: 202}, PaginationMessageCid: messageCid}, nil
}

type revokeParams struct {
	grantID string
	auth    *Authorization
}

// Revoke submits a PermissionsRevoke for grantID. Only the tenant itself
// may revoke a grant it issued.
func (d *Dwn) Revoke(ctx context.Context, tenantDid, grantID string, auth *Authorization) (dispatch.Reply, error) {
	raw, err := json.Marshal(map[string]any{"permissionsGrantId": grantID, "authorization": auth})
	if err != nil {
		return dispatch.Reply{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return d.dispatcher.Dispatch(ctx, dispatch.Request{
		TenantDid: tenantDid, Interface: "Permissions", Method: "Revoke", Raw: raw,
		Data: revokeParams{grantID: grantID, auth: auth},
	})
}

func (d *Dwn) handlePermissionsRevoke(ctx context.Context, req dispatch.Request) (dispatch.Reply, error) {
	params, ok := req.Data.(revokeParams)
	if !ok {
		return dispatch.Reply{}, ErrInvalidMessage
	}
	signerDid, err := d.authenticate(params.auth)
	if err != nil {
		return dispatch.Reply{}, err
	}
	if signerDid == "" {
		return dispatch.Reply{}, ErrUnauthenticatedWrite
	}

	g, err := d.grants.Lookup(req.TenantDid, params.grantID)
	if err != nil {
		return dispatch.Reply{}, err
	}
	if signerDid != req.TenantDid || g.GrantedBy != req.TenantDid {
		return dispatch.Reply{}, authz.ErrForbidden
	}

	messageCid, err := record.ComputeCID(req.Raw)
	if err != nil {
		return dispatch.Reply{}, err
	}
	if err := d.grants.Revoke(req.TenantDid, messageCid, params.grantID); err != nil {
		return dispatch.Reply{}, err
	}
	return dispatch.Reply{Status: dispatch.Status{Code: 202}, PaginationMessageCid: messageCid}, nil
}
