package dwn

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dwn.evalgo.org/authz"
	"dwn.evalgo.org/dispatch"
	"dwn.evalgo.org/grant"
	"dwn.evalgo.org/protocol"
	"dwn.evalgo.org/record"
)

// configureEnvelope is a ProtocolsConfigure message's full wire shape:
// the definition plus the authorization that signed it, mirroring
// writeEnvelope's descriptor+authorization pairing for Records messages.
type configureEnvelope struct {
	Definition    protocol.Definition `json:"definition"`
	Authorization *Authorization      `json:"authorization,omitempty"`
}

type configureParams struct {
	definition protocol.Definition
	auth       *Authorization

	// permissionGrantID lets a non-tenant caller install a protocol on
	// the tenant's behalf under a Protocols.Configure grant, per
	// spec.md §8 scenario 6.
	permissionGrantID string
}

// ConfigureProtocol submits a ProtocolsConfigure, installing def as the
// current definition for def.Protocol. The caller must either be the
// tenant itself or present a Protocols.Configure permission grant.
func (d *Dwn) ConfigureProtocol(ctx context.Context, tenantDid string, def protocol.Definition, auth *Authorization, permissionGrantID string) (dispatch.Reply, error) {
	raw, err := json.Marshal(configureEnvelope{Definition: def, Authorization: auth})
	if err != nil {
		return dispatch.Reply{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return d.dispatcher.Dispatch(ctx, dispatch.Request{
		TenantDid: tenantDid, Interface: "Protocols", Method: "Configure", Raw: raw,
		Data: configureParams{definition: def, auth: auth, permissionGrantID: permissionGrantID},
	})
}

func (d *Dwn) handleProtocolsConfigure(ctx context.Context, req dispatch.Request) (dispatch.Reply, error) {
	params, ok := req.Data.(configureParams)
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

	if signerDid != req.TenantDid {
		if params.permissionGrantID == "" {
			return dispatch.Reply{}, authz.ErrForbidden
		}
		scope := grant.Scope{Interface: "Protocols", Method: "Configure"}
		if _, err := d.grants.Evaluate(req.TenantDid, signerDid, params.permissionGrantID, time.Now().UTC(), scope); err != nil {
			return dispatch.Reply{}, err
		}
	}

	messageCid, err := record.ComputeCID(req.Raw)
	if err != nil {
		return dispatch.Reply{}, err
	}
	configuredAt := time.Now().UTC().Format(time.RFC3339Nano)
	if err := d.protocols.Configure(req.TenantDid, messageCid, params.definition, configuredAt); err != nil {
		return dispatch.Reply{}, err
	}
	return dispatch.Reply{Status: dispatch.Status{Code: 202}, PaginationMessageCid: messageCid}, nil
}
