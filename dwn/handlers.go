package dwn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"dwn.evalgo.org/authz"
	"dwn.evalgo.org/dispatch"
	"dwn.evalgo.org/grant"
	"dwn.evalgo.org/index"
	"dwn.evalgo.org/protocol"
	"dwn.evalgo.org/record"
)

func (d *Dwn) registerHandlers() {
	d.dispatcher.Register("Records", "Write", dispatch.HandlerFunc(d.handleRecordsWrite))
	d.dispatcher.Register("Records", "Delete", dispatch.HandlerFunc(d.handleRecordsDelete))
	d.dispatcher.Register("Records", "Read", dispatch.HandlerFunc(d.handleRecordsRead))
	d.dispatcher.Register("Records", "Query", dispatch.HandlerFunc(d.handleRecordsQuery))
	d.dispatcher.Register("Protocols", "Configure", dispatch.HandlerFunc(d.handleProtocolsConfigure))
	d.dispatcher.Register("Permissions", "Grant", dispatch.HandlerFunc(d.handlePermissionsGrant))
	d.dispatcher.Register("Permissions", "Revoke", dispatch.HandlerFunc(d.handlePermissionsRevoke))
}

type writeParams struct {
	descriptor record.Descriptor
	data       io.Reader
	auth       *Authorization
}

// writeEnvelope is a RecordsWrite/Delete message's full wire shape: the
// descriptor plus the authorization that signed it. Both the stored Raw
// bytes and the message CID (record.Envelope) are derived from this same
// pairing, so the CID can never be computed from the descriptor alone.
type writeEnvelope struct {
	Descriptor    record.Descriptor `json:"descriptor"`
	Authorization *Authorization    `json:"authorization,omitempty"`
}

// Write submits a RecordsWrite. The record is either the initial write
// for descriptor.RecordID or an update to it; conflict resolution and
// immutable-field validation run per Component C7.
func (d *Dwn) Write(ctx context.Context, tenantDid string, descriptor record.Descriptor, data io.Reader, auth *Authorization) (dispatch.Reply, error) {
	raw, err := json.Marshal(writeEnvelope{Descriptor: descriptor, Authorization: auth})
	if err != nil {
		return dispatch.Reply{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return d.dispatcher.Dispatch(ctx, dispatch.Request{
		TenantDid: tenantDid, Interface: "Records", Method: "Write", Raw: raw,
		Data: writeParams{descriptor: descriptor, data: data, auth: auth},
	})
}

func (d *Dwn) handleRecordsWrite(ctx context.Context, req dispatch.Request) (dispatch.Reply, error) {
	params, ok := req.Data.(writeParams)
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
		op := "update"
		if !d.recordExists(req.TenantDid, params.descriptor.RecordID) {
			op = "create"
		}
		if err := d.authz.AuthorizeWrite(authz.WriteRequest{
			TenantDid: req.TenantDid, SignerDid: signerDid,
			Protocol: params.descriptor.Protocol, ProtocolPath: params.descriptor.ProtocolPath,
			ContextID: params.descriptor.ContextID, Recipient: params.descriptor.Recipient,
			Op: op,
		}); err != nil {
			return dispatch.Reply{}, err
		}
	}

	messageCid, err := d.lifecycle.Write(ctx, req.TenantDid, record.Message{
		Author: signerDid, Descriptor: params.descriptor, Authorization: authorizationValue(params.auth),
		Raw: req.Raw, Data: params.data,
	})
	if err != nil {
		return dispatch.Reply{}, err
	}
	return dispatch.Reply{Status: dispatch.Status{Code: 202}, PaginationMessageCid: messageCid}, nil
}

type deleteParams struct {
	recordID   string
	messageCid string
	raw        []byte
	auth       *Authorization
}

// Delete submits a RecordsDelete for recordID, tombstoned under
// messageCid. raw is the delete message's own encoded bytes.
func (d *Dwn) Delete(ctx context.Context, tenantDid, recordID, messageCid string, raw []byte, auth *Authorization) (dispatch.Reply, error) {
	return d.dispatcher.Dispatch(ctx, dispatch.Request{
		TenantDid: tenantDid, Interface: "Records", Method: "Delete", Raw: raw,
		Data: deleteParams{recordID: recordID, messageCid: messageCid, raw: raw, auth: auth},
	})
}

func (d *Dwn) handleRecordsDelete(ctx context.Context, req dispatch.Request) (dispatch.Reply, error) {
	params, ok := req.Data.(deleteParams)
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
		descriptor, found := d.currentDescriptor(req.TenantDid, params.recordID)
		if !found {
			return dispatch.Reply{Status: dispatch.Status{Code: 404}}, record.ErrRecordNotFound
		}
		if err := d.authz.AuthorizeWrite(authz.WriteRequest{
			TenantDid: req.TenantDid, SignerDid: signerDid,
			Protocol: descriptor.Protocol, ProtocolPath: descriptor.ProtocolPath,
			ContextID: descriptor.ContextID, Recipient: descriptor.Recipient,
			Op: "co-delete",
		}); err != nil {
			return dispatch.Reply{}, err
		}
	}

	if err := d.lifecycle.Delete(ctx, req.TenantDid, params.recordID, params.messageCid, params.raw); err != nil {
		return dispatch.Reply{}, err
	}
	return dispatch.Reply{Status: dispatch.Status{Code: 202}, PaginationMessageCid: params.messageCid}, nil
}

type readParams struct {
	recordID string
	auth     *Authorization
}

// Read fetches recordID's current write, subject to the same
// authorization rules a RecordsQuery filtered to recordId would apply.
func (d *Dwn) Read(ctx context.Context, tenantDid, recordID string, auth *Authorization) (dispatch.Reply, error) {
	return d.dispatcher.Dispatch(ctx, dispatch.Request{
		TenantDid: tenantDid, Interface: "Records", Method: "Read",
		Data: readParams{recordID: recordID, auth: auth},
	})
}

func (d *Dwn) handleRecordsRead(ctx context.Context, req dispatch.Request) (dispatch.Reply, error) {
	params, ok := req.Data.(readParams)
	if !ok {
		return dispatch.Reply{}, ErrInvalidMessage
	}
	signerDid, err := d.authenticate(params.auth)
	if err != nil {
		return dispatch.Reply{}, err
	}

	result, err := d.authz.AuthorizeQuery(authz.QueryRequest{
		TenantDid: req.TenantDid, SignerDid: signerDid,
		Filters:   []index.Filter{{"recordId": index.EqualFilter{Value: params.recordID}, "method": index.EqualFilter{Value: "Write"}}},
		Operation: grant.Scope{Interface: "Records", Method: "Read"},
		Now:       time.Now().UTC(),
	})
	if err != nil {
		return dispatch.Reply{}, err
	}
	if result.EmptyResult {
		return dispatch.Reply{Status: dispatch.Status{Code: 404}}, record.ErrRecordNotFound
	}

	matches, _, err := d.messages.Query(req.TenantDid, result.Filters, "", false, nil, 1)
	if err != nil {
		return dispatch.Reply{}, err
	}
	if len(matches) == 0 {
		return dispatch.Reply{}, record.ErrRecordNotFound
	}
	return dispatch.Reply{
		Status:               dispatch.Status{Code: 200},
		Entries:              [][]byte{matches[0].Raw},
		PaginationMessageCid: matches[0].MessageCid,
	}, nil
}

// QueryParams describes a RecordsQuery: the filter disjunction to run,
// how to sort/paginate, and the authorization context (protocol role or
// permission grant) the caller presents.
type QueryParams struct {
	Filters      []index.Filter
	SortProperty string
	Reverse      bool
	Cursor       *index.Cursor
	Limit        int

	ProtocolRole string
	RoleScope    protocol.RoleScope
	Protocol     string
	ProtocolPath string
	ContextID    string

	PermissionGrantID string

	Auth *Authorization
}

// Query submits a RecordsQuery.
func (d *Dwn) Query(ctx context.Context, tenantDid string, q QueryParams) (dispatch.Reply, error) {
	return d.dispatcher.Dispatch(ctx, dispatch.Request{
		TenantDid: tenantDid, Interface: "Records", Method: "Query", Data: q,
	})
}

func (d *Dwn) handleRecordsQuery(ctx context.Context, req dispatch.Request) (dispatch.Reply, error) {
	params, ok := req.Data.(QueryParams)
	if !ok {
		return dispatch.Reply{}, ErrInvalidMessage
	}
	signerDid, err := d.authenticate(params.Auth)
	if err != nil {
		return dispatch.Reply{}, err
	}

	result, err := d.authz.AuthorizeQuery(authz.QueryRequest{
		TenantDid: req.TenantDid, SignerDid: signerDid, Filters: params.Filters,
		ProtocolRole: params.ProtocolRole, RoleScope: params.RoleScope,
		Protocol: params.Protocol, ProtocolPath: params.ProtocolPath, ContextID: params.ContextID,
		PermissionGrantID: params.PermissionGrantID,
		Operation:         grant.Scope{Interface: "Records", Method: "Query", Protocol: params.Protocol},
		Now:               time.Now().UTC(),
	})
	if err != nil {
		return dispatch.Reply{}, err
	}
	if result.EmptyResult {
		return dispatch.Reply{Status: dispatch.Status{Code: 200}}, nil
	}

	matches, nextCursor, err := d.messages.Query(req.TenantDid, result.Filters, params.SortProperty, params.Reverse, params.Cursor, params.Limit)
	if err != nil {
		return dispatch.Reply{}, err
	}

	entries := make([][]byte, len(matches))
	for i, m := range matches {
		entries[i] = m.Raw
	}
	reply := dispatch.Reply{Status: dispatch.Status{Code: 200}, Entries: entries}
	if nextCursor != nil {
		reply.Cursor = nextCursor.Encode()
	}
	return reply, nil
}

// recordExists reports whether recordID already has a current write,
// the distinction a non-owner's $actions rule needs between "create" and
// "update".
func (d *Dwn) recordExists(tenantDid, recordID string) bool {
	_, found := d.currentDescriptor(tenantDid, recordID)
	return found
}

// currentDescriptor loads recordID's current write and decodes its
// descriptor, so a non-owner RecordsDelete can be authorized against the
// protocol/protocolPath/recipient it actually targets.
func (d *Dwn) currentDescriptor(tenantDid, recordID string) (record.Descriptor, bool) {
	matches, _, err := d.messages.Query(tenantDid, []index.Filter{{"recordId": index.EqualFilter{Value: recordID}, "method": index.EqualFilter{Value: "Write"}}}, "", false, nil, 1)
	if err != nil || len(matches) == 0 {
		return record.Descriptor{}, false
	}
	var env writeEnvelope
	if err := json.Unmarshal(matches[0].Raw, &env); err != nil {
		return record.Descriptor{}, false
	}
	return env.Descriptor, true
}
