package authz

import "errors"

// Sentinel errors returned by the authz package (Component C8's
// evaluation-order enforcement, as distinct from grant.go's grant-
// specific failure kinds).
var (
	// ErrForbidden is returned when an anonymous caller's filter
	// requires published:false (AuthorizationForbidden, 401).
	ErrForbidden = errors.New("authz: forbidden")

	// ErrMissingContextID is returned when a $contextRole invocation
	// omits contextId (ProtocolAuthorizationMissingContextId, 401).
	ErrMissingContextID = errors.New("authz: protocol role requires contextId")

	// ErrMissingProtocolPath is returned when a protocol-scoped query
	// omits protocolPath (RecordsQueryFilterMissingRequiredProperties, 400).
	ErrMissingProtocolPath = errors.New("authz: protocol-scoped query requires protocolPath")

	// ErrTooManySignatures is returned when a message requiring at most
	// one signature (e.g. ProtocolsConfigure) carries more than one.
	ErrTooManySignatures = errors.New("authz: expected no more than 1 signature")
)
