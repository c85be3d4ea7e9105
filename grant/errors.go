package grant

import "errors"

// Sentinel errors returned by the grant package, one per failure kind
// spec.md §4.8/§7 names for permission-grant evaluation.
var (
	ErrGrantNotFound     = errors.New("grant: not found")
	ErrGrantExpired      = errors.New("grant: expired")
	ErrGrantNotYetActive = errors.New("grant: not yet active")
	ErrGrantRevoked      = errors.New("grant: revoked")
	ErrInterfaceMismatch = errors.New("grant: interface mismatch")
	ErrMethodMismatch    = errors.New("grant: method mismatch")
	ErrUnauthorizedGrant = errors.New("grant: unauthorized grant")
)
