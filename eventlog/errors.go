package eventlog

import "errors"

// ErrEventNotFound is returned by DeleteByCid when no event carries the
// given message CID for the tenant.
var ErrEventNotFound = errors.New("eventlog: event not found")
