package messagestore

import "errors"

// Sentinel errors returned by the messagestore package.
var (
	// ErrMessageNotFound is returned by Get when no message exists under
	// the given CID for the given tenant.
	ErrMessageNotFound = errors.New("messagestore: message not found")
)
