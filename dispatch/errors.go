package dispatch

import "errors"

// ErrUnknownMethod is returned when no handler is registered for a
// message's interface+method pair.
var ErrUnknownMethod = errors.New("dispatch: unknown interface/method")
