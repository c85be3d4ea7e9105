package dwn

import "errors"

// ErrInvalidMessage is returned when a message's raw bytes don't decode
// into the envelope shape a handler expects.
var ErrInvalidMessage = errors.New("dwn: invalid message")

// ErrUnauthenticatedWrite is returned when a write-class message carries
// no authorization at all; unlike reads, no write interface/method
// accepts an anonymous caller.
var ErrUnauthenticatedWrite = errors.New("dwn: write requires authorization")
