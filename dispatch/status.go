package dispatch

import (
	"errors"

	"dwn.evalgo.org/authz"
	"dwn.evalgo.org/did"
	"dwn.evalgo.org/grant"
	"dwn.evalgo.org/index"
	"dwn.evalgo.org/kv"
	"dwn.evalgo.org/messagestore"
	"dwn.evalgo.org/record"
	"dwn.evalgo.org/verifier"
)

// statusFor maps a collaborator error to the status code spec.md §7's
// error handling table assigns its kind. Unrecognized errors map to 500,
// matching the table's "fatal I/O errors bubble" propagation policy.
func statusFor(err error) Status {
	switch {
	case errors.Is(err, record.ErrImmutablePropertyChanged):
		return Status{Code: 400, Detail: err.Error()}
	case errors.Is(err, record.ErrWriteConflict):
		return Status{Code: 409, Detail: err.Error()}
	case errors.Is(err, record.ErrRecordNotFound), errors.Is(err, messagestore.ErrMessageNotFound):
		return Status{Code: 404, Detail: err.Error()}

	case errors.Is(err, verifier.ErrSignatureInvalid):
		return Status{Code: 401, Detail: err.Error()}
	case errors.Is(err, verifier.ErrKeyNotFound):
		return Status{Code: 401, Detail: err.Error()}
	case errors.Is(err, verifier.ErrDidResolutionFailed), errors.Is(err, did.ErrResolutionFailed):
		return Status{Code: 401, Detail: err.Error()}
	case errors.Is(err, did.ErrMethodNotSupported), errors.Is(err, did.ErrInvalidDid):
		return Status{Code: 400, Detail: err.Error()}

	case errors.Is(err, authz.ErrForbidden):
		return Status{Code: 401, Detail: err.Error()}
	case errors.Is(err, authz.ErrMissingContextID):
		return Status{Code: 401, Detail: err.Error()}
	case errors.Is(err, authz.ErrMissingProtocolPath):
		return Status{Code: 400, Detail: err.Error()}
	case errors.Is(err, authz.ErrTooManySignatures):
		return Status{Code: 400, Detail: err.Error()}

	case errors.Is(err, grant.ErrGrantExpired),
		errors.Is(err, grant.ErrGrantNotYetActive),
		errors.Is(err, grant.ErrGrantRevoked),
		errors.Is(err, grant.ErrInterfaceMismatch),
		errors.Is(err, grant.ErrMethodMismatch),
		errors.Is(err, grant.ErrUnauthorizedGrant),
		errors.Is(err, grant.ErrGrantNotFound):
		return Status{Code: 401, Detail: err.Error()}

	case errors.Is(err, index.ErrInvalidSortProperty):
		return Status{Code: 500, Detail: err.Error()}
	case errors.Is(err, kv.ErrStorageUnavailable):
		return Status{Code: 500, Detail: err.Error()}

	case errors.Is(err, ErrUnknownMethod):
		return Status{Code: 400, Detail: err.Error()}

	default:
		return Status{Code: 500, Detail: err.Error()}
	}
}
