package verifier

import "errors"

// Sentinel errors returned by the verifier package.
var (
	// ErrSignatureInvalid is returned when a JWS fails cryptographic
	// verification against the signer's resolved key.
	ErrSignatureInvalid = errors.New("verifier: signature invalid")

	// ErrKeyNotFound is returned when the JWS references a verification
	// method (kid) absent from the signer's DID Document.
	ErrKeyNotFound = errors.New("verifier: verification method not found")

	// ErrDidResolutionFailed is returned when the signer's DID could not
	// be resolved at all.
	ErrDidResolutionFailed = errors.New("verifier: did resolution failed")

	// ErrUnsupportedKeyType is returned for a publicKeyJwk this verifier
	// does not know how to turn into a jwk.Key.
	ErrUnsupportedKeyType = errors.New("verifier: unsupported key type")
)
