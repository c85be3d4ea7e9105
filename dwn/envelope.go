package dwn

import "dwn.evalgo.org/verifier"

// Authorization is the signature envelope a RecordsWrite/Delete message
// carries to prove who is making the request, per spec.md §6's message
// envelope shape.
type Authorization struct {
	Signature verifier.JWS `json:"signature"`
}

// authenticate runs Component C6 against auth and returns the signer DID
// the outermost (first) signature resolves to, or "" if auth is nil
// (anonymous). spec.md §4.8 derives signer identity from the outermost
// JWS signature.
func (d *Dwn) authenticate(auth *Authorization) (string, error) {
	if auth == nil {
		return "", nil
	}
	signers, err := d.verifier.Verify(auth.Signature)
	if err != nil {
		return "", err
	}
	if len(signers) == 0 {
		return "", ErrInvalidMessage
	}
	return signers[0], nil
}

// authorizationValue unwraps auth to the value record.ComputeCID should
// hash, so a nil *Authorization contributes a true nil rather than a
// typed-nil pointer boxed in an interface.
func authorizationValue(auth *Authorization) any {
	if auth == nil {
		return nil
	}
	return *auth
}
