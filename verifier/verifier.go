// Package verifier implements Component C6, signature verification: it
// checks a message's JWS against the public key of the DID that claims to
// have signed it, resolving that key through Component C5 (did.Resolver).
package verifier

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"

	"dwn.evalgo.org/did"
)

// Signature is one entry of a JWS General Serialization "signatures"
// array: a base64url protected header and a base64url signature value,
// sharing the enclosing JWS's detached payload.
type Signature struct {
	Protected string `json:"protected"`
	Signature string `json:"signature"`
}

// JWS is a detached-payload JWS in General Serialization, the shape DWN
// authorization and attestation fields use: Payload is the base64url
// encoding of the descriptor CID (or whatever the caller is authorizing),
// and Signatures holds one entry per signer.
type JWS struct {
	Payload    string      `json:"payload"`
	Signatures []Signature `json:"signatures"`
}

// Verifier checks JWS signatures against keys resolved via a did.Resolver,
// caching the (payload, signature) pair so re-verifying an already-checked
// message (e.g. on a retried write) doesn't repeat the resolve+crypto work.
type Verifier struct {
	resolver *did.Resolver
	cache    *lru.Cache[string, string]
}

// NewVerifier builds a Verifier over resolver, with an LRU cache sized
// cacheSize for verified (payload, signature) -> signer DID results.
func NewVerifier(resolver *did.Resolver, cacheSize int) (*Verifier, error) {
	if cacheSize <= 0 {
		cacheSize = 10_000
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("verifier: building cache: %w", err)
	}
	return &Verifier{resolver: resolver, cache: cache}, nil
}

// Verify checks every signature entry in j against its claimed signer's
// resolved key and returns the set of signer DIDs whose signature checked
// out. A single invalid signature fails the whole call: DWN messages treat
// a multi-signature JWS as requiring every listed signer to be valid.
func (v *Verifier) Verify(j JWS) ([]string, error) {
	signers := make([]string, 0, len(j.Signatures))
	for _, sig := range j.Signatures {
		signerDid, err := v.verifyOne(j.Payload, sig)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signerDid)
	}
	return signers, nil
}

func (v *Verifier) verifyOne(payload string, sig Signature) (string, error) {
	cacheKey := payload + "." + sig.Protected + "." + sig.Signature
	if cached, ok := v.cache.Get(cacheKey); ok {
		return cached, nil
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(sig.Protected)
	if err != nil {
		return "", fmt.Errorf("%w: malformed protected header: %v", ErrSignatureInvalid, err)
	}
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return "", fmt.Errorf("%w: malformed protected header: %v", ErrSignatureInvalid, err)
	}
	if header.Kid == "" {
		return "", fmt.Errorf("%w: protected header missing kid", ErrSignatureInvalid)
	}

	signerDid := signerDidFromKid(header.Kid)
	result := v.resolver.Resolve(signerDid)
	if result.Document == nil {
		return "", fmt.Errorf("%w: %s", ErrDidResolutionFailed, signerDid)
	}

	// A kid with no #fragment names the signer DID only; per spec.md
	// §4.6, fall back to the document's sole ES256K/EdDSA verification
	// method instead of trying (and failing) an exact-id match.
	vmID := header.Kid
	if !strings.Contains(header.Kid, "#") {
		vmID = ""
	}
	vm, ok := result.Document.FindVerificationMethod(vmID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, header.Kid)
	}

	key, alg, err := keyAndAlgFromVerificationMethod(vm, header.Alg)
	if err != nil {
		return "", err
	}

	compact := sig.Protected + "." + payload + "." + sig.Signature
	if _, err := jws.Verify([]byte(compact), jws.WithKey(alg, key)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	v.cache.Add(cacheKey, signerDid)
	return signerDid, nil
}

// signerDidFromKid strips the verification-method fragment off a kid to
// recover the DID to resolve (e.g. "did:key:z6Mk...#z6Mk..." -> the DID).
func signerDidFromKid(kid string) string {
	if idx := strings.IndexByte(kid, '#'); idx >= 0 {
		return kid[:idx]
	}
	return kid
}

func keyAndAlgFromVerificationMethod(vm *did.VerificationMethod, headerAlg string) (jwk.Key, jwa.SignatureAlgorithm, error) {
	if vm.PublicKeyJwk == nil {
		return nil, "", fmt.Errorf("%w: verification method has no publicKeyJwk", ErrUnsupportedKeyType)
	}
	raw, err := json.Marshal(vm.PublicKeyJwk)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedKeyType, err)
	}
	key, err := jwk.ParseKey(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedKeyType, err)
	}

	crv, _ := vm.PublicKeyJwk["crv"].(string)
	switch {
	case headerAlg == "EdDSA" || crv == "Ed25519":
		return key, jwa.EdDSA, nil
	case headerAlg == "ES256K" || crv == "secp256k1":
		return key, jwa.ES256K, nil
	default:
		return nil, "", fmt.Errorf("%w: cannot map alg=%s crv=%s to a signature algorithm", ErrUnsupportedKeyType, headerAlg, crv)
	}
}
