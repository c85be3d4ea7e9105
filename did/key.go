package did

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-varint"
)

// keyResolver resolves did:key DIDs entirely offline: the DID itself
// multibase/multicodec-encodes the public key, so "resolution" is pure
// decoding, never a network call.
type keyResolver struct{}

func newKeyResolver() *keyResolver { return &keyResolver{} }

func (r *keyResolver) Method() string { return "key" }

func (r *keyResolver) Resolve(didStr string) (*Document, error) {
	const prefix = "did:key:"
	if len(didStr) <= len(prefix) || didStr[:len(prefix)] != prefix {
		return nil, fmt.Errorf("%w: %s is not a did:key", ErrInvalidDid, didStr)
	}
	multibaseValue := didStr[len(prefix):]

	encoding, raw, err := multibase.Decode(multibaseValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDid, err)
	}
	if encoding != multibase.Base58BTC {
		return nil, fmt.Errorf("%w: did:key must use base58btc multibase", ErrInvalidDid)
	}

	code, n, err := varint.FromUvarint(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed multicodec prefix: %v", ErrInvalidDid, err)
	}
	keyBytes := raw[n:]

	vm, err := verificationMethodForKey(didStr, multicodec.Code(code), keyBytes)
	if err != nil {
		return nil, err
	}

	return &Document{
		ID:                 didStr,
		VerificationMethod: []VerificationMethod{*vm},
		Authentication:     []string{vm.ID},
	}, nil
}

func verificationMethodForKey(didStr string, code multicodec.Code, keyBytes []byte) (*VerificationMethod, error) {
	fragment := didStr[len("did:key:"):]
	id := didStr + "#" + fragment

	switch code {
	case multicodec.Ed25519Pub:
		if len(keyBytes) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: bad Ed25519 key length %d", ErrInvalidDid, len(keyBytes))
		}
		return &VerificationMethod{
			ID:         id,
			Type:       "JsonWebKey2020",
			Controller: didStr,
			PublicKeyJwk: map[string]any{
				"kty": "OKP",
				"crv": "Ed25519",
				"x":   base64.RawURLEncoding.EncodeToString(keyBytes),
			},
		}, nil

	case multicodec.Secp256k1Pub:
		pub, err := secp256k1.ParsePubKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: bad secp256k1 key: %v", ErrInvalidDid, err)
		}
		return &VerificationMethod{
			ID:         id,
			Type:       "JsonWebKey2020",
			Controller: didStr,
			PublicKeyJwk: map[string]any{
				"kty": "EC",
				"crv": "secp256k1",
				"x":   base64.RawURLEncoding.EncodeToString(pub.X().Bytes()),
				"y":   base64.RawURLEncoding.EncodeToString(pub.Y().Bytes()),
			},
		}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported did:key multicodec 0x%x", ErrInvalidDid, uint64(code))
	}
}
