package record

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// cborEncMode produces canonical (deterministic map ordering) CBOR, so two
// equal descriptors always hash to the same CID regardless of field
// insertion order upstream.
var cborEncMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("record: building canonical CBOR encoder: %v", err))
	}
	return mode
}()

// Envelope is what a message's CID is actually computed over: the
// descriptor plus the signed authorization that accompanied it, per
// spec.md §3/§4.7's "message CID includes the full message bytes
// (descriptor + authorization)". Hashing the descriptor alone would let
// two messages that differ only in signer or signature collapse onto the
// same CID, which also serves as the wins() tiebreak comparator.
type Envelope struct {
	Descriptor    Descriptor `cbor:"descriptor"`
	Authorization any        `cbor:"authorization,omitempty"`
}

// ComputeCID CBOR-encodes v canonically, SHA-256-hashes the result, and
// wraps it as a CIDv1 with the dag-cbor codec, rendered base32 lowercase —
// the scheme spec.md §4.7/§6 specifies for full message CIDs. Callers
// computing a message's CID should pass an Envelope, not a bare
// Descriptor.
func ComputeCID(v any) (string, error) {
	encoded, err := cborEncMode.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("record: cbor-encoding: %w", err)
	}

	sum := sha256.Sum256(encoded)
	mh, err := multihash.Encode(sum[:], multihash.SHA2_256)
	if err != nil {
		return "", fmt.Errorf("record: multihash-encoding: %w", err)
	}

	id := cid.NewCidV1(cid.DagCBOR, mh)
	return id.String(), nil
}
