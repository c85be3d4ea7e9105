package did_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwn.evalgo.org/config"
	"dwn.evalgo.org/did"
)

func encodeDidKey(t *testing.T, code uint64, pub []byte) string {
	t.Helper()
	prefixed := append(varint.ToUvarint(code), pub...)
	mb, err := multibase.Encode(multibase.Base58BTC, prefixed)
	require.NoError(t, err)
	return "did:key:" + mb
}

func TestResolveDidKeyEd25519(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	didStr := encodeDidKey(t, 0xed, pub)

	resolver := did.NewResolver(config.DefaultOptions())
	result := resolver.Resolve(didStr)

	require.NotNil(t, result.Document)
	assert.Equal(t, didStr, result.Document.ID)
	require.Len(t, result.Document.VerificationMethod, 1)
	assert.Equal(t, "JsonWebKey2020", result.Document.VerificationMethod[0].Type)
	assert.Equal(t, "OKP", result.Document.VerificationMethod[0].PublicKeyJwk["kty"])
}

func TestResolveDidKeyIsCached(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	didStr := encodeDidKey(t, 0xed, pub)

	resolver := did.NewResolver(config.DefaultOptions())
	first := resolver.Resolve(didStr)
	second := resolver.Resolve(didStr)

	assert.Same(t, first.Document, second.Document)
}

func TestResolveInvalidDid(t *testing.T) {
	resolver := did.NewResolver(config.DefaultOptions())
	result := resolver.Resolve("not-a-did")

	assert.Nil(t, result.Document)
	assert.Equal(t, "invalidDid", result.Metadata.Error)
}

func TestResolveUnsupportedMethod(t *testing.T) {
	opts := config.DefaultOptions()
	opts.DidResolvers = []config.DidResolverConfig{{Method: "key"}}
	resolver := did.NewResolver(opts)

	result := resolver.Resolve("did:web:example.com")
	assert.Nil(t, result.Document)
	assert.Equal(t, "methodNotSupported", result.Metadata.Error)
}

func TestResolveDidKeyWrongMultibase(t *testing.T) {
	resolver := did.NewResolver(config.DefaultOptions())
	result := resolver.Resolve("did:key:mSomethingNotBase58btc")
	assert.Nil(t, result.Document)
	assert.Equal(t, "invalidDid", result.Metadata.Error)
}
