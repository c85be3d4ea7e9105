package record_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwn.evalgo.org/record"
)

func TestComputeCIDIsDeterministic(t *testing.T) {
	d := record.Descriptor{RecordID: "r1", DateCreated: "2026-01-01T00:00:00Z", MessageTimestamp: "2026-01-01T00:00:00Z"}

	cid1, err := record.ComputeCID(d)
	require.NoError(t, err)
	cid2, err := record.ComputeCID(d)
	require.NoError(t, err)

	assert.Equal(t, cid1, cid2)
	assert.NotEmpty(t, cid1)
}

func TestComputeCIDDiffersForDifferentInput(t *testing.T) {
	a := record.Descriptor{RecordID: "r1", DateCreated: "2026-01-01T00:00:00Z"}
	b := record.Descriptor{RecordID: "r2", DateCreated: "2026-01-01T00:00:00Z"}

	cidA, err := record.ComputeCID(a)
	require.NoError(t, err)
	cidB, err := record.ComputeCID(b)
	require.NoError(t, err)

	assert.NotEqual(t, cidA, cidB)
}

func TestComputeCIDDiffersByAuthorization(t *testing.T) {
	d := record.Descriptor{RecordID: "r1", DateCreated: "2026-01-01T00:00:00Z"}

	withoutAuth, err := record.ComputeCID(record.Envelope{Descriptor: d})
	require.NoError(t, err)
	withAuthA, err := record.ComputeCID(record.Envelope{Descriptor: d, Authorization: map[string]any{"kid": "did:example:a#key-1"}})
	require.NoError(t, err)
	withAuthB, err := record.ComputeCID(record.Envelope{Descriptor: d, Authorization: map[string]any{"kid": "did:example:b#key-1"}})
	require.NoError(t, err)

	assert.NotEqual(t, withoutAuth, withAuthA, "authorization must be part of what the message CID commits to")
	assert.NotEqual(t, withAuthA, withAuthB, "two different signers over the same descriptor must not collapse to one CID")
}
