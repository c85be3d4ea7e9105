package record_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwn.evalgo.org/record"
)

func TestFileDataStorePutGetRoundTrip(t *testing.T) {
	store, err := record.NewFileDataStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "cid1", strings.NewReader("payload")))

	r, err := store.Get(ctx, "cid1")
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestFileDataStoreGetMissingFails(t *testing.T) {
	store, err := record.NewFileDataStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, record.ErrDataNotFound)
}

func TestFileDataStoreHasAndDelete(t *testing.T) {
	store, err := record.NewFileDataStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	has, err := store.Has(ctx, "cid1")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.Put(ctx, "cid1", strings.NewReader("x")))
	has, err = store.Has(ctx, "cid1")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, store.Delete(ctx, "cid1"))
	has, err = store.Has(ctx, "cid1")
	require.NoError(t, err)
	assert.False(t, has)
}
