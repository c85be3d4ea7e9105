package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwn.evalgo.org/dispatch"
	"dwn.evalgo.org/record"
)

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	d := dispatch.NewDispatcher(nil)
	d.Register("Records", "Write", dispatch.HandlerFunc(func(_ context.Context, req dispatch.Request) (dispatch.Reply, error) {
		return dispatch.Reply{Status: dispatch.Status{Code: 202}, PaginationMessageCid: "cid1"}, nil
	}))

	reply, err := d.Dispatch(context.Background(), dispatch.Request{Interface: "Records", Method: "Write"})
	require.NoError(t, err)
	assert.Equal(t, 202, reply.Status.Code)
	assert.Equal(t, "cid1", reply.PaginationMessageCid)
}

func TestDispatchUnknownMethodIs400(t *testing.T) {
	d := dispatch.NewDispatcher(nil)
	reply, err := d.Dispatch(context.Background(), dispatch.Request{Interface: "Records", Method: "Nonsense"})
	require.ErrorIs(t, err, dispatch.ErrUnknownMethod)
	assert.Equal(t, 400, reply.Status.Code)
}

func TestDispatchMapsHandlerErrorToStatus(t *testing.T) {
	d := dispatch.NewDispatcher(nil)
	d.Register("Records", "Write", dispatch.HandlerFunc(func(_ context.Context, req dispatch.Request) (dispatch.Reply, error) {
		return dispatch.Reply{}, record.ErrWriteConflict
	}))

	reply, err := d.Dispatch(context.Background(), dispatch.Request{Interface: "Records", Method: "Write"})
	require.ErrorIs(t, err, record.ErrWriteConflict)
	assert.Equal(t, 409, reply.Status.Code)
}

func TestDispatchDefaultsToOkStatusWhenHandlerOmitsIt(t *testing.T) {
	d := dispatch.NewDispatcher(nil)
	d.Register("Records", "Query", dispatch.HandlerFunc(func(_ context.Context, req dispatch.Request) (dispatch.Reply, error) {
		return dispatch.Reply{Entries: [][]byte{[]byte("one")}}, nil
	}))

	reply, err := d.Dispatch(context.Background(), dispatch.Request{Interface: "Records", Method: "Query"})
	require.NoError(t, err)
	assert.Equal(t, 200, reply.Status.Code)
}
