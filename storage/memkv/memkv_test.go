package memkv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiannian/crepedb/backend/backendtest"
	"github.com/tiannian/crepedb/storage/memkv"
)

func TestMemkvConformance(t *testing.T) {
	backendtest.Run(t, memkv.New())
}

func TestMemkvReadTxnIsolatedFromLaterWrites(t *testing.T) {
	b := memkv.New()
	ctx := context.Background()
	wtxn, err := b.WriteTxn(ctx)
	require.NoError(t, err)
	tbl, err := wtxn.WriteTable("t")
	require.NoError(t, err)
	require.NoError(t, tbl.Set([]byte("a"), []byte("1")))
	require.NoError(t, wtxn.Commit())

	rtxn, err := b.ReadTxn(ctx)
	require.NoError(t, err)
	defer rtxn.Discard()

	// A write committed after this read transaction began must not be visible
	// to it: ReadTxn clones the table set at open time.
	wtxn2, err := b.WriteTxn(ctx)
	require.NoError(t, err)
	tbl2, err := wtxn2.WriteTable("t")
	require.NoError(t, err)
	require.NoError(t, tbl2.Set([]byte("b"), []byte("2")))
	require.NoError(t, wtxn2.Commit())

	rt, err := rtxn.Table("t")
	require.NoError(t, err)
	_, ok, err := rt.Get([]byte("b"))
	require.NoError(t, err)
	assert.False(t, ok, "expected b to be invisible to the earlier read transaction")
}
