// Package backendtest is a conformance suite any backend.Backend
// implementation can run against itself: it exercises the contract's
// point lookups, ranges, and read/write isolation without depending on
// any particular storage engine.
package backendtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiannian/crepedb/backend"
)

// Run exercises b against the backend.Backend contract. Call it from each
// adapter's own _test.go file with a freshly constructed backend.
func Run(t *testing.T, b backend.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		rtxn, err := b.ReadTxn(ctx)
		require.NoError(t, err)
		defer rtxn.Discard()
		tbl, err := rtxn.Table("t1")
		require.NoError(t, err)
		_, ok, err := tbl.Get([]byte("missing"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set then get", func(t *testing.T) {
		wtxn, err := b.WriteTxn(ctx)
		require.NoError(t, err)
		tbl, err := wtxn.WriteTable("t1")
		require.NoError(t, err)
		require.NoError(t, tbl.Set([]byte("a"), []byte("1")))
		require.NoError(t, wtxn.Commit())

		rtxn, err := b.ReadTxn(ctx)
		require.NoError(t, err)
		defer rtxn.Discard()
		rt, err := rtxn.Table("t1")
		require.NoError(t, err)
		v, ok, err := rt.Get([]byte("a"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("1"), v)
	})

	t.Run("delete removes the key", func(t *testing.T) {
		wtxn, err := b.WriteTxn(ctx)
		require.NoError(t, err)
		tbl, err := wtxn.WriteTable("t2")
		require.NoError(t, err)
		require.NoError(t, tbl.Set([]byte("a"), []byte("1")))
		require.NoError(t, tbl.Delete([]byte("a")))
		require.NoError(t, wtxn.Commit())

		rtxn, err := b.ReadTxn(ctx)
		require.NoError(t, err)
		defer rtxn.Discard()
		rt, err := rtxn.Table("t2")
		require.NoError(t, err)
		_, ok, err := rt.Get([]byte("a"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("range scans ascending within bounds", func(t *testing.T) {
		wtxn, err := b.WriteTxn(ctx)
		require.NoError(t, err)
		tbl, err := wtxn.WriteTable("t3")
		require.NoError(t, err)
		for _, k := range []string{"a", "b", "c", "d"} {
			require.NoError(t, tbl.Set([]byte(k), []byte(k+k)))
		}
		require.NoError(t, wtxn.Commit())

		rtxn, err := b.ReadTxn(ctx)
		require.NoError(t, err)
		defer rtxn.Discard()
		rt, err := rtxn.Table("t3")
		require.NoError(t, err)
		rng, err := rt.Range([]byte("b"), []byte("d"))
		require.NoError(t, err)
		defer rng.Close()

		var got []string
		for rng.Next() {
			got = append(got, string(rng.Key()))
		}
		require.NoError(t, rng.Err())
		assert.Equal(t, []string{"b", "c"}, got)
	})

	t.Run("discarded write does not commit", func(t *testing.T) {
		wtxn, err := b.WriteTxn(ctx)
		require.NoError(t, err)
		tbl, err := wtxn.WriteTable("t4")
		require.NoError(t, err)
		require.NoError(t, tbl.Set([]byte("a"), []byte("1")))
		wtxn.Discard()

		rtxn, err := b.ReadTxn(ctx)
		require.NoError(t, err)
		defer rtxn.Discard()
		rt, err := rtxn.Table("t4")
		require.NoError(t, err)
		_, ok, err := rt.Get([]byte("a"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("tables are independently namespaced", func(t *testing.T) {
		wtxn, err := b.WriteTxn(ctx)
		require.NoError(t, err)
		t5, err := wtxn.WriteTable("t5")
		require.NoError(t, err)
		t6, err := wtxn.WriteTable("t6")
		require.NoError(t, err)
		require.NoError(t, t5.Set([]byte("k"), []byte("from-t5")))
		require.NoError(t, t6.Set([]byte("k"), []byte("from-t6")))
		require.NoError(t, wtxn.Commit())

		rtxn, err := b.ReadTxn(ctx)
		require.NoError(t, err)
		defer rtxn.Discard()
		rt5, err := rtxn.Table("t5")
		require.NoError(t, err)
		rt6, err := rtxn.Table("t6")
		require.NoError(t, err)
		v5, _, err := rt5.Get([]byte("k"))
		require.NoError(t, err)
		v6, _, err := rt6.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("from-t5"), v5)
		assert.Equal(t, []byte("from-t6"), v6)
	})
}
