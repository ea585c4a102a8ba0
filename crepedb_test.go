package crepedb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiannian/crepedb"
	"github.com/tiannian/crepedb/storage/memkv"
)

func newDB(t *testing.T) *crepedb.DB {
	t.Helper()
	return crepedb.Open(memkv.New())
}

func commitRoot(t *testing.T, db *crepedb.DB, setup func(w *crepedb.WriteTxn) error) crepedb.SnapshotId {
	t.Helper()
	w, err := db.Write(context.Background(), nil)
	require.NoError(t, err)
	if setup != nil {
		require.NoError(t, setup(w))
	}
	id, err := w.Commit()
	require.NoError(t, err)
	return id
}

func commitChild(t *testing.T, db *crepedb.DB, parent crepedb.SnapshotId, mutate func(w *crepedb.WriteTxn) error) crepedb.SnapshotId {
	t.Helper()
	w, err := db.Write(context.Background(), &parent)
	require.NoError(t, err)
	if mutate != nil {
		require.NoError(t, mutate(w))
	}
	id, err := w.Commit()
	require.NoError(t, err)
	return id
}

func TestRootCreationIsExclusive(t *testing.T) {
	db := newDB(t)
	commitRoot(t, db, func(w *crepedb.WriteTxn) error {
		return w.CreateBasicTable("kv")
	})

	_, err := db.Write(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, crepedb.IsCode(err, crepedb.ErrOnlySupportOneRoot))
}

func TestMissingSnapshotError(t *testing.T) {
	db := newDB(t)
	_, _, err := db.SnapshotInfo(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, crepedb.IsCode(err, crepedb.ErrMissingSnapshot))
}

func TestBasicTableReadWrite(t *testing.T) {
	db := newDB(t)
	root := commitRoot(t, db, func(w *crepedb.WriteTxn) error {
		return w.CreateBasicTable("kv")
	})

	child := commitChild(t, db, root, func(w *crepedb.WriteTxn) error {
		tbl, err := w.OpenTable("kv")
		if err != nil {
			return err
		}
		return tbl.Set([]byte("a"), []byte("1"))
	})

	rtxn, err := db.Read(context.Background(), &child)
	require.NoError(t, err)
	defer rtxn.Discard()
	tbl, err := rtxn.OpenTable("kv")
	require.NoError(t, err)
	v, ok, err := tbl.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	// Basic tables are not forked: a sibling still sees the same write,
	// since basic storage has no version tagging at all.
	sibling := commitChild(t, db, root, nil)
	rtxn2, err := db.Read(context.Background(), &sibling)
	require.NoError(t, err)
	defer rtxn2.Discard()
	tbl2, err := rtxn2.OpenTable("kv")
	require.NoError(t, err)
	_, ok, err = tbl2.Get([]byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVersionedTableForkIsolation(t *testing.T) {
	db := newDB(t)
	root := commitRoot(t, db, func(w *crepedb.WriteTxn) error {
		if err := w.CreateVersionedTable("kv"); err != nil {
			return err
		}
		tbl, err := w.OpenTable("kv")
		if err != nil {
			return err
		}
		return tbl.Set([]byte("a"), []byte("root-value"))
	})

	left := commitChild(t, db, root, func(w *crepedb.WriteTxn) error {
		tbl, err := w.OpenTable("kv")
		if err != nil {
			return err
		}
		return tbl.Set([]byte("a"), []byte("left-value"))
	})

	right := commitChild(t, db, root, nil)

	// left sees its own overwrite.
	readAt(t, db, left, "kv", "a", "left-value", true)
	// right, a sibling that never touched the key, still sees the root's value.
	readAt(t, db, right, "kv", "a", "root-value", true)
	// root itself is unaffected by either child.
	readAt(t, db, root, "kv", "a", "root-value", true)
}

func TestVersionedTableTombstone(t *testing.T) {
	db := newDB(t)
	root := commitRoot(t, db, func(w *crepedb.WriteTxn) error {
		if err := w.CreateVersionedTable("kv"); err != nil {
			return err
		}
		tbl, err := w.OpenTable("kv")
		if err != nil {
			return err
		}
		return tbl.Set([]byte("a"), []byte("v1"))
	})

	deleted := commitChild(t, db, root, func(w *crepedb.WriteTxn) error {
		tbl, err := w.OpenTable("kv")
		if err != nil {
			return err
		}
		return tbl.Del([]byte("a"))
	})

	readAt(t, db, deleted, "kv", "a", "", false)
	readAt(t, db, root, "kv", "a", "v1", true)
}

func TestVersionedReadYourOwnWrites(t *testing.T) {
	db := newDB(t)
	root := commitRoot(t, db, func(w *crepedb.WriteTxn) error {
		return w.CreateVersionedTable("kv")
	})

	w, err := db.Write(context.Background(), &root)
	require.NoError(t, err)
	tbl, err := w.OpenTable("kv")
	require.NoError(t, err)
	require.NoError(t, tbl.Set([]byte("a"), []byte("staged")))

	v, ok, err := tbl.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("staged"), v)

	_, err = w.Commit()
	require.NoError(t, err)
}

func TestOpenUnregisteredTableFails(t *testing.T) {
	db := newDB(t)
	root := commitRoot(t, db, nil)
	rtxn, err := db.Read(context.Background(), &root)
	require.NoError(t, err)
	defer rtxn.Discard()
	_, err = rtxn.OpenTable("nope")
	require.Error(t, err)
	assert.True(t, crepedb.IsCode(err, crepedb.ErrMissingTable))
}

func TestAncestorsAndIsAncestor(t *testing.T) {
	db := newDB(t)
	root := commitRoot(t, db, nil)
	mid := commitChild(t, db, root, nil)
	tip := commitChild(t, db, mid, nil)
	other := commitChild(t, db, root, nil)

	chain, err := db.Ancestors(context.Background(), tip)
	require.NoError(t, err)
	assert.Equal(t, []crepedb.SnapshotId{tip, mid, root}, chain)

	ok, err := db.IsAncestor(context.Background(), root, tip)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.IsAncestor(context.Background(), other, tip)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.IsAncestor(context.Background(), tip, root)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListTables(t *testing.T) {
	db := newDB(t)
	commitRoot(t, db, func(w *crepedb.WriteTxn) error {
		if err := w.CreateBasicTable("basic-one"); err != nil {
			return err
		}
		return w.CreateVersionedTable("versioned-one")
	})

	names, kinds, err := db.ListTables(context.Background())
	require.NoError(t, err)
	got := make(map[string]crepedb.TableKind, len(names))
	for i, n := range names {
		got[n] = kinds[i]
	}
	assert.Equal(t, crepedb.Basic, got["basic-one"])
	assert.Equal(t, crepedb.Versioned, got["versioned-one"])
}

// TestSkipIndexLinearChain reproduces the skip-index values for a linear
// chain of twelve snapshots (0 through 11), matching the calibration fixture
// in the original implementation's index-check test.
func TestSkipIndexLinearChain(t *testing.T) {
	db := newDB(t)
	ids := make([]crepedb.SnapshotId, 0, 12)
	root := commitRoot(t, db, nil)
	ids = append(ids, root)
	for i := 1; i < 12; i++ {
		next := commitChild(t, db, ids[i-1], nil)
		ids = append(ids, next)
	}

	cases := []struct {
		snapshot int
		level    uint32
		ancestor int
	}{
		{11, 1, 9},
		{11, 2, 7},
		{11, 3, 3},
		{8, 1, 6},
		{8, 2, 4},
		{8, 3, 0},
		{4, 1, 2},
		{4, 2, 0},
		{2, 1, 0},
		{3, 1, 1},
	}
	for _, c := range cases {
		entries, err := db.DumpSkipIndex(context.Background(), ids[c.snapshot])
		require.NoError(t, err)
		found := false
		for _, e := range entries {
			if e.Level == c.level {
				found = true
				assert.Equal(t, ids[c.ancestor], e.Ancestor,
					"snapshot %d level %d", c.snapshot, c.level)
			}
		}
		assert.True(t, found, "snapshot %d level %d missing", c.snapshot, c.level)
	}

	// Snapshot 1 sits at version 1: bitLength64(1) - 1 == 0 levels.
	entries, err := db.DumpSkipIndex(context.Background(), ids[1])
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Snapshot 3 has no level-2 entry (bitLength64(3) - 1 == 1 level).
	entries, err = db.DumpSkipIndex(context.Background(), ids[3])
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, uint32(2), e.Level)
	}
}

// TestVersionedReadAcrossLongChainUsesSkipJumps builds a 20-commit linear
// chain where every snapshot overwrites the same versioned key, then reads
// the key at the tip for a value set at the root. The tip is 19 versions
// above the root, so verifyAncestry cannot settle the read with a single
// diff==1 parent hop: it jumps skip-index levels 4 and 1 before the final
// parent hop.
func TestVersionedReadAcrossLongChainUsesSkipJumps(t *testing.T) {
	db := newDB(t)
	root := commitRoot(t, db, func(w *crepedb.WriteTxn) error {
		if err := w.CreateVersionedTable("kv"); err != nil {
			return err
		}
		tbl, err := w.OpenTable("kv")
		if err != nil {
			return err
		}
		return tbl.Set([]byte("a"), []byte("root-value"))
	})

	ids := make([]crepedb.SnapshotId, 0, 20)
	ids = append(ids, root)
	for i := 1; i < 20; i++ {
		parent := ids[i-1]
		next := commitChild(t, db, parent, nil)
		ids = append(ids, next)
	}

	readAt(t, db, ids[19], "kv", "a", "root-value", true)

	// A later overwrite partway up the chain must still shadow the root's
	// value for every descendant from that point on.
	overwritten := commitChild(t, db, ids[9], func(w *crepedb.WriteTxn) error {
		tbl, err := w.OpenTable("kv")
		if err != nil {
			return err
		}
		return tbl.Set([]byte("a"), []byte("mid-value"))
	})
	tail := overwritten
	for i := 0; i < 9; i++ {
		tail = commitChild(t, db, tail, nil)
	}
	readAt(t, db, tail, "kv", "a", "mid-value", true)
	readAt(t, db, ids[9], "kv", "a", "root-value", true)
}

func readAt(t *testing.T, db *crepedb.DB, snap crepedb.SnapshotId, table, key, want string, wantOK bool) {
	t.Helper()
	rtxn, err := db.Read(context.Background(), &snap)
	require.NoError(t, err)
	defer rtxn.Discard()
	tbl, err := rtxn.OpenTable(table)
	require.NoError(t, err)
	v, ok, err := tbl.Get([]byte(key))
	require.NoError(t, err)
	require.Equal(t, wantOK, ok)
	if wantOK {
		assert.Equal(t, want, string(v))
	}
}
