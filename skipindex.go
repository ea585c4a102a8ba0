package crepedb

import "github.com/tiannian/crepedb/backend"

// skipIndexTableName is the reserved table: (snapshot_id, level) -> ancestor.
// Level ℓ (ℓ >= 1) points to the ancestor 2^ℓ steps above the snapshot; the
// 1-step ancestor is never stored here since the snapshot table's parent
// column already encodes it.
const skipIndexTableName = "__crepe_snapshot_index"

type skipIndexReader struct {
	table backend.Table
}

func openSkipIndexReader(txn backend.ReadTxn) (*skipIndexReader, error) {
	t, err := txn.Table(skipIndexTableName)
	if err != nil {
		return nil, errBackend(err)
	}
	return &skipIndexReader{table: t}, nil
}

// read returns the level-ℓ ancestor of snapshot, or ok==false if none was
// ever written (either because the chain is too short, or because level
// exceeds what was built for this snapshot).
func (s *skipIndexReader) read(snapshot SnapshotId, level uint32) (SnapshotId, bool, error) {
	v, ok, err := s.table.Get(skipIndexKey(snapshot, level))
	if err != nil {
		return 0, false, errBackend(err)
	}
	if !ok {
		return 0, false, nil
	}
	id, err := decodeSnapshotId(v)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

type skipIndexWriter struct {
	skipIndexReader
	writeTable backend.WriteTable
}

func openSkipIndexWriter(txn backend.WriteTxn) (*skipIndexWriter, error) {
	t, err := txn.WriteTable(skipIndexTableName)
	if err != nil {
		return nil, errBackend(err)
	}
	return &skipIndexWriter{skipIndexReader: skipIndexReader{table: t}, writeTable: t}, nil
}

func (s *skipIndexWriter) writeEntry(snapshot SnapshotId, level uint32, ancestor SnapshotId) error {
	if err := s.writeTable.Set(skipIndexKey(snapshot, level), encodeSnapshotId(ancestor)); err != nil {
		return errBackend(err)
	}
	return nil
}

// build populates the skip-index rows for a freshly committed snapshot.
//
// snapshot is the new id being committed at version; grandparent is the
// 2-step ancestor (the branching snapshot's own parent) — the
// seed for level 1, since level 0 (the 1-step ancestor) is carried by the
// snapshot table's parent column instead. Levels double from there:
// level ℓ = the level-(ℓ-1) ancestor of the level-(ℓ-1) ancestor.
//
// levels attempted run from 1 to bitLength64(version)-1; this matches the
// reference fixture for a 12-snapshot linear chain (snapshot at version v
// gets exactly bitLength64(v)-1 levels, the last one absent whenever its
// would-be source ancestor doesn't exist that far back).
func (s *skipIndexWriter) build(snapshot SnapshotId, grandparent SnapshotId, version Version) error {
	levels := bitLength64(uint64(version))
	if levels <= 1 {
		return nil
	}
	for level := uint32(1); level < levels; level++ {
		if level == 1 {
			if err := s.writeEntry(snapshot, 1, grandparent); err != nil {
				return err
			}
			continue
		}
		prior, ok, err := s.read(snapshot, level-1)
		if err != nil {
			return err
		}
		if !ok {
			return errFatalMissingInnerIndex(snapshot, level-1)
		}
		next, ok, err := s.read(prior, level-1)
		if err != nil {
			return err
		}
		if !ok {
			// prior's own chain doesn't reach this far yet; stop, matching
			// the reference implementation's silent early exit.
			return nil
		}
		if err := s.writeEntry(snapshot, level, next); err != nil {
			return err
		}
	}
	return nil
}
