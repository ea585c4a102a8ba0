package crepedb

import "context"

// Ancestors walks from snapshot back to the root using the direct parent
// pointer (not the skip index — this is a debugging/inspection helper, not
// a hot path) and returns the chain including snapshot itself, root last.
func (d *DB) Ancestors(ctx context.Context, snapshot SnapshotId) ([]SnapshotId, error) {
	txn, err := d.backend.ReadTxn(ctx)
	if err != nil {
		return nil, errBackend(err)
	}
	defer txn.Discard()

	snapshots, err := openSnapshotReader(txn)
	if err != nil {
		return nil, err
	}

	chain := []SnapshotId{snapshot}
	cur := snapshot
	for {
		_, parent, err := snapshots.read(cur)
		if err != nil {
			return nil, err
		}
		if parent == Preroot {
			break
		}
		chain = append(chain, parent)
		cur = parent
	}
	return chain, nil
}

// IsAncestor reports whether candidate lies on of's ancestor chain, using
// the same skip-index jump primitive as the versioned read algorithm.
func (d *DB) IsAncestor(ctx context.Context, candidate, of SnapshotId) (bool, error) {
	txn, err := d.backend.ReadTxn(ctx)
	if err != nil {
		return false, errBackend(err)
	}
	defer txn.Discard()

	snapshots, err := openSnapshotReader(txn)
	if err != nil {
		return false, err
	}
	skip, err := openSkipIndexReader(txn)
	if err != nil {
		return false, err
	}
	ofVersion, _, err := snapshots.read(of)
	if err != nil {
		return false, err
	}
	candidateVersion, _, err := snapshots.read(candidate)
	if err != nil {
		return false, err
	}
	if candidateVersion > ofVersion {
		return false, nil
	}
	reader := &versionedReader{snapshots: snapshots, skip: skip, snapshotId: of, version: ofVersion}
	return reader.verifyAncestry(candidateVersion, candidate)
}

// DumpSkipIndex returns every skip-index row recorded for snapshot, in
// ascending level order, for debugging and tests.
func (d *DB) DumpSkipIndex(ctx context.Context, snapshot SnapshotId) ([]SkipEntry, error) {
	txn, err := d.backend.ReadTxn(ctx)
	if err != nil {
		return nil, errBackend(err)
	}
	defer txn.Discard()

	snapshots, err := openSnapshotReader(txn)
	if err != nil {
		return nil, err
	}
	skip, err := openSkipIndexReader(txn)
	if err != nil {
		return nil, err
	}
	version, _, err := snapshots.read(snapshot)
	if err != nil {
		return nil, err
	}
	levels := bitLength64(uint64(version))

	var entries []SkipEntry
	for level := uint32(1); level < levels; level++ {
		ancestor, ok, err := skip.read(snapshot, level)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		entries = append(entries, SkipEntry{Snapshot: snapshot, Level: level, Ancestor: ancestor})
	}
	return entries, nil
}

// SnapshotRow is one committed row of the snapshot table.
type SnapshotRow struct {
	Id      SnapshotId
	Version Version
	Parent  SnapshotId
}

// AllSnapshots scans every committed snapshot row in id order. It excludes
// the allocator counter entry (keyed at all-0xff, one past the maximum real
// snapshot key) via the half-open range bound, so the scan never needs to
// special-case it. This is the full-table-scan primitive behind the CLI's
// snapshot tree rendering.
func (d *DB) AllSnapshots(ctx context.Context) ([]SnapshotRow, error) {
	txn, err := d.backend.ReadTxn(ctx)
	if err != nil {
		return nil, errBackend(err)
	}
	defer txn.Discard()

	table, err := txn.Table(snapshotTableName)
	if err != nil {
		return nil, errBackend(err)
	}
	begin := make([]byte, 8)
	rng, err := table.Range(begin, snapshotNextKey())
	if err != nil {
		return nil, errBackend(err)
	}
	defer rng.Close()

	var rows []SnapshotRow
	for rng.Next() {
		id, err := decodeSnapshotId(rng.Key())
		if err != nil {
			return nil, err
		}
		version, parent, err := decodeSnapshotValue(rng.Value())
		if err != nil {
			return nil, err
		}
		rows = append(rows, SnapshotRow{Id: id, Version: version, Parent: parent})
	}
	if err := rng.Err(); err != nil {
		return nil, errBackend(err)
	}
	return rows, nil
}

// maxTableNameScanBound is a generous upper bound on table name length used
// to build a range covering every possible meta table key.
const maxTableNameScanBound = 4096

// ListTables returns every user table name registered in the meta table,
// with its kind, in lexicographic order. This performs a full table scan;
// it exists for tooling and debugging, not hot paths.
func (d *DB) ListTables(ctx context.Context) ([]string, []TableKind, error) {
	txn, err := d.backend.ReadTxn(ctx)
	if err != nil {
		return nil, nil, errBackend(err)
	}
	defer txn.Discard()

	backendTable, err := txn.Table(metaTableName)
	if err != nil {
		return nil, nil, errBackend(err)
	}
	end := make([]byte, maxTableNameScanBound)
	for i := range end {
		end[i] = 0xff
	}
	rng, err := backendTable.Range(nil, end)
	if err != nil {
		return nil, nil, errBackend(err)
	}
	defer rng.Close()

	var names []string
	var kinds []TableKind
	for rng.Next() {
		name := string(rng.Key())
		value := rng.Value()
		if len(value) == 0 {
			continue
		}
		kind, err := tableKindFromByte(value[0])
		if err != nil {
			return nil, nil, err
		}
		names = append(names, name)
		kinds = append(kinds, kind)
	}
	if err := rng.Err(); err != nil {
		return nil, nil, errBackend(err)
	}
	return names, kinds, nil
}
