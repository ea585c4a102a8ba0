package crepedb

import "github.com/tiannian/crepedb/backend"

// snapshotTableName is the reserved table: snapshot_id -> (version, parent).
const snapshotTableName = "__crepe_snapshot"

type snapshotReader struct {
	table backend.Table
}

func openSnapshotReader(txn backend.ReadTxn) (*snapshotReader, error) {
	t, err := txn.Table(snapshotTableName)
	if err != nil {
		return nil, errBackend(err)
	}
	return &snapshotReader{table: t}, nil
}

// read returns (version, parent) for id, or MissingSnapshot if absent.
func (s *snapshotReader) read(id SnapshotId) (Version, SnapshotId, error) {
	v, ok, err := s.table.Get(snapshotKey(id))
	if err != nil {
		return 0, 0, errBackend(err)
	}
	if !ok {
		return 0, 0, errMissingSnapshot(id)
	}
	return decodeSnapshotValue(v)
}

func (s *snapshotReader) has(id SnapshotId) (bool, error) {
	_, ok, err := s.table.Get(snapshotKey(id))
	if err != nil {
		return false, errBackend(err)
	}
	return ok, nil
}

// readNext returns the next snapshot id to allocate, defaulting to Root if
// the allocator counter has never been advanced.
func (s *snapshotReader) readNext() (SnapshotId, error) {
	v, ok, err := s.table.Get(snapshotNextKey())
	if err != nil {
		return 0, errBackend(err)
	}
	if !ok {
		return Root, nil
	}
	id, err := decodeSnapshotId(v)
	if err != nil {
		return 0, err
	}
	return id, nil
}

type snapshotWriter struct {
	snapshotReader
	writeTable backend.WriteTable
}

func openSnapshotWriter(txn backend.WriteTxn) (*snapshotWriter, error) {
	t, err := txn.WriteTable(snapshotTableName)
	if err != nil {
		return nil, errBackend(err)
	}
	return &snapshotWriter{snapshotReader: snapshotReader{table: t}, writeTable: t}, nil
}

// write persists the immutable row for id: (version, parent).
func (s *snapshotWriter) write(id SnapshotId, parent SnapshotId, version Version) error {
	if err := s.writeTable.Set(snapshotKey(id), encodeSnapshotValue(version, parent)); err != nil {
		return errBackend(err)
	}
	return nil
}

// advanceNext records id+1 as the next allocator value.
func (s *snapshotWriter) advanceNext(id SnapshotId) error {
	next := encodeSnapshotId(id + 1)
	if err := s.writeTable.Set(snapshotNextKey(), next); err != nil {
		return errBackend(err)
	}
	return nil
}
