// Package crepedb implements an embedded, versioned, forkable key-value
// store layered over a pluggable ordered-byte-map backend (see the backend
// package for the contract). Every commit derives a new snapshot from a
// parent, producing a snapshot tree rather than a linear history, and any
// historical snapshot remains readable.
package crepedb

import (
	"context"

	"github.com/tiannian/crepedb/backend"
)

// DB wraps a backend with the versioning core.
type DB struct {
	backend backend.Backend
}

// Open wraps an already-constructed backend.
func Open(b backend.Backend) *DB {
	return &DB{backend: b}
}

// Backend returns the wrapped backend.
func (d *DB) Backend() backend.Backend {
	return d.backend
}

// Close releases the underlying backend.
func (d *DB) Close() error {
	return d.backend.Close()
}

// Read opens a consistent read view of snapshot. A nil snapshot reads from
// Preroot, the sentinel "nothing committed yet" view.
func (d *DB) Read(ctx context.Context, snapshot *SnapshotId) (*ReadTxn, error) {
	id := Preroot
	if snapshot != nil {
		id = *snapshot
	}
	txn, err := d.backend.ReadTxn(ctx)
	if err != nil {
		return nil, errBackend(err)
	}
	return &ReadTxn{txn: txn, snapshotId: id}, nil
}

// Write opens a write transaction. A nil parent creates the root snapshot
// (fails with OnlySupportOneRoot if one already exists); otherwise the new
// snapshot branches from *parent.
func (d *DB) Write(ctx context.Context, parent *SnapshotId) (*WriteTxn, error) {
	txn, err := d.backend.WriteTxn(ctx)
	if err != nil {
		return nil, errBackend(err)
	}
	w, err := newWriteTxn(txn, parent)
	if err != nil {
		txn.Discard()
		return nil, err
	}
	return w, nil
}

// SnapshotInfo returns (version, parent) for id without opening a full read
// transaction's table machinery.
func (d *DB) SnapshotInfo(ctx context.Context, id SnapshotId) (Version, SnapshotId, error) {
	txn, err := d.backend.ReadTxn(ctx)
	if err != nil {
		return 0, 0, errBackend(err)
	}
	defer txn.Discard()

	snapshots, err := openSnapshotReader(txn)
	if err != nil {
		return 0, 0, err
	}
	return snapshots.read(id)
}
