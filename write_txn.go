package crepedb

import "github.com/tiannian/crepedb/backend"

// WriteTxn stages table registrations and user writes; nothing is durable
// until Commit succeeds, at which point every staged change — user rows,
// meta, snapshot and skip-index rows — lands atomically via the backend.
type WriteTxn struct {
	txn backend.WriteTxn

	// branchPoint is the snapshot this write was forked from (Preroot for a
	// new root). It becomes the committed row's parent column.
	branchPoint SnapshotId
	// hasParent is false only when creating the root.
	hasParent bool
	// grandparent seeds skip-index level 1 (see skipindex.go); zero value
	// unused when hasParent is false.
	grandparent SnapshotId

	newSnapshotId SnapshotId
	version       Version

	committed bool
}

// newWriteTxn constructs the write transaction state per spec §4.6. parent
// == nil creates the root; otherwise it branches from *parent.
func newWriteTxn(txn backend.WriteTxn, parent *SnapshotId) (*WriteTxn, error) {
	snapshots, err := openSnapshotReader(txn)
	if err != nil {
		return nil, err
	}

	if parent == nil {
		rootExists, err := snapshots.has(Root)
		if err != nil {
			return nil, err
		}
		if rootExists {
			return nil, errOnlySupportOneRoot()
		}
		return &WriteTxn{
			txn:           txn,
			branchPoint:   Preroot,
			hasParent:     false,
			newSnapshotId: Root,
			version:       0,
		}, nil
	}

	p := *parent
	parentVersion, grandparent, err := snapshots.read(p)
	if err != nil {
		return nil, err
	}
	next, err := snapshots.readNext()
	if err != nil {
		return nil, err
	}
	return &WriteTxn{
		txn:           txn,
		branchPoint:   p,
		hasParent:     true,
		grandparent:   grandparent,
		newSnapshotId: next,
		version:       parentVersion + 1,
	}, nil
}

// NewSnapshotId returns the id this transaction will commit as, before commit.
func (w *WriteTxn) NewSnapshotId() SnapshotId {
	return w.newSnapshotId
}

// Version returns the version this transaction will commit at.
func (w *WriteTxn) Version() Version {
	return w.version
}

// CreateBasicTable registers name as a Basic table.
func (w *WriteTxn) CreateBasicTable(name string) error {
	return w.createTable(name, Basic)
}

// CreateVersionedTable registers name as a Versioned table.
func (w *WriteTxn) CreateVersionedTable(name string) error {
	return w.createTable(name, Versioned)
}

func (w *WriteTxn) createTable(name string, kind TableKind) error {
	meta, err := openMetaWriter(w.txn)
	if err != nil {
		return err
	}
	return meta.writeKind(name, kind)
}

// TableKind reports the persisted kind for name without opening it, letting
// a caller distinguish "not yet created" from an open attempt.
func (w *WriteTxn) TableKind(name string) (TableKind, error) {
	meta, err := openMetaReader(w.txn)
	if err != nil {
		return 0, err
	}
	return meta.readKind(name)
}

// OpenTable opens name for writing, bound to this transaction's new snapshot
// id and version.
func (w *WriteTxn) OpenTable(name string) (*WriteTable, error) {
	meta, err := openMetaReader(w.txn)
	if err != nil {
		return nil, err
	}
	kind, err := meta.readKind(name)
	if err != nil {
		return nil, err
	}

	backendTable, err := w.txn.WriteTable(name)
	if err != nil {
		return nil, errBackend(err)
	}

	switch kind {
	case Basic:
		bt := &basicWriteTable{basicTable: basicTable{table: backendTable}, writeTable: backendTable}
		return &WriteTable{kind: Basic, basic: bt}, nil
	case Versioned:
		vw := &versionedWriter{table: backendTable, version: w.version, snapshotId: w.newSnapshotId}
		snapshots, err := openSnapshotReader(w.txn)
		if err != nil {
			return nil, err
		}
		skip, err := openSkipIndexReader(w.txn)
		if err != nil {
			return nil, err
		}
		vr := &versionedReader{
			table:      backendTable,
			snapshots:  snapshots,
			skip:       skip,
			snapshotId: w.newSnapshotId,
			version:    w.version,
		}
		return &WriteTable{kind: Versioned, versioned: vw, versionedRead: vr}, nil
	default:
		return nil, errUnexpectedTableType(byte(kind))
	}
}

// Commit atomically persists every staged user write plus the snapshot and
// skip-index metadata, and returns the new snapshot id.
func (w *WriteTxn) Commit() (SnapshotId, error) {
	snapshots, err := openSnapshotWriter(w.txn)
	if err != nil {
		return 0, err
	}
	if err := snapshots.write(w.newSnapshotId, w.branchPoint, w.version); err != nil {
		return 0, err
	}
	if err := snapshots.advanceNext(w.newSnapshotId); err != nil {
		return 0, err
	}
	if w.hasParent {
		skip, err := openSkipIndexWriter(w.txn)
		if err != nil {
			return 0, err
		}
		if err := skip.build(w.newSnapshotId, w.grandparent, w.version); err != nil {
			return 0, err
		}
	}
	if err := w.txn.Commit(); err != nil {
		return 0, errBackend(err)
	}
	w.committed = true
	return w.newSnapshotId, nil
}

// Discard abandons the transaction without committing. Safe to call after a
// successful Commit (no-op in that case).
func (w *WriteTxn) Discard() {
	if w.committed {
		return
	}
	w.txn.Discard()
}

// WriteTable is a mutable view over either a basic or versioned user table.
type WriteTable struct {
	kind          TableKind
	basic         *basicWriteTable
	versioned     *versionedWriter
	versionedRead *versionedReader
}

// Get reads back a value through the same view used for writes, including
// writes staged earlier in this same transaction.
func (t *WriteTable) Get(key []byte) (value []byte, ok bool, err error) {
	switch t.kind {
	case Basic:
		return t.basic.get(key)
	case Versioned:
		return t.versionedRead.get(key)
	default:
		return nil, false, errUnexpectedTableType(byte(t.kind))
	}
}

// Set writes key -> value. Basic: overwrites in place. Versioned: appends a
// new Set(value) entry tagged with this transaction's (version, snapshot).
func (t *WriteTable) Set(key, value []byte) error {
	switch t.kind {
	case Basic:
		return t.basic.set(key, value)
	case Versioned:
		return t.versioned.set(key, value)
	default:
		return errUnexpectedTableType(byte(t.kind))
	}
}

// Del removes key. Basic: deletes in place. Versioned: appends a tombstone.
func (t *WriteTable) Del(key []byte) error {
	switch t.kind {
	case Basic:
		return t.basic.del(key)
	case Versioned:
		return t.versioned.del(key)
	default:
		return errUnexpectedTableType(byte(t.kind))
	}
}
