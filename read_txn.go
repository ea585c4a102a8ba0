package crepedb

import "github.com/tiannian/crepedb/backend"

// ReadTxn binds a fixed snapshot id and dispatches table opens against it.
type ReadTxn struct {
	txn        backend.ReadTxn
	snapshotId SnapshotId
}

// SnapshotId reports the snapshot this transaction reads from.
func (r *ReadTxn) SnapshotId() SnapshotId {
	return r.snapshotId
}

// OpenTable opens name for reading. The table must already be registered via
// a prior CreateBasicTable/CreateVersionedTable commit.
func (r *ReadTxn) OpenTable(name string) (*Table, error) {
	meta, err := openMetaReader(r.txn)
	if err != nil {
		return nil, err
	}
	kind, err := meta.readKind(name)
	if err != nil {
		return nil, err
	}

	backendTable, err := r.txn.Table(name)
	if err != nil {
		return nil, errBackend(err)
	}

	switch kind {
	case Basic:
		return &Table{kind: Basic, basic: &basicTable{table: backendTable}}, nil
	case Versioned:
		snapshots, err := openSnapshotReader(r.txn)
		if err != nil {
			return nil, err
		}
		skip, err := openSkipIndexReader(r.txn)
		if err != nil {
			return nil, err
		}
		version, _, err := snapshots.read(r.snapshotId)
		if err != nil {
			return nil, err
		}
		return &Table{
			kind: Versioned,
			versioned: &versionedReader{
				table:      backendTable,
				snapshots:  snapshots,
				skip:       skip,
				snapshotId: r.snapshotId,
				version:    version,
			},
		}, nil
	default:
		return nil, errUnexpectedTableType(byte(kind))
	}
}

// Discard releases the underlying backend transaction.
func (r *ReadTxn) Discard() {
	r.txn.Discard()
}

// Table is a read-only view over either a basic or versioned user table.
type Table struct {
	kind      TableKind
	basic     *basicTable
	versioned *versionedReader
}

// Get returns the value visible for key from the transaction's snapshot, or
// ok == false if absent.
func (t *Table) Get(key []byte) (value []byte, ok bool, err error) {
	switch t.kind {
	case Basic:
		return t.basic.get(key)
	case Versioned:
		return t.versioned.get(key)
	default:
		return nil, false, errUnexpectedTableType(byte(t.kind))
	}
}
