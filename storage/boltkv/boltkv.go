// Package boltkv implements backend.Backend over go.etcd.io/bbolt. Bolt's
// own bucket model already matches the backend contract almost exactly —
// each named table is one top-level bucket, opened lazily on first use.
package boltkv

import (
	"context"

	bolt "go.etcd.io/bbolt"

	"github.com/tiannian/crepedb/backend"
)

// Backend is a bbolt-backed backend.Backend.
type Backend struct {
	db *bolt.DB
}

// Open creates or opens the bbolt file at path.
func Open(path string) (*Backend, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) ReadTxn(ctx context.Context) (backend.ReadTxn, error) {
	txn, err := b.db.Begin(false)
	if err != nil {
		return nil, err
	}
	return &readTxn{txn: txn}, nil
}

func (b *Backend) WriteTxn(ctx context.Context) (backend.WriteTxn, error) {
	txn, err := b.db.Begin(true)
	if err != nil {
		return nil, err
	}
	return &writeTxn{readTxn: readTxn{txn: txn}}, nil
}

type readTxn struct {
	txn *bolt.Tx
}

func (r *readTxn) Table(name string) (backend.Table, error) {
	bucket := r.txn.Bucket([]byte(name))
	return &table{bucket: bucket}, nil
}

func (r *readTxn) Discard() {
	_ = r.txn.Rollback()
}

type writeTxn struct {
	readTxn
}

func (w *writeTxn) WriteTable(name string) (backend.WriteTable, error) {
	bucket, err := w.txn.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, err
	}
	return &writeTable{table: table{bucket: bucket}}, nil
}

func (w *writeTxn) Commit() error {
	return w.txn.Commit()
}

// table wraps a bucket that may be nil (an empty, never-created table reads
// as empty rather than erroring — the core's meta layer is what rejects
// unregistered table names).
type table struct {
	bucket *bolt.Bucket
}

func (t *table) Get(key []byte) ([]byte, bool, error) {
	if t.bucket == nil {
		return nil, false, nil
	}
	v := t.bucket.Get(key)
	if v == nil {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (t *table) Range(begin, end []byte) (backend.Range, error) {
	if t.bucket == nil {
		return &rangeIter{}, nil
	}
	c := t.bucket.Cursor()
	return &rangeIter{cursor: c, begin: begin, end: end, first: true}, nil
}

type writeTable struct {
	table
}

func (t *writeTable) Set(key, value []byte) error {
	return t.bucket.Put(key, value)
}

func (t *writeTable) Delete(key []byte) error {
	return t.bucket.Delete(key)
}

type rangeIter struct {
	cursor     *bolt.Cursor
	begin, end []byte
	first      bool
	key, value []byte
}

func (r *rangeIter) Next() bool {
	if r.cursor == nil {
		return false
	}
	var k, v []byte
	if r.first {
		r.first = false
		k, v = r.cursor.Seek(r.begin)
	} else {
		k, v = r.cursor.Next()
	}
	if k == nil || (r.end != nil && bytesCompare(k, r.end) >= 0) {
		return false
	}
	r.key, r.value = k, v
	return true
}

func (r *rangeIter) Key() []byte   { return r.key }
func (r *rangeIter) Value() []byte { return r.value }
func (r *rangeIter) Err() error    { return nil }
func (r *rangeIter) Close()        {}

func bytesCompare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
