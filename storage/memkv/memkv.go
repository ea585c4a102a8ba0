// Package memkv is an in-process backend.Backend over github.com/google/btree
// ordered trees, one per named table — grounded on the original CrepeDB
// backend's BTreeMap-per-table design, but using btree's copy-on-write Clone
// to give every transaction an isolated snapshot of its tables instead of a
// deep copy.
package memkv

import (
	"context"
	"sync"

	"github.com/google/btree"

	"github.com/tiannian/crepedb/backend"
)

const btreeDegree = 32

// item is a single key/value row ordered by key.
type item struct {
	key   []byte
	value []byte
}

func (a item) Less(than btree.Item) bool {
	b := than.(item)
	return compareBytes(a.key, b.key) < 0
}

func compareBytes(a, b []byte) int {
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

// Backend is an in-memory backend.Backend. The zero value is not usable;
// construct with New.
type Backend struct {
	mu     sync.RWMutex
	tables map[string]*btree.BTree
}

// New returns an empty in-memory backend.
func New() *Backend {
	return &Backend{tables: make(map[string]*btree.BTree)}
}

func (b *Backend) Close() error { return nil }

// snapshot returns a copy-on-write clone of every table, safe to read or
// mutate without affecting the live backend until explicitly swapped back.
func (b *Backend) snapshot() map[string]*btree.BTree {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]*btree.BTree, len(b.tables))
	for name, t := range b.tables {
		out[name] = t.Clone()
	}
	return out
}

func (b *Backend) ReadTxn(ctx context.Context) (backend.ReadTxn, error) {
	return &readTxn{tables: b.snapshot()}, nil
}

func (b *Backend) WriteTxn(ctx context.Context) (backend.WriteTxn, error) {
	b.mu.Lock() // released on Commit or Discard: single-writer semantics
	// The write lock is already held, so clone directly: snapshot() would
	// block taking the read lock on the same mutex.
	tables := make(map[string]*btree.BTree, len(b.tables))
	for name, t := range b.tables {
		tables[name] = t.Clone()
	}
	return &writeTxn{backend: b, tables: tables}, nil
}

type readTxn struct {
	tables map[string]*btree.BTree
}

func (r *readTxn) Table(name string) (backend.Table, error) {
	t, ok := r.tables[name]
	if !ok {
		t = btree.New(btreeDegree)
		r.tables[name] = t
	}
	return &table{tree: t}, nil
}

func (r *readTxn) Discard() {}

type writeTxn struct {
	backend *Backend
	tables  map[string]*btree.BTree
	done    bool
}

func (w *writeTxn) Table(name string) (backend.Table, error) {
	wt, err := w.WriteTable(name)
	if err != nil {
		return nil, err
	}
	return wt, nil
}

func (w *writeTxn) WriteTable(name string) (backend.WriteTable, error) {
	t, ok := w.tables[name]
	if !ok {
		t = btree.New(btreeDegree)
		w.tables[name] = t
	}
	return &writeTable{table: table{tree: t}, owner: w, name: name}, nil
}

func (w *writeTxn) Commit() error {
	if w.done {
		return nil
	}
	w.done = true
	defer w.backend.mu.Unlock()
	w.backend.tables = w.tables
	return nil
}

func (w *writeTxn) Discard() {
	if w.done {
		return
	}
	w.done = true
	w.backend.mu.Unlock()
}

type table struct {
	tree *btree.BTree
}

func (t *table) Get(key []byte) ([]byte, bool, error) {
	found := t.tree.Get(item{key: key})
	if found == nil {
		return nil, false, nil
	}
	return found.(item).value, true, nil
}

func (t *table) Range(begin, end []byte) (backend.Range, error) {
	var items []item
	t.tree.AscendRange(item{key: begin}, item{key: end}, func(i btree.Item) bool {
		it := i.(item)
		items = append(items, item{key: it.key, value: it.value})
		return true
	})
	return &rangeIter{items: items, idx: -1}, nil
}

type writeTable struct {
	table
	owner *writeTxn
	name  string
}

func (t *writeTable) Set(key, value []byte) error {
	keyCopy := append([]byte(nil), key...)
	valueCopy := append([]byte(nil), value...)
	t.tree.ReplaceOrInsert(item{key: keyCopy, value: valueCopy})
	t.owner.tables[t.name] = t.tree
	return nil
}

func (t *writeTable) Delete(key []byte) error {
	t.tree.Delete(item{key: key})
	t.owner.tables[t.name] = t.tree
	return nil
}

type rangeIter struct {
	items []item
	idx   int
}

func (r *rangeIter) Next() bool {
	r.idx++
	return r.idx < len(r.items)
}

func (r *rangeIter) Key() []byte   { return r.items[r.idx].key }
func (r *rangeIter) Value() []byte { return r.items[r.idx].value }
func (r *rangeIter) Err() error    { return nil }
func (r *rangeIter) Close()        {}
