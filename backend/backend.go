// Package backend declares the minimal ordered-byte-map contract the
// crepedb core depends on. Nothing in this package knows about snapshots,
// versions or ancestry — it only describes named tables with point lookups
// and ascending range scans inside ACID transactions.
package backend

import "context"

// Backend opens read and write transactions against a named-table store.
// Implementations must serialize write transactions against each other but
// may allow any number of concurrent readers (multi-reader, single-writer).
type Backend interface {
	ReadTxn(ctx context.Context) (ReadTxn, error)
	WriteTxn(ctx context.Context) (WriteTxn, error)
	Close() error
}

// ReadTxn is a read-only view fixed at begin time.
type ReadTxn interface {
	// Table opens a named table for reading. Opening a table that was never
	// created is not itself an error at this layer: it simply behaves as an
	// empty table until the core's meta layer rejects it.
	Table(name string) (Table, error)
	// Discard releases resources held by the transaction. It never commits
	// anything and is always safe to call, including after Table calls whose
	// results are no longer used.
	Discard()
}

// WriteTxn is a single mutable view. All tables opened from one WriteTxn
// participate in the same atomic commit.
type WriteTxn interface {
	ReadTxn
	// WriteTable opens a named table for writing, creating it on first use.
	WriteTable(name string) (WriteTable, error)
	// Commit durably applies every staged write atomically. On error the
	// store is left exactly as it was before the transaction began.
	Commit() error
}

// Table supports point lookups and ascending range scans.
type Table interface {
	// Get returns the value stored for key, or ok == false if absent.
	Get(key []byte) (value []byte, ok bool, err error)
	// Range iterates [begin, end) in ascending lexicographic key order.
	// The returned Range must be fully drained or closed before the owning
	// transaction ends.
	Range(begin, end []byte) (Range, error)
}

// WriteTable additionally supports mutation. Deleting an absent key is not
// an error.
type WriteTable interface {
	Table
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Range iterates key/value pairs in ascending order.
type Range interface {
	// Next advances the iterator and reports whether a pair is available.
	Next() bool
	// Key and Value are valid only after a Next call that returned true.
	// The returned slices must not be retained past the following Next/Close.
	Key() []byte
	Value() []byte
	Err() error
	Close()
}
