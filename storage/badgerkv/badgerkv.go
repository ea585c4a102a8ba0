// Package badgerkv implements backend.Backend over github.com/dgraph-io/badger/v4,
// grounded on the teacher's pkg/resource/badger data source: named tables are
// namespaced by a length-prefixed key prefix inside one shared Badger
// instance, the way that package's KeyEncoder namespaces rows, indexes and
// config under a single keyspace.
package badgerkv

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tiannian/crepedb/backend"
)

// Config mirrors the teacher's DataSourceConfig: the handful of Badger
// options a host actually wants to tune, with sane embedded defaults.
type Config struct {
	Dir            string
	InMemory       bool
	SyncWrites     bool
	ValueThreshold int64
	Logger         *log.Logger
}

// DefaultConfig returns a durable, sync-writes configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		InMemory:       false,
		SyncWrites:     true,
		ValueThreshold: 1 << 10,
	}
}

// Backend is a Badger-backed backend.Backend.
type Backend struct {
	db     *badger.DB
	logger *log.Logger
}

// Open creates or opens the Badger database described by cfg.
func Open(cfg Config) (*Backend, error) {
	opts := badger.DefaultOptions(cfg.Dir)
	opts = opts.WithInMemory(cfg.InMemory)
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.ValueThreshold > 0 {
		opts = opts.WithValueThreshold(cfg.ValueThreshold)
	}
	opts = opts.WithLogger(nil)

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	db, err := badger.Open(opts)
	if err != nil {
		logger.Printf("badgerkv: open %q failed: %v", cfg.Dir, err)
		return nil, err
	}
	logger.Printf("badgerkv: opened %q (in_memory=%v sync_writes=%v)", cfg.Dir, cfg.InMemory, cfg.SyncWrites)
	return &Backend{db: db, logger: logger}, nil
}

func (b *Backend) Close() error {
	if err := b.db.Close(); err != nil {
		b.logger.Printf("badgerkv: close failed: %v", err)
		return err
	}
	b.logger.Printf("badgerkv: closed")
	return nil
}

func (b *Backend) ReadTxn(ctx context.Context) (backend.ReadTxn, error) {
	return &readTxn{txn: b.db.NewTransaction(false), logger: b.logger}, nil
}

func (b *Backend) WriteTxn(ctx context.Context) (backend.WriteTxn, error) {
	return &writeTxn{readTxn: readTxn{txn: b.db.NewTransaction(true), logger: b.logger}}, nil
}

// tablePrefix namespaces every key written for a named table:
// be_u16(len(name)) ‖ name ‖ 0x00 ‖ key. The length prefix keeps table names
// from colliding via simple concatenation (e.g. "ab"+"c" vs "a"+"bc").
func tablePrefix(name string) []byte {
	p := make([]byte, 2+len(name)+1)
	binary.BigEndian.PutUint16(p[0:2], uint16(len(name)))
	copy(p[2:], name)
	p[len(p)-1] = 0x00
	return p
}

func tableKey(prefix, key []byte) []byte {
	out := make([]byte, len(prefix)+len(key))
	copy(out, prefix)
	copy(out[len(prefix):], key)
	return out
}

type readTxn struct {
	txn    *badger.Txn
	logger *log.Logger
}

func (r *readTxn) Table(name string) (backend.Table, error) {
	return &table{txn: r.txn, prefix: tablePrefix(name)}, nil
}

func (r *readTxn) Discard() {
	r.txn.Discard()
}

type writeTxn struct {
	readTxn
}

func (w *writeTxn) WriteTable(name string) (backend.WriteTable, error) {
	return &writeTable{table: table{txn: w.txn, prefix: tablePrefix(name)}}, nil
}

func (w *writeTxn) Commit() error {
	if err := w.txn.Commit(); err != nil {
		w.logger.Printf("badgerkv: commit failed: %v", err)
		return err
	}
	return nil
}

type table struct {
	txn    *badger.Txn
	prefix []byte
}

func (t *table) Get(key []byte) ([]byte, bool, error) {
	item, err := t.txn.Get(tableKey(t.prefix, key))
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (t *table) Range(begin, end []byte) (backend.Range, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = t.prefix
	it := t.txn.NewIterator(opts)
	beginKey := tableKey(t.prefix, begin)
	endKey := tableKey(t.prefix, end)
	it.Seek(beginKey)
	return &rangeIter{it: it, prefix: t.prefix, end: endKey, started: true}, nil
}

type writeTable struct {
	table
}

func (t *writeTable) Set(key, value []byte) error {
	return t.txn.Set(tableKey(t.prefix, key), value)
}

func (t *writeTable) Delete(key []byte) error {
	return t.txn.Delete(tableKey(t.prefix, key))
}

type rangeIter struct {
	it      *badger.Iterator
	prefix  []byte
	end     []byte
	started bool
	err     error
	key     []byte
	value   []byte
}

func (r *rangeIter) Next() bool {
	if r.started {
		r.started = false
	} else {
		r.it.Next()
	}
	if !r.it.ValidForPrefix(r.prefix) {
		return false
	}
	item := r.it.Item()
	k := item.KeyCopy(nil)
	if bytes.Compare(k, r.end) >= 0 {
		return false
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		r.err = err
		return false
	}
	r.key = k[len(r.prefix):]
	r.value = v
	return true
}

func (r *rangeIter) Key() []byte   { return r.key }
func (r *rangeIter) Value() []byte { return r.value }
func (r *rangeIter) Err() error    { return r.err }
func (r *rangeIter) Close()        { r.it.Close() }
