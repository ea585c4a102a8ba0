// Package sqlitekv implements backend.Backend over modernc.org/sqlite, the
// teacher's pure-Go (cgo-free) SQL engine dependency. Rather than one SQLite
// table per named table (DDL inside a transaction is awkward to make
// atomic with row writes across engines), every table shares one physical
// table keyed by (table name, key), which keeps Set/Delete/Range simple
// single-statement operations and still gives per-table key ordering via
// the primary key.
package sqlitekv

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/tiannian/crepedb/backend"
)

const schema = `
CREATE TABLE IF NOT EXISTS crepe_kv (
	tbl   TEXT NOT NULL,
	key   BLOB NOT NULL,
	value BLOB NOT NULL,
	PRIMARY KEY (tbl, key)
);
`

// Backend is a SQLite-backed backend.Backend.
type Backend struct {
	db *sql.DB
}

// Open creates or opens the SQLite database file at path ("" for an
// in-memory database, matching database/sql's ":memory:" convention).
func Open(path string) (*Backend, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps a ":memory:" database from being silently
	// split across unrelated in-memory instances by the connection pool,
	// and keeps this adapter's write-serialization story simple.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) ReadTxn(ctx context.Context) (backend.ReadTxn, error) {
	tx, err := b.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	return &readTxn{ctx: ctx, tx: tx}, nil
}

func (b *Backend) WriteTxn(ctx context.Context) (backend.WriteTxn, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &writeTxn{readTxn: readTxn{ctx: ctx, tx: tx}}, nil
}

type readTxn struct {
	ctx context.Context
	tx  *sql.Tx
}

func (r *readTxn) Table(name string) (backend.Table, error) {
	return &table{ctx: r.ctx, tx: r.tx, name: name}, nil
}

func (r *readTxn) Discard() {
	_ = r.tx.Rollback()
}

type writeTxn struct {
	readTxn
}

func (w *writeTxn) WriteTable(name string) (backend.WriteTable, error) {
	return &writeTable{table: table{ctx: w.ctx, tx: w.tx, name: name}}, nil
}

func (w *writeTxn) Commit() error {
	return w.tx.Commit()
}

type table struct {
	ctx  context.Context
	tx   *sql.Tx
	name string
}

func (t *table) Get(key []byte) ([]byte, bool, error) {
	var value []byte
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT value FROM crepe_kv WHERE tbl = ? AND key = ?`, t.name, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (t *table) Range(begin, end []byte) (backend.Range, error) {
	query := `SELECT key, value FROM crepe_kv WHERE tbl = ?`
	args := []any{t.name}
	if begin != nil {
		query += ` AND key >= ?`
		args = append(args, begin)
	}
	if end != nil {
		query += ` AND key < ?`
		args = append(args, end)
	}
	query += ` ORDER BY key ASC`

	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &rangeIter{rows: rows}, nil
}

type writeTable struct {
	table
}

func (t *writeTable) Set(key, value []byte) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO crepe_kv (tbl, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(tbl, key) DO UPDATE SET value = excluded.value`,
		t.name, key, value,
	)
	return err
}

func (t *writeTable) Delete(key []byte) error {
	_, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM crepe_kv WHERE tbl = ? AND key = ?`, t.name, key,
	)
	return err
}

type rangeIter struct {
	rows  *sql.Rows
	err   error
	key   []byte
	value []byte
}

func (r *rangeIter) Next() bool {
	if !r.rows.Next() {
		r.err = r.rows.Err()
		return false
	}
	if err := r.rows.Scan(&r.key, &r.value); err != nil {
		r.err = err
		return false
	}
	return true
}

func (r *rangeIter) Key() []byte   { return r.key }
func (r *rangeIter) Value() []byte { return r.value }
func (r *rangeIter) Err() error    { return r.err }
func (r *rangeIter) Close()        { _ = r.rows.Close() }
