package crepedb

import "github.com/tiannian/crepedb/backend"

// basicTable bypasses versioning entirely: writes are in place and visible
// from every snapshot that reads afterward, regardless of branch.
type basicTable struct {
	table backend.Table
}

func (b *basicTable) get(key []byte) ([]byte, bool, error) {
	v, ok, err := b.table.Get(key)
	if err != nil {
		return nil, false, errBackend(err)
	}
	return v, ok, nil
}

type basicWriteTable struct {
	basicTable
	writeTable backend.WriteTable
}

func (b *basicWriteTable) set(key, value []byte) error {
	if err := b.writeTable.Set(key, value); err != nil {
		return errBackend(err)
	}
	return nil
}

func (b *basicWriteTable) del(key []byte) error {
	if err := b.writeTable.Delete(key); err != nil {
		return errBackend(err)
	}
	return nil
}
