package crepedb

import "github.com/tiannian/crepedb/backend"

// metaTableName is the reserved table mapping user table name -> TableKind.
const metaTableName = "__crepe_meta"

type metaReader struct {
	table backend.Table
}

func openMetaReader(txn backend.ReadTxn) (*metaReader, error) {
	t, err := txn.Table(metaTableName)
	if err != nil {
		return nil, errBackend(err)
	}
	return &metaReader{table: t}, nil
}

// readKind returns the persisted kind for name, or MissingTable if unregistered.
func (m *metaReader) readKind(name string) (TableKind, error) {
	v, ok, err := m.table.Get([]byte(name))
	if err != nil {
		return 0, errBackend(err)
	}
	if !ok || len(v) == 0 {
		return 0, errMissingTable(name)
	}
	return tableKindFromByte(v[0])
}

type metaWriter struct {
	metaReader
	writeTable backend.WriteTable
}

func openMetaWriter(txn backend.WriteTxn) (*metaWriter, error) {
	t, err := txn.WriteTable(metaTableName)
	if err != nil {
		return nil, errBackend(err)
	}
	return &metaWriter{metaReader: metaReader{table: t}, writeTable: t}, nil
}

// writeKind registers name with the given kind, overwriting any prior entry.
func (m *metaWriter) writeKind(name string, kind TableKind) error {
	if err := m.writeTable.Set([]byte(name), []byte{byte(kind)}); err != nil {
		return errBackend(err)
	}
	return nil
}
