package sqlitekv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tiannian/crepedb/backend/backendtest"
	"github.com/tiannian/crepedb/storage/sqlitekv"
)

func openTestBackend(t *testing.T) *sqlitekv.Backend {
	t.Helper()
	b, err := sqlitekv.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSqlitekvConformance(t *testing.T) {
	backendtest.Run(t, openTestBackend(t))
}
