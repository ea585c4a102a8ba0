package boltkv_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tiannian/crepedb/backend/backendtest"
	"github.com/tiannian/crepedb/storage/boltkv"
)

func openTestBackend(t *testing.T) *boltkv.Backend {
	t.Helper()
	b, err := boltkv.Open(filepath.Join(t.TempDir(), "test.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBoltkvConformance(t *testing.T) {
	backendtest.Run(t, openTestBackend(t))
}
