package badgerkv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tiannian/crepedb/backend/backendtest"
	"github.com/tiannian/crepedb/storage/badgerkv"
)

func openTestBackend(t *testing.T) *badgerkv.Backend {
	t.Helper()
	cfg := badgerkv.DefaultConfig(t.TempDir())
	cfg.InMemory = true
	b, err := badgerkv.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBadgerkvConformance(t *testing.T) {
	backendtest.Run(t, openTestBackend(t))
}
