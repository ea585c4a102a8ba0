package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tiannian/crepedb/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, config.BackendMemory, cfg.Backend)
	assert.False(t, cfg.Badger.InMemory)
	assert.True(t, cfg.Badger.SyncWrites)
	assert.Equal(t, int64(1<<10), cfg.Badger.ValueThreshold)
	assert.Equal(t, "crepedb.bolt", cfg.Bolt.Path)
	assert.Equal(t, "crepedb.sqlite", cfg.Sqlite.Path)
}
