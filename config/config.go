// Package config holds the host-facing configuration for a CrepeDB-backed
// service: which backend engine to use and how it should be opened. It
// mirrors the teacher's plain JSON-tagged config struct with a
// DefaultConfig factory — no external configuration library.
package config

// BackendKind names one of the backend.Backend implementations this module
// ships.
type BackendKind string

const (
	BackendBadger BackendKind = "badger"
	BackendBolt   BackendKind = "bolt"
	BackendSqlite BackendKind = "sqlite"
	BackendMemory BackendKind = "memory"
)

// Config is the top-level configuration for opening a DB.
type Config struct {
	Backend BackendKind  `json:"backend"`
	Badger  BadgerConfig `json:"badger"`
	Bolt    BoltConfig   `json:"bolt"`
	Sqlite  SqliteConfig `json:"sqlite"`
}

// BadgerConfig configures the badgerkv adapter.
type BadgerConfig struct {
	Dir            string `json:"dir"`
	InMemory       bool   `json:"in_memory"`
	SyncWrites     bool   `json:"sync_writes"`
	ValueThreshold int64  `json:"value_threshold"`
}

// BoltConfig configures the boltkv adapter.
type BoltConfig struct {
	Path string `json:"path"`
}

// SqliteConfig configures the sqlitekv adapter. An empty Path opens an
// in-memory database, matching database/sql's ":memory:" convention.
type SqliteConfig struct {
	Path string `json:"path"`
}

// DefaultConfig returns an in-memory configuration suitable for tests and
// quick starts.
func DefaultConfig() Config {
	return Config{
		Backend: BackendMemory,
		Badger: BadgerConfig{
			InMemory:       false,
			SyncWrites:     true,
			ValueThreshold: 1 << 10,
		},
		Bolt: BoltConfig{
			Path: "crepedb.bolt",
		},
		Sqlite: SqliteConfig{
			Path: "crepedb.sqlite",
		},
	}
}
