// Command crepedbtool inspects a CrepeDB store: its registered tables and
// its snapshot tree. It is a thin presentation layer over package crepedb;
// it holds no versioning logic of its own.
package main

import (
	"fmt"
	"log"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tiannian/crepedb"
	"github.com/tiannian/crepedb/backend"
	"github.com/tiannian/crepedb/config"
	"github.com/tiannian/crepedb/storage/badgerkv"
	"github.com/tiannian/crepedb/storage/boltkv"
	"github.com/tiannian/crepedb/storage/memkv"
	"github.com/tiannian/crepedb/storage/sqlitekv"
)

var (
	dbDir       string
	backendName string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "crepedbtool",
		Short: "Inspect a CrepeDB store's tables and snapshot tree",
	}
	root.PersistentFlags().StringVar(&dbDir, "db", "", "path to the database directory or file")
	root.PersistentFlags().StringVar(&backendName, "backend", "badger", "backend engine: badger|bolt|sqlite|memory")

	root.AddCommand(newTableCmd())
	root.AddCommand(newSnapshotCmd())
	return root
}

// buildConfig starts from config.DefaultConfig and layers the root command's
// flags on top of it, the way a host would merge a config file with
// command-line overrides.
func buildConfig() (config.Config, error) {
	cfg := config.DefaultConfig()

	switch backendName {
	case "badger":
		cfg.Backend = config.BackendBadger
	case "bolt":
		cfg.Backend = config.BackendBolt
	case "sqlite":
		cfg.Backend = config.BackendSqlite
	case "memory":
		cfg.Backend = config.BackendMemory
	default:
		return config.Config{}, fmt.Errorf("unknown backend %q", backendName)
	}

	if dbDir != "" {
		cfg.Badger.Dir = dbDir
		cfg.Bolt.Path = dbDir
		cfg.Sqlite.Path = dbDir
	}
	return cfg, nil
}

// openBackend resolves a backend.Backend from the merged config.Config
// rather than reading the CLI flags directly, so every subcommand's storage
// choice and tuning flow through one place.
func openBackend() (backend.Backend, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendBadger:
		if cfg.Badger.Dir == "" {
			return nil, fmt.Errorf("--db is required for the badger backend")
		}
		return badgerkv.Open(badgerkv.Config{
			Dir:            cfg.Badger.Dir,
			InMemory:       cfg.Badger.InMemory,
			SyncWrites:     cfg.Badger.SyncWrites,
			ValueThreshold: cfg.Badger.ValueThreshold,
			Logger:         log.Default(),
		})
	case config.BackendBolt:
		if cfg.Bolt.Path == "" {
			return nil, fmt.Errorf("--db is required for the bolt backend")
		}
		return boltkv.Open(cfg.Bolt.Path)
	case config.BackendSqlite:
		if cfg.Sqlite.Path == "" {
			return nil, fmt.Errorf("--db is required for the sqlite backend")
		}
		return sqlitekv.Open(cfg.Sqlite.Path)
	case config.BackendMemory:
		return memkv.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func newTableCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "table", Short: "Inspect registered tables"}
	cmd.AddCommand(newTableListCmd())
	cmd.AddCommand(newTableNewCmd())
	return cmd
}

func newTableListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every registered table and its kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer b.Close()
			db := crepedb.Open(b)
			names, kinds, err := db.ListTables(cmd.Context())
			if err != nil {
				return err
			}
			for i, name := range names {
				kindName := "basic"
				if kinds[i] == crepedb.Versioned {
					kindName = "versioned"
				}
				fmt.Printf("%s\t%s\n", name, kindName)
			}
			return nil
		},
	}
	return cmd
}

func newTableNewCmd() *cobra.Command {
	var (
		parent uint64
		kind   string
		hasAt  bool
	)
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Register a new basic or versioned table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer b.Close()
			db := crepedb.Open(b)

			var parentPtr *crepedb.SnapshotId
			if hasAt {
				p := crepedb.SnapshotId(parent)
				parentPtr = &p
			}
			wtxn, err := db.Write(cmd.Context(), parentPtr)
			if err != nil {
				return err
			}
			switch kind {
			case "basic":
				err = wtxn.CreateBasicTable(args[0])
			case "versioned":
				err = wtxn.CreateVersionedTable(args[0])
			default:
				wtxn.Discard()
				return fmt.Errorf("unknown kind %q, want basic|versioned", kind)
			}
			if err != nil {
				wtxn.Discard()
				return err
			}
			newID, err := wtxn.Commit()
			if err != nil {
				return err
			}
			fmt.Printf("registered %q (%s) in new snapshot %d\n", args[0], kind, uint64(newID))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "versioned", "table kind: basic|versioned")
	cmd.Flags().Uint64Var(&parent, "parent", 0, "snapshot id to branch the registering commit from")
	cmd.Flags().BoolVar(&hasAt, "has-parent", false, "set if --parent should be used (omit to create the root)")
	return cmd
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "snapshot", Short: "Inspect the snapshot tree"}
	cmd.AddCommand(newSnapshotShowCmd())
	cmd.AddCommand(newSnapshotTreeCmd())
	return cmd
}

func newSnapshotShowCmd() *cobra.Command {
	var id uint64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print (id, version, parent) for a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer b.Close()
			db := crepedb.Open(b)
			version, parent, err := db.SnapshotInfo(cmd.Context(), crepedb.SnapshotId(id))
			if err != nil {
				return err
			}
			fmt.Printf("id=%d version=%d parent=%d\n", id, uint64(version), uint64(parent))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&id, "id", 0, "snapshot id to show")
	return cmd
}

func newSnapshotTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print every snapshot row as an ancestry tree rooted at the root snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer b.Close()
			db := crepedb.Open(b)
			rows, err := db.AllSnapshots(cmd.Context())
			if err != nil {
				return err
			}
			printSnapshotTree(rows)
			return nil
		},
	}
	return cmd
}

// printSnapshotTree groups every row by its parent and walks the tree
// depth-first from each root (a row whose parent is crepedb.Preroot),
// printing every branch rather than a single ancestor chain.
func printSnapshotTree(rows []crepedb.SnapshotRow) {
	children := make(map[crepedb.SnapshotId][]crepedb.SnapshotRow)
	var roots []crepedb.SnapshotRow
	for _, row := range rows {
		if row.Parent == crepedb.Preroot {
			roots = append(roots, row)
			continue
		}
		children[row.Parent] = append(children[row.Parent], row)
	}
	for _, kids := range children {
		sort.Slice(kids, func(i, j int) bool { return kids[i].Id < kids[j].Id })
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Id < roots[j].Id })

	var walk func(row crepedb.SnapshotRow, depth int)
	walk = func(row crepedb.SnapshotRow, depth int) {
		fmt.Printf("%sid=%d version=%d\n", indent(depth), uint64(row.Id), uint64(row.Version))
		for _, child := range children[row.Id] {
			walk(child, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}
}

func indent(depth int) string {
	out := ""
	for i := 0; i < depth; i++ {
		out += "  "
	}
	return out
}
