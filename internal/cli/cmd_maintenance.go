package cli

import (
	"context"

	"github.com/amaranth-kb/amaranth/internal/store"

	flag "github.com/spf13/pflag"
)

// RebuildIndexCmd returns the rebuild-index command.
func RebuildIndexCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rebuild-index", flag.ContinueOnError),
		Usage: "rebuild-index",
		Short: "Rebuild index.bin from the live corpus",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			if err := st.RebuildIndex(); err != nil {
				return err
			}

			io.Println("index rebuilt")

			return nil
		},
	}
}

// CompactLogCmd returns the compact-log command.
func CompactLogCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("compact-log", flag.ContinueOnError),
		Usage: "compact-log",
		Short: "Rewrite data.log to drop tombstoned records",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			res, err := st.CompactLog()
			if err != nil {
				return err
			}

			io.Printf("compacted to %d live entries (%d -> %d bytes)\n",
				res.EntryCount, res.BeforeSize, res.AfterSize)

			return nil
		},
	}
}

// MigrateLegacyCmd returns the migrate-legacy command.
func MigrateLegacyCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("migrate-legacy", flag.ContinueOnError),
		Usage: "migrate-legacy <dir>",
		Short: "Import legacy <topic>.md files from dir as entries",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) < 1 {
				return store.ErrInvalidArgument
			}

			count, err := st.MigrateLegacy(args[0])
			if err != nil {
				return err
			}

			io.Printf("migrated %d entries\n", count)

			return nil
		},
	}
}
