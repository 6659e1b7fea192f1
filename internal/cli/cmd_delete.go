package cli

import (
	"context"
	"strconv"

	"github.com/amaranth-kb/amaranth/internal/store"

	flag "github.com/spf13/pflag"
)

// DeleteByLastCmd returns the delete-by-last command.
func DeleteByLastCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("delete-by-last", flag.ContinueOnError),
		Usage: "delete-by-last <topic>",
		Short: "Tombstone the most recent entry in a topic",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) < 1 {
				return store.ErrInvalidArgument
			}

			res, err := st.DeleteByLast(args[0])
			if err != nil {
				return err
			}

			io.Println(res.Message)

			return nil
		},
	}
}

// DeleteByMatchCmd returns the delete-by-match command.
func DeleteByMatchCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("delete-by-match", flag.ContinueOnError),
		Usage: "delete-by-match <topic> <needle>",
		Short: "Tombstone the most recent entry containing needle",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) < 2 {
				return store.ErrInvalidArgument
			}

			res, err := st.DeleteByMatch(args[0], args[1])
			if err != nil {
				return err
			}

			io.Println(res.Message)

			return nil
		},
	}
}

// DeleteByIndexCmd returns the delete-by-index command.
func DeleteByIndexCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("delete-by-index", flag.ContinueOnError),
		Usage: "delete-by-index <topic> <index>",
		Short: "Tombstone a specific entry by index",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) < 2 {
				return store.ErrInvalidArgument
			}

			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return store.ErrInvalidArgument
			}

			res, err := st.DeleteByIndex(args[0], idx)
			if err != nil {
				return err
			}

			io.Println(res.Message)

			return nil
		},
	}
}

// DeleteAllCmd returns the delete-all command.
func DeleteAllCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("delete-all", flag.ContinueOnError),
		Usage: "delete-all <topic>",
		Short: "Tombstone every live entry in a topic",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) < 1 {
				return store.ErrInvalidArgument
			}

			n, err := st.DeleteAll(args[0])
			if err != nil {
				return err
			}

			io.Printf("deleted %d entries in %s\n", n, args[0])

			return nil
		},
	}
}
