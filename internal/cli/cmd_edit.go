package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/store"

	flag "github.com/spf13/pflag"
)

// EditByMatchCmd returns the edit-by-match command: replaces the body of
// the most recent live entry in a topic whose text contains needle.
func EditByMatchCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("edit-by-match", flag.ContinueOnError),
		Usage: "edit-by-match <topic> <needle> <new-text...>",
		Short: "Replace an entry's text, found by substring match",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) < 3 {
				return store.ErrInvalidArgument
			}

			res, err := st.EditByMatch(args[0], args[1], strings.Join(args[2:], " "))
			if err != nil {
				return err
			}

			io.Println(res.Message)

			return nil
		},
	}
}

// EditByIndexCmd returns the edit-by-index command: replaces the body of a
// specific entry in a topic identified by its zero-based index.
func EditByIndexCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("edit-by-index", flag.ContinueOnError),
		Usage: "edit-by-index <topic> <index> <new-text...>",
		Short: "Replace a specific entry's text by index",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) < 3 {
				return store.ErrInvalidArgument
			}

			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return store.ErrInvalidArgument
			}

			res, err := st.EditByIndex(args[0], idx, strings.Join(args[2:], " "))
			if err != nil {
				return err
			}

			io.Println(res.Message)

			return nil
		},
	}
}
