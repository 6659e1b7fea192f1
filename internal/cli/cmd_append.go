package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/store"

	flag "github.com/spf13/pflag"
)

// AppendCmd returns the append command: extends the most recent live entry
// in a topic.
func AppendCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("append", flag.ContinueOnError),
		Usage: "append <topic> <text...>",
		Short: "Append text to the most recent entry in a topic",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) < 2 {
				return store.ErrInvalidArgument
			}

			res, err := st.Append(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			io.Println(res.Message)

			return nil
		},
	}
}

// AppendByIndexCmd returns the append-by-index command: extends a specific
// entry in a topic identified by its zero-based index among live entries.
func AppendByIndexCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("append-by-index", flag.ContinueOnError),
		Usage: "append-by-index <topic> <index> <text...>",
		Short: "Append text to a specific entry by index",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) < 3 {
				return store.ErrInvalidArgument
			}

			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return store.ErrInvalidArgument
			}

			res, err := st.AppendByIndex(args[0], idx, strings.Join(args[2:], " "))
			if err != nil {
				return err
			}

			io.Println(res.Message)

			return nil
		},
	}
}

// AppendByTagCmd returns the append-by-tag command: extends the most
// recent live entry across all topics carrying the given tag.
func AppendByTagCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("append-by-tag", flag.ContinueOnError),
		Usage: "append-by-tag <tag> <text...>",
		Short: "Append text to the most recent entry carrying a tag",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) < 2 {
				return store.ErrInvalidArgument
			}

			res, err := st.AppendByTag(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			io.Println(res.Message)

			return nil
		},
	}
}
