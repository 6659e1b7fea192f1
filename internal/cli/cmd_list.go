package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/clock"
	"github.com/amaranth-kb/amaranth/internal/store"

	flag "github.com/spf13/pflag"
)

// ListTopicsCmd returns the list-topics command.
func ListTopicsCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("list-topics", flag.ContinueOnError),
		Usage: "list-topics",
		Short: "List every topic with its live entry count",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			topics, err := st.ListTopics()
			if err != nil {
				return err
			}

			for _, t := range topics {
				io.Printf("%-30s %d\n", t.Topic, t.Count)
			}

			return nil
		},
	}
}

// ListEntriesCmd returns the list-entries command.
func ListEntriesCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("list-entries", flag.ContinueOnError),
		Usage: "list-entries <topic>",
		Short: "List every live entry in a topic",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) < 1 {
				return store.ErrInvalidArgument
			}

			entries, err := st.ListEntries(args[0])
			if err != nil {
				return err
			}

			for i, e := range entries {
				io.Printf("[%d] @ %s\n", i, clock.MinutesToDate(e.TimestampMin))
				io.Printf("%s\n\n", e.Body)
			}

			return nil
		},
	}
}

// GetEntryCmd returns the get-entry command.
func GetEntryCmd(st *store.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("get-entry", flag.ContinueOnError),
		Usage: "get-entry <topic> <index>",
		Short: "Print a specific entry by index",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) < 2 {
				return store.ErrInvalidArgument
			}

			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return store.ErrInvalidArgument
			}

			e, err := st.GetEntry(args[0], idx)
			if err != nil {
				return err
			}

			io.Printf("[%s:%d] @ %s\n", e.Topic, idx, clock.MinutesToDate(e.TimestampMin))

			if len(e.Tags) > 0 {
				io.Println("tags: " + strings.Join(e.Tags, ", "))
			}

			io.Printf("%s\n", e.Body)

			return nil
		},
	}
}
