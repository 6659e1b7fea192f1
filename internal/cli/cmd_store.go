package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/store"

	flag "github.com/spf13/pflag"
)

// StoreCmd returns the store command.
func StoreCmd(st *store.Store) *Command {
	fs := flag.NewFlagSet("store", flag.ContinueOnError)
	fs.String("tags", "", "Comma-separated tags (auto-detected from text prefix if omitted)")
	fs.Float64("confidence", 1.0, "Confidence 0.0-1.0")
	fs.String("source", "", "Source reference, e.g. path/to/file.go:42")
	fs.String("links", "", "Comma-separated topic:index link targets")
	fs.Bool("force", false, "Skip near-duplicate detection")

	return &Command{
		Flags: fs,
		Usage: "store <topic> <text...> [flags]",
		Short: "Append a new entry to a topic",
		Long:  "Store a new timestamped entry under topic, auto-detecting tags from a leading 'gotcha:'/'decision:' prefix unless --tags is given.",
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execStore(io, st, fs, args)
		},
	}
}

func execStore(io *IO, st *store.Store, fs *flag.FlagSet, args []string) error {
	if len(args) < 2 {
		return store.ErrInvalidArgument
	}

	topic := args[0]
	text := strings.Join(args[1:], " ")

	tags, _ := fs.GetString("tags")
	confidence, _ := fs.GetFloat64("confidence")
	source, _ := fs.GetString("source")
	links, _ := fs.GetString("links")
	force, _ := fs.GetBool("force")

	opts := store.Options{
		Tags:       tags,
		HasTags:    fs.Changed("tags"),
		Force:      force,
		Source:     source,
		HasSource:  fs.Changed("source"),
		Confidence: confidence,
		HasConf:    fs.Changed("confidence"),
		Links:      links,
		HasLinks:   fs.Changed("links"),
	}

	res, err := st.Store(topic, text, opts)
	if err != nil {
		return err
	}

	io.Println(res.Message)
	io.Println("offset=" + strconv.FormatUint(uint64(res.Offset), 10))

	return nil
}
