package cli

import (
	"context"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/bm25idx"
	"github.com/amaranth-kb/amaranth/internal/clock"
	"github.com/amaranth-kb/amaranth/internal/config"
	"github.com/amaranth-kb/amaranth/internal/score"
	"github.com/amaranth-kb/amaranth/internal/store"
	"github.com/amaranth-kb/amaranth/internal/tokenize"

	flag "github.com/spf13/pflag"
)

// SearchCmd returns the search command.
func SearchCmd(st *store.Store, cfg config.Config) *Command {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.Int("limit", cfg.SearchLimit, "Maximum results")
	fs.String("mode", "and", "Query mode: and|or")
	fs.String("tag", "", "Filter by tag")
	fs.String("topic", "", "Filter by topic")
	fs.Int64("after", 0, "Only entries at or after this many days since epoch")
	fs.Int64("before", 0, "Only entries at or before this many days since epoch")

	return &Command{
		Flags: fs,
		Usage: "search <query> [flags]",
		Short: "Score query against the corpus and print ranked hits",
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execSearch(io, st, fs, args)
		},
	}
}

func execSearch(io *IO, st *store.Store, fs *flag.FlagSet, args []string) error {
	if len(args) < 1 {
		return store.ErrInvalidArgument
	}

	query := strings.Join(args, " ")

	limit, _ := fs.GetInt("limit")
	modeStr, _ := fs.GetString("mode")
	tag, _ := fs.GetString("tag")
	topic, _ := fs.GetString("topic")
	after, _ := fs.GetInt64("after")
	before, _ := fs.GetInt64("before")

	mode := bm25idx.ModeAnd
	if strings.EqualFold(modeStr, "or") {
		mode = bm25idx.ModeOr
	}

	filter := score.Filter{
		Tag:       tag,
		HasTag:    fs.Changed("tag"),
		Topic:     topic,
		HasTopic:  fs.Changed("topic"),
		After:     after,
		HasAfter:  fs.Changed("after"),
		Before:    before,
		HasBefore: fs.Changed("before"),
	}

	res, err := st.Search(query, limit, mode, filter)
	if err != nil {
		return err
	}

	if res.IndexUnusable {
		io.WarnLLM("index.bin is missing, corrupt, or stale", "run rebuild-index; results came from a full corpus scan")
	}

	if res.Fallback {
		io.Println("(AND matched nothing, fell back to OR)")
	}

	if len(res.Hits) == 0 {
		io.Printf("no results for %q\n", query)
		return nil
	}

	for _, hit := range res.Hits {
		io.Printf("[%s] @ %s (score %.2f)\n", hit.Entry.Topic, clock.MinutesToDate(hit.Entry.TimestampMin), hit.Score)
		io.Printf("  %s\n", tokenize.Truncate(hit.Entry.Body, 160))
	}

	return nil
}
