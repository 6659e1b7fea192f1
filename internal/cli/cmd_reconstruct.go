package cli

import (
	"context"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/briefing"
	"github.com/amaranth-kb/amaranth/internal/config"
	"github.com/amaranth-kb/amaranth/internal/store"

	flag "github.com/spf13/pflag"
)

// ReconstructCmd returns the reconstruct command.
func ReconstructCmd(st *store.Store, cfg config.Config) *Command {
	fs := flag.NewFlagSet("reconstruct", flag.ContinueOnError)
	fs.String("detail", cfg.DetailTier, "Detail tier: summary|scan|full")
	fs.Int("since-hours", 0, "Only consider entries from the last N hours")
	fs.String("focus", "", "Comma-separated tag categories to restrict to")

	return &Command{
		Flags: fs,
		Usage: "reconstruct <query> [flags]",
		Short: "Build an LLM-friendly briefing for query",
		Long:  "Match query against topics/sources/terms, compress duplicates and supersession chains, and render a detail-tiered briefing.",
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execReconstruct(io, st, fs, args)
		},
	}
}

func execReconstruct(io *IO, st *store.Store, fs *flag.FlagSet, args []string) error {
	if len(args) < 1 {
		return store.ErrInvalidArgument
	}

	query := strings.Join(args, " ")

	detailStr, _ := fs.GetString("detail")
	sinceHours, _ := fs.GetInt("since-hours")
	focusStr, _ := fs.GetString("focus")

	var focus []string
	if focusStr != "" {
		for _, f := range strings.Split(focusStr, ",") {
			f = strings.TrimSpace(f)
			if f != "" {
				focus = append(focus, f)
			}
		}
	}

	out, err := st.Reconstruct(query, store.ReconstructOptions{
		Detail:     briefing.ParseDetail(detailStr),
		SinceHours: sinceHours,
		HasSince:   fs.Changed("since-hours"),
		Focus:      focus,
	})
	if err != nil {
		return err
	}

	io.Printf("%s", out)

	return nil
}
