package score_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amaranth-kb/amaranth/internal/bm25idx"
	"github.com/amaranth-kb/amaranth/internal/corpus"
	"github.com/amaranth-kb/amaranth/internal/fs"
	"github.com/amaranth-kb/amaranth/internal/score"
)

func TestSearchScoredFallsBackWhenIndexMissing(t *testing.T) {
	entries := []*corpus.Entry{
		entry("auth", "token refresh flow"),
		entry("cache", "lru eviction policy"),
	}

	results, fallback, indexUnusable, err := score.SearchScored(fs.NewReal(), "/does/not/exist/index.bin", entries,
		[]string{"token"}, score.Filter{Mode: bm25idx.ModeOr}, 10, bm25idx.NewScratch(len(entries)))
	require.NoError(t, err)
	require.False(t, fallback)
	require.True(t, indexUnusable)
	require.Len(t, results, 1)
	require.Equal(t, "auth", results[0].Entry.Topic)
}

func TestSearchScoredUsesIndexWhenPresent(t *testing.T) {
	entries := []*corpus.Entry{
		entry("auth", "token refresh flow details here"),
		entry("cache", "lru eviction policy notes"),
	}

	data, err := bm25idx.Build(entries)
	require.NoError(t, err)

	fsys := fs.NewReal()
	dir := t.TempDir()
	indexPath := dir + "/index.bin"
	require.NoError(t, fsys.WriteFileAtomic(indexPath, data, 0o644))

	results, fallback, indexUnusable, err := score.SearchScored(fsys, indexPath, entries,
		[]string{"token"}, score.Filter{Mode: bm25idx.ModeOr}, 10, bm25idx.NewScratch(len(entries)))
	require.NoError(t, err)
	require.False(t, fallback)
	require.False(t, indexUnusable)
	require.Len(t, results, 1)
	require.Equal(t, "auth", results[0].Entry.Topic)
}

func TestSearchScoredTagFilterForcesCorpusScan(t *testing.T) {
	entries := []*corpus.Entry{
		entry("auth", "token refresh flow", "decision"),
		entry("cache", "token mentioned here too"),
	}

	results, _, _, err := score.SearchScored(fs.NewReal(), "/does/not/exist/index.bin", entries,
		[]string{"token"}, score.Filter{Mode: bm25idx.ModeOr, Tag: "decision", HasTag: true}, 10,
		bm25idx.NewScratch(len(entries)))
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "auth", results[0].Entry.Topic)
}
