package bm25idx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amaranth-kb/amaranth/internal/bm25idx"
	"github.com/amaranth-kb/amaranth/internal/corpus"
)

func mkEntry(topic, body string, ts int32) *corpus.Entry {
	// Build a minimal entry the way corpus.parseEntry would, without
	// depending on its unexported constructor.
	e := &corpus.Entry{
		Topic:        topic,
		Body:         body,
		TimestampMin: ts,
		Confidence:   1.0,
	}

	words := 0
	e.TFMap = make(map[string]int)

	for _, w := range splitWords(body) {
		e.TFMap[w]++
		words++
	}

	e.WordCount = words

	return e
}

func splitWords(s string) []string {
	var out []string

	start := -1

	for i, r := range s + " " {
		if r == ' ' || r == '\n' || r == '\t' {
			if start >= 0 {
				out = append(out, lower(s[start:i]))
				start = -1
			}

			continue
		}

		if start < 0 {
			start = i
		}
	}

	return out
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}

	return string(b)
}

func TestBuildAndSearchRoundTrip(t *testing.T) {
	entries := []*corpus.Entry{
		mkEntry("auth", "jwt token refresh flow uses rotating secrets", 1000),
		mkEntry("cache", "redis cache invalidation on write through path", 1010),
		mkEntry("auth", "token refresh bug caused silent logout", 1020),
	}

	img, err := bm25idx.Build(entries)
	require.NoError(t, err)
	require.NotEmpty(t, img)

	idx, err := bm25idx.Open(img)
	require.NoError(t, err)
	require.Equal(t, 3, idx.NumEntries())

	scratch := bm25idx.NewScratch(idx.NumEntries())

	hits := idx.Search([]string{"token", "refresh"}, bm25idx.ModeAnd, 10, scratch)
	require.Len(t, hits, 2)

	for _, h := range hits {
		require.Equal(t, 2, h.Matched)
		require.NotEmpty(t, h.Snippet)
	}

	// descending score order
	for i := 1; i < len(hits); i++ {
		require.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestSearchAndFallsBackToOr(t *testing.T) {
	entries := []*corpus.Entry{
		mkEntry("a", "alpha beta", 0),
		mkEntry("b", "gamma delta", 0),
	}

	img, err := bm25idx.Build(entries)
	require.NoError(t, err)

	idx, err := bm25idx.Open(img)
	require.NoError(t, err)

	scratch := bm25idx.NewScratch(idx.NumEntries())

	hits := idx.Search([]string{"alpha", "gamma"}, bm25idx.ModeAnd, 10, scratch)
	require.Len(t, hits, 2, "AND with no full match should fall back to OR")
}

func TestSearchUnknownTermYieldsNoHits(t *testing.T) {
	entries := []*corpus.Entry{mkEntry("a", "alpha beta", 0)}

	img, err := bm25idx.Build(entries)
	require.NoError(t, err)

	idx, err := bm25idx.Open(img)
	require.NoError(t, err)

	scratch := bm25idx.NewScratch(idx.NumEntries())

	hits := idx.Search([]string{"zzz"}, bm25idx.ModeOr, 10, scratch)
	require.Empty(t, hits)
}

func TestScratchReusedAcrossQueries(t *testing.T) {
	entries := []*corpus.Entry{
		mkEntry("a", "alpha beta", 0),
		mkEntry("b", "beta gamma", 0),
	}

	img, err := bm25idx.Build(entries)
	require.NoError(t, err)

	idx, err := bm25idx.Open(img)
	require.NoError(t, err)

	scratch := bm25idx.NewScratch(idx.NumEntries())

	first := idx.Search([]string{"alpha"}, bm25idx.ModeOr, 10, scratch)
	require.Len(t, first, 1)

	second := idx.Search([]string{"beta"}, bm25idx.ModeOr, 10, scratch)
	require.Len(t, second, 2, "stale state from a prior query must not leak in")
}

func TestOpenRejectsBadMagic(t *testing.T) {
	bad := make([]byte, 64)
	_, err := bm25idx.Open(bad)
	require.Error(t, err)
}
