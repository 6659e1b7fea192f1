package briefing_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amaranth-kb/amaranth/internal/briefing"
	"github.com/amaranth-kb/amaranth/internal/compress"
)

func sample() []compress.Compressed {
	return []compress.Compressed{
		{Topic: "auth", Body: "jwt rotation design decision for refresh tokens", Date: "2026-07-01 10:00", DaysOld: 0, Tags: []string{"decision"}, Relevance: 10},
		{Topic: "auth", Body: "architecture overview of the auth module", Date: "2026-07-02 10:00", DaysOld: 1, Tags: []string{"architecture"}, Relevance: 8},
		{Topic: "cache", Body: "gotcha: stale reads after deploy", Date: "2026-07-03 10:00", DaysOld: 2, Tags: []string{"gotcha"}, Relevance: 6},
		{Topic: "cache", Body: "plain note with no particular category", Date: "2026-07-04 10:00", DaysOld: 3, Relevance: 2},
	}
}

func TestFormatSummaryHasExpectedSections(t *testing.T) {
	out := briefing.Format(sample(), briefing.Options{
		Query: "auth cache", RawCount: 6, Primary: []string{"auth", "cache"}, Detail: briefing.DetailSummary,
	})

	require.Contains(t, out, "=== AUTH CACHE ===")
	require.Contains(t, out, "TOPICS:")
	require.Contains(t, out, "CATEGORIES:")
	require.Contains(t, out, "HOT:")
	require.Contains(t, out, "STATS:")
}

func TestFormatScanListsCategories(t *testing.T) {
	out := briefing.Format(sample(), briefing.Options{
		Query: "auth cache", RawCount: 6, Primary: []string{"auth", "cache"}, Detail: briefing.DetailScan,
	})

	require.Contains(t, out, "--- DECISIONS")
	require.Contains(t, out, "--- ARCHITECTURE")
	require.Contains(t, out, "--- GOTCHAS")
	require.Contains(t, out, "--- UNTAGGED")
}

func TestFormatFullIncludesGraphForMultiTopicQuery(t *testing.T) {
	entries := []compress.Compressed{
		{Topic: "auth", Body: "auth talks to cache for session lookup", Tags: []string{"architecture"}, Date: "2026-07-01 10:00"},
		{Topic: "cache", Body: "cache serves auth session reads", Tags: []string{"architecture"}, Date: "2026-07-01 10:00"},
	}

	out := briefing.Format(entries, briefing.Options{
		Query: "auth cache", RawCount: 2, Primary: []string{"auth", "cache"}, Detail: briefing.DetailFull,
	})

	require.Contains(t, out, "GRAPH:")
}

func TestParseDetailDefaultsToSummary(t *testing.T) {
	require.Equal(t, briefing.DetailSummary, briefing.ParseDetail(""))
	require.Equal(t, briefing.DetailSummary, briefing.ParseDetail("bogus"))
	require.Equal(t, briefing.DetailScan, briefing.ParseDetail("scan"))
	require.Equal(t, briefing.DetailFull, briefing.ParseDetail("full"))
}

func TestFormatReductionStatIsComputed(t *testing.T) {
	out := briefing.Format(sample(), briefing.Options{
		Query: "auth", RawCount: 8, Primary: []string{"auth"}, Detail: briefing.DetailSummary,
	})

	require.True(t, strings.Contains(out, "% reduction"))
}
