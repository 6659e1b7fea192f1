// Package score implements the full-corpus-scan BM25 fallback path
// (component C4's degraded path, used when a tag filter is active or the
// binary index can't serve a query) and the unified search dispatcher.
// Grounded on original_source/src/score.rs: this is a DIFFERENT BM25
// formula than internal/bm25idx's index-query path (spec.md §4.4 is
// authoritative only for the index path) — classic Okapi BM25 with
// BM25_K1/BM25_B, applied here because a full scan has no precomputed
// per-entry length-normalization constant to reuse.
package score

import (
	"math"
	"sort"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/bm25idx"
	"github.com/amaranth-kb/amaranth/internal/clock"
	"github.com/amaranth-kb/amaranth/internal/corpus"
)

// BM25K1 and BM25B are the classic Okapi BM25 tuning constants used by the
// corpus-scan path.
const (
	BM25K1 = 1.2
	BM25B  = 0.75
)

// Filter narrows the corpus-scan path by date range, tag, and topic (spec.md
// §4.4's filter surface). A tag filter forces the scan path: tags live in
// entry body text, not in the binary index (spec.md §9).
type Filter struct {
	After, Before     int64
	HasAfter, HasBefore bool
	Tag               string
	HasTag            bool
	Topic             string
	HasTopic          bool
	Mode              bm25idx.Mode
}

// IsActive reports whether any filter field is set.
func (f Filter) IsActive() bool {
	return f.HasAfter || f.HasBefore || f.HasTag || f.HasTopic
}

// Result is one scored full-scan hit.
type Result struct {
	Entry *corpus.Entry
	Score float64
}

// PassesFilter reports whether entry e satisfies f's date and tag
// constraints (topic is checked by the caller, which already scopes the
// corpus by topic before scanning — matching load_corpus's early-continue).
func PassesFilter(e *corpus.Entry, f Filter) bool {
	if f.HasAfter || f.HasBefore {
		days := clock.DaysSinceEpoch(e.TimestampMin)
		if f.HasAfter && days < f.After {
			return false
		}

		if f.HasBefore && days > f.Before {
			return false
		}
	}

	if f.HasTag && !e.HasTag(strings.ToLower(f.Tag)) {
		return false
	}

	return true
}

// MatchesTokens reports whether entry's term frequencies satisfy terms
// under mode (AND requires every term present, OR requires at least one).
func MatchesTokens(tfMap map[string]int, terms []string, mode bm25idx.Mode) bool {
	if len(terms) == 0 {
		return true
	}

	if mode == bm25idx.ModeOr {
		for _, t := range terms {
			if tfMap[t] > 0 {
				return true
			}
		}

		return false
	}

	for _, t := range terms {
		if tfMap[t] == 0 {
			return false
		}
	}

	return true
}

// ScoreCorpus scores entries against terms in mode, falling back to OR when
// AND yields nothing for a 2+ term query (spec.md §4.4's AND-OR-fallback
// rule, mirrored from the index path). Returns results and whether a
// fallback occurred.
func ScoreCorpus(entries []*corpus.Entry, terms []string, mode bm25idx.Mode) ([]Result, bool) {
	n := float64(len(entries))

	var totalWords int64
	for _, e := range entries {
		totalWords += int64(e.WordCount)
	}

	avgdl := 1.0
	if len(entries) > 0 {
		avgdl = float64(totalWords) / n
	}

	dfs := make([]float64, len(terms))

	for i, t := range terms {
		for _, e := range entries {
			if e.TFMap[t] > 0 {
				dfs[i]++
			}
		}
	}

	results := scoreMode(entries, terms, mode, n, avgdl, dfs)

	fallback := false

	if len(results) == 0 && mode == bm25idx.ModeAnd && len(terms) >= 2 {
		results = scoreMode(entries, terms, bm25idx.ModeOr, n, avgdl, dfs)
		fallback = len(results) > 0
	}

	if len(terms) > 0 {
		sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	}

	return results, fallback
}

func scoreMode(entries []*corpus.Entry, terms []string, mode bm25idx.Mode, n, avgdl float64, dfs []float64) []Result {
	var out []Result

	for _, e := range entries {
		if !MatchesTokens(e.TFMap, terms, mode) {
			continue
		}

		lenNorm := (1.0 - BM25B) + BM25B*float64(e.WordCount)/maxFloat(avgdl, 1.0)

		var total float64

		for i, term := range terms {
			tf := float64(e.TFMap[term])
			if tf == 0 {
				continue
			}

			df := dfs[i]
			idf := math.Log((n-df+0.5)/(df+0.5) + 1.0)
			total += idf * (tf * (BM25K1 + 1.0)) / (tf + BM25K1*lenNorm)
		}

		if total == 0 {
			continue
		}

		topicLower := strings.ToLower(e.Topic)
		for _, t := range terms {
			if strings.Contains(topicLower, t) {
				total *= 1.5

				break
			}
		}

		if len(e.Tags) > 0 {
			tagJoined := strings.ToLower(strings.Join(e.Tags, ","))

			hits := 0

			for _, t := range terms {
				if strings.Contains(tagJoined, t) {
					hits++
				}
			}

			if hits > 0 {
				total *= 1.0 + 0.3*float64(hits)
			}
		}

		out = append(out, Result{Entry: e, Score: total})
	}

	return out
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}

	return b
}

// CollectAllTags returns every distinct tag in entries with its occurrence
// count, sorted by descending frequency (used for no-match tag
// suggestions).
func CollectAllTags(entries []*corpus.Entry) []TagCount {
	counts := make(map[string]int)

	for _, e := range entries {
		for _, t := range e.Tags {
			counts[t]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TagCount{Tag: t, Count: c})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Tag < out[j].Tag
	})

	return out
}

// TagCount is one tag's occurrence count across the corpus.
type TagCount struct {
	Tag   string
	Count int
}
