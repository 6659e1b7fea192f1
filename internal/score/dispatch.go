package score

import (
	"sort"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/bm25idx"
	"github.com/amaranth-kb/amaranth/internal/corpus"
	"github.com/amaranth-kb/amaranth/internal/fs"
)

// SearchScored is the unified search dispatcher named in SPEC_FULL.md's
// module map: it tries the binary index first and falls back to a full
// corpus scan, mirroring original_source/src/score.rs's
// search_scored/score_via_index split. A tag filter always takes the
// corpus-scan path — tags live in entry body text, not in the index
// (spec.md §4.4's "Filtered search" note). Returns results, whether an
// AND-to-OR fallback occurred, whether the index itself was unusable
// (missing, corrupt, or stale relative to the corpus — not a hard error,
// but worth surfacing to the caller so a stale index.bin doesn't go
// unnoticed), and any hard error.
func SearchScored(fsys fs.FS, indexPath string, entries []*corpus.Entry, terms []string, filter Filter, limit int, scratch *bm25idx.Scratch) (results []Result, fallback, indexUnusable bool, err error) {
	scoped := scopeByTopic(entries, filter)

	if filter.HasTag || len(terms) == 0 {
		results, fallback = ScoreCorpus(scoped, terms, filter.Mode)
		return results, fallback, false, nil
	}

	data, err := fsys.ReadFile(indexPath)
	if err != nil {
		results, fallback = ScoreCorpus(scoped, terms, filter.Mode)
		return results, fallback, true, nil
	}

	ix, err := bm25idx.Open(data)
	if err != nil || ix.NumEntries() != len(entries) {
		results, fallback = ScoreCorpus(scoped, terms, filter.Mode)
		return results, fallback, true, nil
	}

	indexLimit := limit
	if indexLimit < 100 {
		indexLimit = 100
	}

	hits := ix.Search(terms, filter.Mode, indexLimit, scratch)

	if len(hits) == 0 {
		if filter.Mode == bm25idx.ModeAnd && len(terms) >= 2 {
			orResults, _ := ScoreCorpus(scoped, terms, bm25idx.ModeOr)
			if len(orResults) > 0 {
				return orResults, true, false, nil
			}
		}

		return nil, false, false, nil
	}

	if filter.Mode == bm25idx.ModeAnd && len(terms) >= 2 {
		for _, h := range hits {
			if h.Matched < len(terms) {
				fallback = true

				break
			}
		}
	}

	results = resultsFromHits(entries, hits, terms, filter)

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	return results, fallback, false, nil
}

func resultsFromHits(entries []*corpus.Entry, hits []bm25idx.Hit, terms []string, filter Filter) []Result {
	out := make([]Result, 0, len(hits))

	for _, h := range hits {
		if int(h.EntryID) >= len(entries) {
			continue
		}

		e := entries[h.EntryID]

		if filter.HasTopic && e.Topic != filter.Topic {
			continue
		}

		if !PassesFilter(e, filter) {
			continue
		}

		out = append(out, Result{Entry: e, Score: applyBoosts(h.Score, e, terms)})
	}

	return out
}

func applyBoosts(score float64, e *corpus.Entry, terms []string) float64 {
	topicLower := strings.ToLower(e.Topic)
	for _, t := range terms {
		if strings.Contains(topicLower, t) {
			score *= 1.5

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
			score *= 1.0 + 0.3*float64(hits)
		}
	}

	return score
}

func scopeByTopic(entries []*corpus.Entry, filter Filter) []*corpus.Entry {
	if !filter.HasTopic {
		return entries
	}

	out := make([]*corpus.Entry, 0, len(entries))

	for _, e := range entries {
		if e.Topic == filter.Topic {
			out = append(out, e)
		}
	}

	return out
}
