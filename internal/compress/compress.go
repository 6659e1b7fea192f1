// Package compress implements the five-pass compression pipeline (spec.md
// §3 component C5a): initial enrichment, cross-topic dedup, supersession, three-stage temporal
// chaining, and a final relevance-descending sort. Grounded on
// original_source/src/compress.rs; ported pass-for-pass rather than
// restructured, since the pass order and thresholds are load-bearing
// invariants (I-CMP-1 through I-CMP-4 in spec.md §9).
package compress

import (
	"sort"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/clock"
	"github.com/amaranth-kb/amaranth/internal/corpus"
	"github.com/amaranth-kb/amaranth/internal/tokenize"
)

// RawEntry is one relevance-scored entry handed to the compressor by the
// orchestrator (spec.md §9, component C5a's upstream collaborator is the
// relevance engine, not the corpus cache directly).
type RawEntry struct {
	Topic        string
	Body         string
	TimestampMin int32
	DaysOld      int64
	Tags         []string
	Relevance    float64
	Confidence   float64
	LinkIn       uint16
}

// Compressed is one compressed fact ready for the briefing formatter.
type Compressed struct {
	Topic      string
	Body       string
	Date       string
	DaysOld    int64
	Tags       []string
	Relevance  float64
	Source     string
	HasSource  bool
	Chain      string
	HasChain   bool
	AlsoIn     []string
	Confidence float64
	LinkIn     uint16
}

// Compress runs all five passes (enrichment, dedup, supersession, temporal
// chaining, sort) and returns compressed entries sorted by descending
// relevance.
func Compress(raw []RawEntry) []Compressed {
	out := make([]*Compressed, 0, len(raw))

	for _, e := range raw {
		source, hasSource := extractSource(e.Body)
		out = append(out, &Compressed{
			Topic:        e.Topic,
			Body:         e.Body,
			Date:         clock.MinutesToDate(e.TimestampMin),
			DaysOld:      e.DaysOld,
			Tags:         e.Tags,
			Relevance:    e.Relevance,
			Source:       source,
			HasSource:    hasSource,
			Confidence:   e.Confidence,
			LinkIn:       e.LinkIn,
		})
	}

	out = dedup(out)

	tokens := make([]map[string]struct{}, len(out))
	for i, e := range out {
		tokens[i] = contentTokens(e.Body)
	}

	removed := make(map[int]bool)
	supersede(out, tokens)
	temporalChains(out, tokens, removed)

	final := make([]*Compressed, 0, len(out))

	for i, e := range out {
		if !removed[i] {
			final = append(final, e)
		}
	}

	sort.SliceStable(final, func(i, j int) bool {
		return final[i].Relevance > final[j].Relevance
	})

	result := make([]Compressed, len(final))
	for i, e := range final {
		result[i] = *e
	}

	return result
}

// contentTokens lowercases and tokenizes first_content on whitespace,
// keeping words of 3+ runes, for Jaccard-similarity passes.
func contentTokens(body string) map[string]struct{} {
	fc := corpus.FirstContent(body)
	set := make(map[string]struct{})

	for _, w := range strings.Fields(fc) {
		w = strings.ToLower(w)
		if len([]rune(w)) >= 3 {
			set[w] = struct{}{}
		}
	}

	return set
}

func jaccardPct(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	isect := 0

	for t := range a {
		if _, ok := b[t]; ok {
			isect++
		}
	}

	union := len(a) + len(b) - isect
	if union == 0 {
		return 0
	}

	return isect * 100 / union
}

// extractSource extracts "[source: path]" from body, matching
// corpus's metadata parsing (kept local to avoid coupling the compressor
// to the cache's Entry type).
func extractSource(body string) (string, bool) {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "[source: ") && strings.HasSuffix(line, "]") {
			return strings.TrimSpace(line[len("[source: ") : len(line)-1]), true
		}
	}

	return "", false
}

// dedup merges entries sharing an identical (10+ char) first-content line
// across two or more distinct topics: the highest-relevance entry survives,
// the rest are recorded in its AlsoIn and dropped.
func dedup(entries []*Compressed) []*Compressed {
	groups := make(map[string][]int)

	for i, e := range entries {
		key := strings.ToLower(corpus.FirstContent(e.Body))
		if len(key) >= 10 {
			groups[key] = append(groups[key], i)
		}
	}

	remove := make(map[int]bool)

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, key := range keys {
		indices := groups[key]
		if len(indices) < 2 {
			continue
		}

		allSameTopic := true

		for i := 1; i < len(indices); i++ {
			if entries[indices[i]].Topic != entries[indices[0]].Topic {
				allSameTopic = false

				break
			}
		}

		if allSameTopic {
			continue
		}

		best := indices[0]
		for _, i := range indices[1:] {
			if entries[i].Relevance > entries[best].Relevance {
				best = i
			}
		}

		for _, i := range indices {
			if i == best || entries[i].Topic == entries[best].Topic {
				continue
			}

			entries[best].AlsoIn = append(entries[best].AlsoIn, entries[i].Topic)
			remove[i] = true
		}
	}

	if len(remove) == 0 {
		return entries
	}

	out := make([]*Compressed, 0, len(entries)-len(remove))

	for i, e := range entries {
		if !remove[i] {
			out = append(out, e)
		}
	}

	return out
}

// supersede dims (halves the relevance of) older entries in the same topic
// whose first-content Jaccard similarity to a newer entry is ≥60% and whose
// age gap is ≥2 days (spec.md §9, I-CMP-2).
func supersede(entries []*Compressed, tokens []map[string]struct{}) {
	byTopic := make(map[string][]int)
	for i, e := range entries {
		byTopic[e.Topic] = append(byTopic[e.Topic], i)
	}

	topics := make([]string, 0, len(byTopic))
	for t := range byTopic {
		topics = append(topics, t)
	}

	sort.Strings(topics)

	supersededBy := make(map[int]int)

	for _, topic := range topics {
		indices := byTopic[topic]

		for a, i := range indices {
			if len(tokens[i]) < 3 {
				continue
			}

			if _, ok := supersededBy[i]; ok {
				continue
			}

			for _, j := range indices[a+1:] {
				if len(tokens[j]) < 3 {
					continue
				}

				if _, ok := supersededBy[j]; ok {
					continue
				}

				if jaccardPct(tokens[i], tokens[j]) < 60 {
					continue
				}

				gap := entries[i].DaysOld - entries[j].DaysOld
				if gap < 0 {
					gap = -gap
				}

				if gap < 2 {
					continue
				}

				if entries[i].DaysOld > entries[j].DaysOld {
					supersededBy[i] = j
				} else {
					supersededBy[j] = i
				}
			}
		}
	}

	dimmed := make([]int, 0, len(supersededBy))
	for i := range supersededBy {
		dimmed = append(dimmed, i)
	}

	sort.Ints(dimmed)

	for _, i := range dimmed {
		newer := supersededBy[i]
		entries[i].Relevance *= 0.5
		preview := tokenize.Truncate(corpus.FirstContent(entries[newer].Body), 50)
		entries[i].Chain = "superseded by: " + preview
		entries[i].HasChain = true
	}
}
