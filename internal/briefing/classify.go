// Package briefing implements the three-tier LLM-facing briefing formatter
// (spec.md §3 component C5b): Summary (~15 lines), Scan (~50 lines), and
// Full (complete). Grounded on original_source/src/briefing.rs, ported
// pass-for-pass: classification feeds all three tiers identically, only
// the per-category rendering budget changes between tiers.
package briefing

import (
	"sort"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/compress"
)

// category is one static classification bucket: a display name plus the
// tags/keywords that route an entry into it.
type category struct {
	name     string
	patterns []string
}

// categories are tried in order; an entry lands in the first one it
// matches by tag, keyword, or content prefix.
var categories = []category{
	{"ARCHITECTURE", []string{"architecture", "module-map", "overview", "dependency-graph"}},
	{"DATA FLOW", []string{"pipeline", "data-flow"}},
	{"INVARIANTS", []string{"invariant", "constraint", "limit"}},
	{"CHANGE IMPACT", []string{"change-impact"}},
	{"GOTCHAS", []string{"gotcha", "tf-mismatch", "timestamp-loss"}},
	{"DECISIONS", []string{"decision"}},
	{"HOW-TO", []string{"how-to", "workflow", "add-tool"}},
	{"SCORING & SEARCH", []string{"bm25", "scoring", "algorithm", "query-parsing"}},
	{"DATA FORMAT", []string{"dataformat", "binary-format", "data-log", "index-bin"}},
	{"PERFORMANCE", []string{"performance", "slow-path", "zero-alloc", "data-structure"}},
	{"API SURFACE", []string{"api-surface", "tool", "schema", "mcp-api", "variant"}},
	{"GAPS", []string{"gap", "missing"}},
}

// contentPrefixes catches entries with the right structure but no tags, by
// matching their opening line.
var contentPrefixes = map[string][]string{
	"DATA FLOW":    {"flow:", "data flow:"},
	"INVARIANTS":   {"security:", "invariant:"},
	"GOTCHAS":      {"deploy gotcha:"},
	"DECISIONS":    {"design:", "architectural decision:"},
	"GAPS":         {"friction", "gap:", "todo:", "missing:"},
	"HOW-TO":       {"shipped", "impl spec:", "impl:"},
	"PERFORMANCE":  {"perf:", "benchmark:"},
}

// CoreTags are the tags writeGaps checks every well-populated topic for.
var CoreTags = []string{"architecture", "data-flow", "invariant", "change-impact"}

// group is one classified bucket of entry indices, named either statically
// (a category) or dynamically (an unclaimed, frequent tag).
type group struct {
	name    string
	indices []int
}

// classification is the full routing of one entry set into structural,
// static-category, dynamic-category, and untagged buckets.
type classification struct {
	structural []int
	categories []group
	dynamic    []group
	untagged   []int
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}

	return false
}

func hasAnyTag(tags []string, wanted []string) bool {
	for _, t := range tags {
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}

	return false
}

// classify routes every entry into exactly one bucket (spec.md §6's
// two-step classification: static categories first, then dynamic tags,
// then untagged). raw-data entries carrying a structural/coupling/callgraph
// tag are pulled out first into their own bucket.
func classify(entries []compress.Compressed) classification {
	fcLower := make([]string, len(entries))
	for i, e := range entries {
		fcLower[i] = strings.ToLower(firstContent(e.Body))
	}

	assigned := make([]bool, len(entries))

	var structural []int

	for i, e := range entries {
		if hasTag(e.Tags, "raw-data") && hasAnyTag(e.Tags, []string{"structural", "coupling", "callgraph"}) {
			structural = append(structural, i)
			assigned[i] = true
		}
	}

	var cats []group

	for _, cat := range categories {
		var members []int

		prefixes := contentPrefixes[cat.name]

		for i, e := range entries {
			if assigned[i] || hasTag(e.Tags, "raw-data") {
				continue
			}

			tagMatch := hasAnyTag(e.Tags, cat.patterns)

			keywordMatch := false

			for _, p := range cat.patterns {
				if strings.Contains(fcLower[i], p) {
					keywordMatch = true

					break
				}
			}

			prefixMatch := false

			for _, p := range prefixes {
				if strings.HasPrefix(fcLower[i], p) {
					prefixMatch = true

					break
				}
			}

			if tagMatch || keywordMatch || prefixMatch {
				members = append(members, i)
				assigned[i] = true
			}
		}

		if len(members) > 0 {
			cats = append(cats, group{name: cat.name, indices: members})
		}
	}

	staticTags := make(map[string]bool)

	for _, cat := range categories {
		for _, p := range cat.patterns {
			staticTags[p] = true
		}
	}

	tagFreq := make(map[string][]int)

	for i, e := range entries {
		if assigned[i] || hasTag(e.Tags, "raw-data") {
			continue
		}

		for _, t := range e.Tags {
			if !staticTags[t] {
				tagFreq[t] = append(tagFreq[t], i)
			}
		}
	}

	type rawDyn struct {
		tag     string
		indices []int
	}

	tags := make([]string, 0, len(tagFreq))
	for t := range tagFreq {
		tags = append(tags, t)
	}

	sort.Strings(tags)

	var rawDynamic []rawDyn

	for _, tag := range tags {
		if indices := tagFreq[tag]; len(indices) >= 3 {
			rawDynamic = append(rawDynamic, rawDyn{tag: tag, indices: indices})
		}
	}

	sort.SliceStable(rawDynamic, func(i, j int) bool {
		return len(rawDynamic[i].indices) > len(rawDynamic[j].indices)
	})

	if len(rawDynamic) > 5 {
		rawDynamic = rawDynamic[:5]
	}

	var dynamic []group

	for _, rd := range rawDynamic {
		var clean []int

		for _, i := range rd.indices {
			if !assigned[i] {
				clean = append(clean, i)
			}
		}

		if len(clean) == 0 {
			continue
		}

		for _, i := range clean {
			assigned[i] = true
		}

		dynamic = append(dynamic, group{name: rd.tag, indices: clean})
	}

	var untagged []int

	for i, e := range entries {
		if !assigned[i] && !hasTag(e.Tags, "raw-data") {
			untagged = append(untagged, i)
		}
	}

	return classification{
		structural: structural,
		categories: cats,
		dynamic:    dynamic,
		untagged:   untagged,
	}
}

func firstContent(body string) string {
	for _, line := range strings.Split(body, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || isMetadataLine(t) {
			continue
		}

		return line
	}

	return ""
}

func isMetadataLine(s string) bool {
	return strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")
}
