package briefing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/compress"
	"github.com/amaranth-kb/amaranth/internal/tokenize"
)

type topicInfo struct {
	count  int
	newest int64
}

func collectTopicInfo(entries []compress.Compressed) map[string]*topicInfo {
	info := make(map[string]*topicInfo)

	for _, e := range entries {
		ti, ok := info[e.Topic]
		if !ok {
			ti = &topicInfo{newest: 1 << 62}
			info[e.Topic] = ti
		}

		ti.count++
		if e.DaysOld < ti.newest {
			ti.newest = e.DaysOld
		}
	}

	return info
}

// writeTopics and writeTopicsBrief render the same "TOPICS: a (3, today) b
// (1, week)" line; both tiers use an identical rendering in the original
// (original_source/src/briefing.rs defines them separately for call-site
// clarity, but the bodies are byte-identical).
func writeTopics(out *strings.Builder, entries []compress.Compressed, primary []string) {
	writeTopicsBrief(out, entries, primary)
}

func writeTopicsBrief(out *strings.Builder, entries []compress.Compressed, primary []string) {
	info := collectTopicInfo(entries)

	out.WriteString("TOPICS:")

	for _, t := range primary {
		if ti, ok := info[t]; ok {
			fmt.Fprintf(out, " %s (%d%s)", t, ti.count, freshnessShort(ti.newest))
		}
	}

	out.WriteString("\n\n")
}

// writeGraph renders the cross-topic link-density edges when the query
// named 2+ topics (spec.md §6's GRAPH section).
func writeGraph(out *strings.Builder, entries []compress.Compressed, primary []string) {
	if len(primary) < 2 {
		return
	}

	byTopic := make(map[string][]*compress.Compressed)
	topicTags := make(map[string]map[string]int)

	primarySet := make(map[string]bool, len(primary))
	for _, p := range primary {
		primarySet[p] = true
	}

	for i := range entries {
		e := &entries[i]
		if !primarySet[e.Topic] {
			continue
		}

		byTopic[e.Topic] = append(byTopic[e.Topic], e)

		counts, ok := topicTags[e.Topic]
		if !ok {
			counts = make(map[string]int)
			topicTags[e.Topic] = counts
		}

		for _, t := range e.Tags {
			counts[t]++
		}
	}

	type edge struct {
		src, tgt string
		refs     int
		edgeType string
	}

	var edges []edge

	for _, src := range primary {
		srcEntries, ok := byTopic[src]
		if !ok {
			continue
		}

		for _, tgt := range primary {
			if src == tgt {
				continue
			}

			refs := 0
			for _, e := range srcEntries {
				refs += countCI(e.Body, tgt)
			}

			if refs == 0 {
				continue
			}

			edgeType := bestSharedTag(topicTags[src], topicTags[tgt])
			edges = append(edges, edge{src: src, tgt: tgt, refs: refs, edgeType: edgeType})
		}
	}

	sort.SliceStable(edges, func(i, j int) bool { return edges[i].refs > edges[j].refs })

	if len(edges) == 0 {
		return
	}

	out.WriteString("GRAPH:")

	for _, e := range edges[:minInt(6, len(edges))] {
		if e.edgeType == "" {
			fmt.Fprintf(out, " %s → %s (%d)", e.src, e.tgt, e.refs)
		} else {
			fmt.Fprintf(out, " %s →[%s] %s (%d)", e.src, e.edgeType, e.tgt, e.refs)
		}
	}

	out.WriteString("\n\n")
}

func bestSharedTag(src, tgt map[string]int) string {
	if src == nil || tgt == nil {
		return ""
	}

	best := ""
	bestScore := -1

	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		if _, ok := tgt[k]; !ok {
			continue
		}

		boost := 0
		if isCoreTag(k) {
			boost = 100
		}

		score := src[k] + tgt[k] + boost
		if score > bestScore {
			bestScore = score
			best = k
		}
	}

	return best
}

func isCoreTag(tag string) bool {
	for _, c := range CoreTags {
		if c == tag {
			return true
		}
	}

	return false
}

// writeGaps suggests `store` invocations for well-populated topics missing
// a core tag (spec.md §6's GAPS section, a supplemented feature).
func writeGaps(out *strings.Builder, entries []compress.Compressed, primary []string) {
	var suggestions []string

	for _, topic := range primary {
		count := 0

		topicTags := make(map[string]bool)

		for _, e := range entries {
			if e.Topic != topic {
				continue
			}

			count++

			for _, t := range e.Tags {
				topicTags[t] = true
			}
		}

		if count < 10 {
			continue
		}

		for _, core := range CoreTags {
			if !topicTags[core] {
				suggestions = append(suggestions, fmt.Sprintf(
					`  store topic="%s" tags="%s" text="TODO: %s for %s"`,
					topic, core, core, topic))
			}
		}
	}

	if len(suggestions) == 0 {
		return
	}

	fmt.Fprintf(out, "\nGAPS (%d missing core tags):\n", len(suggestions))

	for _, s := range suggestions {
		out.WriteString(s)
		out.WriteString("\n")
	}
}

func writeStatsLine(out *strings.Builder, entries []compress.Compressed, rawCount int, blankBefore bool) {
	tagged, sourced, chained := 0, 0, 0

	for _, e := range entries {
		if len(e.Tags) > 0 {
			tagged++
		}

		if e.HasSource {
			sourced++
		}

		if e.HasChain {
			chained++
		}
	}

	pct := 0
	if rawCount > 0 {
		pct = 100 - (len(entries)*100)/rawCount
	}

	if blankBefore {
		fmt.Fprintf(out, "\nSTATS: %d compressed (%d%% reduction) | detail='scan' for categories, 'full' for everything\n",
			len(entries), pct)

		return
	}

	fmt.Fprintf(out, "\nSTATS: %d entries, %d tagged, %d sourced, %d chained | compressed %d→%d (%d%% reduction)\n",
		len(entries), tagged, sourced, chained, rawCount, len(entries), pct)
}

func formatEntryN(out *strings.Builder, e *compress.Compressed, maxLines int) {
	src := ""
	if e.HasSource {
		src = " → " + e.Source
	}

	also := formatAlso(e.AlsoIn)

	chainNote := ""

	switch {
	case e.HasChain && strings.HasPrefix(e.Chain, "superseded"):
		chainNote = " [SUPERSEDED]"
	case e.HasChain:
		chainNote = " (chained)"
	}

	refs := ""
	if e.LinkIn >= 2 {
		refs = fmt.Sprintf(" (%d refs)", e.LinkIn)
	}

	fmt.Fprintf(out, "[%s] %s%s%s%s%s%s\n", e.Topic, e.Date, freshnessTag(e.DaysOld), src, also, chainNote, refs)

	if e.HasChain {
		fmt.Fprintf(out, "  %s\n", tokenize.Truncate(e.Chain, 120))
	}

	var lines []string

	for _, l := range strings.Split(e.Body, "\n") {
		if !isMetadataLine(strings.TrimSpace(l)) {
			lines = append(lines, l)
		}
	}

	for _, l := range lines[:minInt(maxLines, len(lines))] {
		fmt.Fprintf(out, "  %s\n", strings.TrimSpace(l))
	}

	if len(lines) > maxLines {
		fmt.Fprintf(out, "  ...(%d more lines)\n", len(lines)-maxLines)
	}

	out.WriteString("\n")
}

func formatOneliner(out *strings.Builder, e *compress.Compressed) {
	fc := tokenize.Truncate(firstContent(e.Body), 80)

	src := ""
	if e.HasSource {
		src = " → " + e.Source
	}

	also := formatAlso(e.AlsoIn)

	chain := ""

	switch {
	case e.HasChain && strings.HasPrefix(e.Chain, "superseded"):
		chain = " [SUPERSEDED]"
	case e.HasChain:
		chain = fmt.Sprintf(" (%s)", tokenize.Truncate(e.Chain, 40))
	}

	refs := ""
	if e.LinkIn >= 2 {
		refs = fmt.Sprintf(" (%d refs)", e.LinkIn)
	}

	fmt.Fprintf(out, "  [%s] %s%s%s%s%s%s\n", e.Topic, fc, src, also, chain, freshnessTag(e.DaysOld), refs)
}

func formatAlso(topics []string) string {
	if len(topics) == 0 {
		return ""
	}

	deduped := make(map[string]bool)

	var uniq []string

	for _, t := range topics {
		if !deduped[t] {
			deduped[t] = true

			uniq = append(uniq, t)
		}
	}

	sort.Strings(uniq)

	items := uniq[:minInt(3, len(uniq))]

	extra := ""
	if len(uniq) > 3 {
		extra = fmt.Sprintf("+%d", len(uniq)-3)
	}

	return fmt.Sprintf(" [also: %s%s]", strings.Join(items, ", "), extra)
}

func freshnessTag(days int64) string {
	switch {
	case days == 0:
		return " [TODAY]"
	case days == 1:
		return " [1d]"
	case days >= 2 && days <= 7:
		return " [week]"
	default:
		return ""
	}
}

func freshnessShort(days int64) string {
	switch {
	case days == 0:
		return ", today"
	case days == 1:
		return ", 1d"
	case days >= 2 && days <= 7:
		return ", week"
	default:
		return ""
	}
}

// countCI counts case-insensitive occurrences of needle in haystack,
// matching original_source/src/briefing.rs's count_ci (a byte-window scan,
// since topic names are ASCII). The window advances one byte at a time, so
// overlapping occurrences are each counted.
func countCI(haystack, needle string) int {
	if needle == "" || len(needle) > len(haystack) {
		return 0
	}

	h := strings.ToLower(haystack)
	n := strings.ToLower(needle)
	count := 0

	for i := 0; i+len(n) <= len(h); i++ {
		if h[i:i+len(n)] == n {
			count++
		}
	}

	return count
}
