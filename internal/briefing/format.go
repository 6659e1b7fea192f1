package briefing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/compress"
	"github.com/amaranth-kb/amaranth/internal/tokenize"
)

// Detail selects which of the three rendering tiers [Format] produces.
type Detail int

const (
	DetailSummary Detail = iota
	DetailScan
	DetailFull
)

// ParseDetail maps a CLI/API detail string to a Detail, defaulting to
// Summary for anything unrecognized (spec.md §6).
func ParseDetail(s string) Detail {
	switch s {
	case "scan":
		return DetailScan
	case "full":
		return DetailFull
	default:
		return DetailSummary
	}
}

// Options carries the parameters Format needs beyond the compressed
// entries themselves.
type Options struct {
	Query      string
	RawCount   int
	Primary    []string // topics named explicitly in the query, in order
	Detail     Detail
	SinceHours int
	HasSince   bool
}

// Format renders entries at the requested detail tier.
func Format(entries []compress.Compressed, opts Options) string {
	switch opts.Detail {
	case DetailScan:
		return formatScan(entries, opts)
	case DetailFull:
		return formatFull(entries, opts)
	default:
		return formatSummary(entries, opts)
	}
}

func writeHeader(out *strings.Builder, entries []compress.Compressed, opts Options) {
	sinceNote := ""
	if opts.HasSince {
		sinceNote = fmt.Sprintf(" (since %dh)", opts.SinceHours)
	}

	nTopics := countTopics(entries)

	fmt.Fprintf(out, "=== %s%s === %d entries → %d compressed, %d topics\n\n",
		strings.ToUpper(opts.Query), sinceNote, opts.RawCount, len(entries), nTopics)
}

func countTopics(entries []compress.Compressed) int {
	seen := make(map[string]bool)
	for _, e := range entries {
		seen[e.Topic] = true
	}

	return len(seen)
}

// formatSummary is tier 1 (~15 lines): header, topics, category counts,
// top-5 hot one-liners, gaps, stats.
func formatSummary(entries []compress.Compressed, opts Options) string {
	cls := classify(entries)

	var out strings.Builder

	writeHeader(&out, entries, opts)
	writeTopicsBrief(&out, entries, opts.Primary)

	out.WriteString("CATEGORIES:")

	first := len(cls.structural) == 0
	if !first {
		fmt.Fprintf(&out, " STRUCTURAL %d", len(cls.structural))
	}

	for _, g := range cls.categories {
		sep := ""
		if !first {
			sep = " |"
		}

		first = false

		fmt.Fprintf(&out, "%s %s %d", sep, g.name, len(g.indices))
	}

	for _, g := range cls.dynamic {
		fmt.Fprintf(&out, " | %s %d", strings.ToUpper(g.name), len(g.indices))
	}

	if len(cls.untagged) > 0 {
		fmt.Fprintf(&out, " | UNTAGGED %d", len(cls.untagged))
	}

	out.WriteString("\n\n")

	hot := rankByRelevance(entries)

	out.WriteString("HOT:\n")

	for _, i := range hot[:minInt(5, len(hot))] {
		formatOneliner(&out, &entries[i])
	}

	writeGaps(&out, entries, opts.Primary)
	writeStatsLine(&out, entries, opts.RawCount, true)

	return out.String()
}

// formatScan is tier 2 (~50 lines): header, topics, every category with up
// to 3 one-liners each, stats.
func formatScan(entries []compress.Compressed, opts Options) string {
	cls := classify(entries)

	var out strings.Builder

	writeHeader(&out, entries, opts)
	writeTopicsBrief(&out, entries, opts.Primary)

	if len(cls.structural) > 0 {
		fmt.Fprintf(&out, "--- STRUCTURAL (%d) ---\n", len(cls.structural))

		for _, i := range cls.structural[:minInt(5, len(cls.structural))] {
			formatOneliner(&out, &entries[i])
		}

		if len(cls.structural) > 5 {
			fmt.Fprintf(&out, "  ... +%d more\n", len(cls.structural)-5)
		}

		out.WriteString("\n")
	}

	for _, g := range cls.categories {
		fmt.Fprintf(&out, "--- %s (%d) ---\n", g.name, len(g.indices))

		for _, i := range g.indices[:minInt(3, len(g.indices))] {
			formatOneliner(&out, &entries[i])
		}

		if len(g.indices) > 3 {
			fmt.Fprintf(&out, "  ... +%d more\n", len(g.indices)-3)
		}

		out.WriteString("\n")
	}

	for _, g := range cls.dynamic {
		fmt.Fprintf(&out, "--- %s (%d) ---\n", strings.ToUpper(g.name), len(g.indices))

		for _, i := range g.indices[:minInt(3, len(g.indices))] {
			formatOneliner(&out, &entries[i])
		}

		if len(g.indices) > 3 {
			fmt.Fprintf(&out, "  ... +%d more\n", len(g.indices)-3)
		}

		out.WriteString("\n")
	}

	if len(cls.untagged) > 0 {
		fmt.Fprintf(&out, "--- UNTAGGED (%d) ---\n", len(cls.untagged))

		for _, i := range cls.untagged[:minInt(3, len(cls.untagged))] {
			formatOneliner(&out, &entries[i])
		}

		if len(cls.untagged) > 3 {
			fmt.Fprintf(&out, "  ... +%d more\n", len(cls.untagged)-3)
		}

		out.WriteString("\n")
	}

	writeStatsLine(&out, entries, opts.RawCount, false)

	return out.String()
}

// formatFull is tier 3: header, topics, topic-link graph, structural
// summaries, full-bodied categories, dynamic categories, budgeted untagged
// entries, gaps, stats.
func formatFull(entries []compress.Compressed, opts Options) string {
	cls := classify(entries)

	var out strings.Builder

	writeHeader(&out, entries, opts)
	writeTopics(&out, entries, opts.Primary)
	writeGraph(&out, entries, opts.Primary)

	if len(cls.structural) > 0 {
		fmt.Fprintf(&out, "--- STRUCTURAL (%d) ---\n", len(cls.structural))

		head := cls.structural[:minInt(5, len(cls.structural))]
		for _, i := range head {
			e := &entries[i]
			summary := structuralSummary(e.Body)
			fmt.Fprintf(&out, "  [%s] %s%s\n", e.Topic, tokenize.Truncate(summary, 100), freshnessTag(e.DaysOld))
		}

		if len(cls.structural) > 5 {
			rest := cls.structural[5:]
			for _, i := range rest[:minInt(5, len(rest))] {
				formatOneliner(&out, &entries[i])
			}
		}

		if len(cls.structural) > 10 {
			fmt.Fprintf(&out, "  ... +%d more structural entries\n", len(cls.structural)-10)
		}

		out.WriteString("\n")
	}

	for _, g := range cls.categories {
		fmt.Fprintf(&out, "--- %s (%d) ---\n", g.name, len(g.indices))

		bodyLimit := 5
		if g.name == "DATA FLOW" {
			bodyLimit = 10
		}

		head := g.indices[:minInt(5, len(g.indices))]
		for _, i := range head {
			formatEntryN(&out, &entries[i], bodyLimit)
		}

		rest := 0
		if len(g.indices) > 5 {
			rest = len(g.indices) - 5
		}

		oneliners := minInt(rest, 10)

		if rest > 0 {
			tail := g.indices[5 : 5+oneliners]
			for _, i := range tail {
				formatOneliner(&out, &entries[i])
			}
		}

		if rest > oneliners {
			fmt.Fprintf(&out, "  ... +%d more %s entries\n\n", rest-oneliners, strings.ToLower(g.name))
		}
	}

	for _, g := range cls.dynamic {
		fmt.Fprintf(&out, "--- %s (%d) ---\n", strings.ToUpper(g.name), len(g.indices))

		head := g.indices[:minInt(3, len(g.indices))]
		for _, i := range head {
			formatEntryN(&out, &entries[i], 5)
		}

		if len(g.indices) > 3 {
			tail := g.indices[3:minInt(8, len(g.indices))]
			for _, i := range tail {
				formatOneliner(&out, &entries[i])
			}
		}

		if len(g.indices) > 8 {
			fmt.Fprintf(&out, "  ... +%d more\n\n", len(g.indices)-8)
		}
	}

	if len(cls.untagged) > 0 {
		fmt.Fprintf(&out, "--- UNTAGGED (%d) ---\n", len(cls.untagged))
		writeUntaggedByTopic(&out, entries, cls.untagged, opts.Primary)
		out.WriteString("\n")
	}

	writeGaps(&out, entries, opts.Primary)
	writeStatsLine(&out, entries, opts.RawCount, false)

	return out.String()
}

func structuralSummary(body string) string {
	lines := strings.Split(body, "\n")

	for _, l := range lines {
		if strings.HasPrefix(l, "## Summary") || strings.HasPrefix(l, "## ") {
			return strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(l, "## Summary"), "## "))
		}
	}

	if len(lines) > 1 {
		return lines[1]
	}

	return ""
}

func writeUntaggedByTopic(out *strings.Builder, entries []compress.Compressed, untagged []int, primary []string) {
	byTopic := make(map[string][]int)

	var topics []string

	for _, i := range untagged {
		t := entries[i].Topic
		if _, ok := byTopic[t]; !ok {
			topics = append(topics, t)
		}

		byTopic[t] = append(byTopic[t], i)
	}

	sort.Strings(topics)

	shown, hidden := 0, 0

	isPrimary := make(map[string]bool, len(primary))
	for _, p := range primary {
		isPrimary[p] = true
	}

	for _, topic := range topics {
		grp := byTopic[topic]

		budget := 2
		if isPrimary[topic] {
			budget = 5
		}

		for _, i := range grp[:minInt(budget, len(grp))] {
			formatOneliner(out, &entries[i])

			shown++
		}

		if len(grp) > budget {
			extra := len(grp) - budget
			fmt.Fprintf(out, "  [%s] ... +%d more entries\n", topic, extra)
			hidden += extra
		}
	}

	if hidden > 0 {
		fmt.Fprintf(out, "  (%d shown, %d compressed away)\n", shown, hidden)
	}
}

func rankByRelevance(entries []compress.Compressed) []int {
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return entries[order[a]].Relevance > entries[order[b]].Relevance
	})

	return order
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}
