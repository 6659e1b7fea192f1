package compress

import (
	"sort"
	"strings"
	"unicode"
)

// temporalChains is the three-stage chaining pass (spec.md §9, I-CMP-3):
// dominant-term grouping, then a date-bucket fallback, then token-similarity
// clustering — each stage only considers entries the earlier stages left
// unchained. Chained entries other than the newest in each chain are marked
// in removed.
func temporalChains(entries []*Compressed, tokens []map[string]struct{}, removed map[int]bool) {
	chainByDominantTerm(entries, removed)

	chainedPct := 0
	if len(entries) > 0 {
		chainedPct = len(removed) * 100 / len(entries)
	}

	if chainedPct > 60 {
		return
	}

	chainByDateBucket(entries, removed)
	chainByTokenSimilarity(entries, tokens, removed)
}

// chainByDominantTerm groups same-topic entries sharing a dominant
// (longest, capitalized) term in their first content line into a single
// "term: step1 → step2 → ..." narrative on the newest entry.
func chainByDominantTerm(entries []*Compressed, removed map[int]bool) {
	groups := make(map[string][]int)
	termOf := make(map[string]string)

	for i, e := range entries {
		term, ok := dominantTerm(firstContentOf(e))
		if !ok {
			continue
		}

		k := e.Topic + "\x00" + term
		groups[k] = append(groups[k], i)
		termOf[k] = term
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		indices := groups[k]
		if len(indices) < 2 {
			continue
		}

		term := termOf[k]

		sorted := append([]int(nil), indices...)
		sort.Slice(sorted, func(a, b int) bool {
			return entries[sorted[a]].DaysOld > entries[sorted[b]].DaysOld
		})

		steps := make([]string, len(sorted))

		for idx, i := range sorted {
			fc := firstContentOf(entries[i])
			without := strings.ReplaceAll(fc, term, "")
			words := strings.Fields(without)

			if len(words) > 5 {
				words = words[:5]
			}

			step := strings.Join(words, " ")
			date := entries[i].Date

			if step == "" {
				steps[idx] = monthDayPart(date)
			} else {
				steps[idx] = step + " (" + monthDayPart(date) + ")"
			}
		}

		chain := term + ": " + strings.Join(steps, " → ")
		newest := sorted[len(sorted)-1]
		entries[newest].Chain = chain
		entries[newest].HasChain = true
		entries[newest].Relevance += float64(len(sorted))

		for _, i := range sorted[:len(sorted)-1] {
			removed[i] = true
		}
	}
}

// chainByDateBucket groups unchained same-topic entries falling in the same
// 48-hour (2-day) bucket, chaining groups of 3 or more into a "batch" label.
func chainByDateBucket(entries []*Compressed, removed map[int]bool) {
	groups := make(map[string][]int)

	for i, e := range entries {
		if removed[i] || entries[i].HasChain {
			continue
		}

		bucket := e.DaysOld / 2
		k := e.Topic + ":" + itoa(bucket)
		groups[k] = append(groups[k], i)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		indices := groups[k]
		if len(indices) < 3 {
			continue
		}

		sorted := append([]int(nil), indices...)
		sort.Slice(sorted, func(a, b int) bool {
			return entries[sorted[a]].DaysOld > entries[sorted[b]].DaysOld
		})

		labels := labelSet(entries, sorted, 4)
		date := entries[sorted[0]].Date
		dateShort := date
		if len(date) >= 10 {
			dateShort = date[:10]
		}

		chain := "batch " + dateShort + ": " + strings.Join(labels, " | ")
		newest := sorted[len(sorted)-1]
		entries[newest].Chain = chain
		entries[newest].HasChain = true
		entries[newest].Relevance += float64(len(sorted))

		for _, i := range sorted[:len(sorted)-1] {
			removed[i] = true
		}
	}
}

// chainByTokenSimilarity is the final fallback: greedily clusters remaining
// unchained same-topic entries whose first-content Jaccard similarity is
// ≥40%, capped at 50 entries per topic to bound the pairwise comparisons.
func chainByTokenSimilarity(entries []*Compressed, tokens []map[string]struct{}, removed map[int]bool) {
	byTopic := make(map[string][]int)

	for i, e := range entries {
		if removed[i] || e.HasChain {
			continue
		}

		byTopic[e.Topic] = append(byTopic[e.Topic], i)
	}

	topics := make([]string, 0, len(byTopic))
	for t := range byTopic {
		topics = append(topics, t)
	}

	sort.Strings(topics)

	var simGroups [][]int

	for _, topic := range topics {
		indices := byTopic[topic]
		if len(indices) < 2 {
			continue
		}

		capped := indices
		if len(capped) > 50 {
			capped = capped[:50]
		}

		var clusters [][]int

		for _, i := range capped {
			placed := false

			for gi := range clusters {
				j := clusters[gi][0]
				if jaccardPct(tokens[i], tokens[j]) >= 40 {
					clusters[gi] = append(clusters[gi], i)
					placed = true

					break
				}
			}

			if !placed {
				clusters = append(clusters, []int{i})
			}
		}

		for _, g := range clusters {
			if len(g) >= 2 {
				simGroups = append(simGroups, g)
			}
		}
	}

	for _, g := range simGroups {
		sorted := append([]int(nil), g...)
		sort.Slice(sorted, func(a, b int) bool {
			return entries[sorted[a]].DaysOld > entries[sorted[b]].DaysOld
		})

		labels := labelSet(entries, sorted, 3)
		chain := "similar: " + strings.Join(labels, " | ")
		newest := sorted[len(sorted)-1]
		entries[newest].Chain = chain
		entries[newest].HasChain = true
		entries[newest].Relevance += float64(len(sorted))

		for _, i := range sorted[:len(sorted)-1] {
			removed[i] = true
		}
	}
}

func labelSet(entries []*Compressed, sorted []int, take int) []string {
	var labels []string

	seen := make(map[string]bool)

	for idx, i := range sorted {
		if idx >= take {
			break
		}

		lbl := labelWords(firstContentOf(entries[i]), 3)
		if lbl != "" && !seen[lbl] {
			seen[lbl] = true

			labels = append(labels, lbl)
		}
	}

	return labels
}

func firstContentOf(e *Compressed) string {
	for _, line := range strings.Split(e.Body, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || (strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]")) {
			continue
		}

		return line
	}

	return ""
}

// labelWords takes the first n meaningful words of line, stopping at
// structural noise (parens, paths, arrows, dashes): readable labels beat
// mid-word character truncation (original_source/src/compress.rs).
func labelWords(line string, n int) string {
	cleaned := strings.TrimLeft(line, "#*- ")

	var words []string

	for _, w := range strings.Fields(cleaned) {
		if strings.HasPrefix(w, "(") || strings.HasPrefix(w, "[") ||
			strings.Contains(w, "/") || w == "→" || w == "--" || w == "—" {
			break
		}

		words = append(words, w)

		if len(words) >= n {
			break
		}
	}

	label := strings.Join(words, " ")

	return strings.TrimRight(label, ":,;—")
}

// dominantTerm returns the longest capitalized-or-all-caps word (3+ runes)
// in line: the likely named entity around which a timeline chains.
func dominantTerm(line string) (string, bool) {
	best := ""

	for _, w := range strings.Fields(line) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })

		if len([]rune(w)) < 3 {
			continue
		}

		first := []rune(w)[0]
		if !unicode.IsUpper(first) {
			continue
		}

		if len(w) > len(best) {
			best = w
		}
	}

	if best == "" {
		return "", false
	}

	return best, true
}

func monthDayPart(date string) string {
	if len(date) > 5 {
		return date[5:]
	}

	return date
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}

	neg := n < 0
	if neg {
		n = -n
	}

	var b [20]byte

	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}

	if neg {
		i--
		b[i] = '-'
	}

	return string(b[i:])
}

