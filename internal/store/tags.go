package store

import (
	"sort"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/tokenize"
)

// normalizeTags lowercases, trims, singularizes, dedupes, and sorts a
// comma-separated tag list (spec.md §6: "tags are lowercased and
// singularized on write").
func normalizeTags(raw string) string {
	seen := make(map[string]bool)

	var tags []string

	for _, t := range strings.Split(raw, ",") {
		t = singularize(strings.TrimSpace(t))
		t = strings.ToLower(t)

		if t == "" || seen[t] {
			continue
		}

		seen[t] = true

		tags = append(tags, t)
	}

	sort.Strings(tags)

	return strings.Join(tags, ", ")
}

// singularize is a minimal suffix-stripping heuristic (SPEC_FULL.md §D): not
// a natural-language library, just the common-case trailing-s rule the
// original tag normalizer applies.
func singularize(s string) string {
	if len(s) <= 3 {
		return s
	}

	switch {
	case strings.HasSuffix(s, "ies") && len(s) > 4:
		return s[:len(s)-3] + "y"
	case strings.HasSuffix(s, "sses"):
		return s[:len(s)-2]
	case strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss") &&
		!strings.HasSuffix(s, "us") && !strings.HasSuffix(s, "is"):
		return s[:len(s)-1]
	default:
		return s
	}
}

// prefixTags maps a recognized first-line content prefix to a canonical tag,
// used by autoDetectTags when the caller supplies no explicit tags.
var prefixTags = []struct {
	prefix string
	tag    string
}{
	{"gotcha:", "gotcha"},
	{"deploy gotcha:", "gotcha"},
	{"invariant:", "invariant"},
	{"security:", "invariant"},
	{"decision:", "decision"},
	{"design:", "decision"},
	{"architectural", "decision"},
	{"module:", "module-map"},
	{"overview:", "architecture"},
	{"data flow:", "data-flow"},
	{"flow:", "data-flow"},
	{"perf:", "performance"},
	{"benchmark:", "performance"},
	{"hot path:", "performance"},
	{"gap:", "gap"},
	{"missing:", "gap"},
	{"todo:", "gap"},
	{"friction", "gap"},
	{"how-to:", "how-to"},
	{"impl:", "how-to"},
	{"impl spec:", "how-to"},
	{"shipped", "how-to"},
	{"playbook:", "how-to"},
	{"coupling:", "coupling"},
	{"change impact:", "change-impact"},
	{"transformation:", "coupling"},
	{"pattern:", "pattern"},
	{"feature:", "how-to"},
	{"bug:", "gotcha"},
	{"fix:", "how-to"},
}

// autoDetectTags infers a tag list from the first non-blank line's prefix
// when the caller provides no explicit tags (store.rs's auto_detect_tags).
func autoDetectTags(text string) string {
	var first string

	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if t != "" {
			first = strings.ToLower(t)

			break
		}
	}

	seen := make(map[string]bool)

	var tags []string

	for _, pt := range prefixTags {
		if strings.HasPrefix(first, pt.prefix) && !seen[pt.tag] {
			seen[pt.tag] = true

			tags = append(tags, pt.tag)
		}
	}

	return strings.Join(tags, ", ")
}

// dupeTokenSet builds the ≥3-char token set used for duplicate-detection
// Jaccard similarity (store.rs's check_dupe).
func dupeTokenSet(text string) map[string]bool {
	set := make(map[string]bool)

	for _, t := range tokenize.Tokenize(text) {
		if len(t) >= 3 {
			set[t] = true
		}
	}

	return set
}

func jaccardAgainstTFMap(tokens map[string]bool, tfMap map[string]int) float64 {
	intersection := 0

	for t := range tokens {
		if tfMap[t] > 0 {
			intersection++
		}
	}

	union := len(tokens) + len(tfMap) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

func previewOf(body string) string {
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "[") {
			continue
		}

		return tokenize.Truncate(t, 100)
	}

	return ""
}
