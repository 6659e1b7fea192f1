// Package tokenize implements the single tokenizer shared by the index
// builder and query-term extraction, per spec.md §9: "the same tokenizer is
// used by index build and by query term extraction; subtle differences
// between them would cause false misses".
package tokenize

import (
	"strings"
	"unicode"
)

// searchStopWords are pure function words filtered at query-term extraction
// time only. Conservative: does not include technical terms like "file" or
// "path" that are meaningful in this corpus.
var searchStopWords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true, "have": true,
	"been": true, "were": true, "will": true, "when": true, "which": true,
	"their": true, "there": true, "about": true, "would": true, "could": true,
	"should": true, "into": true, "also": true, "each": true, "does": true,
	"just": true, "more": true, "than": true, "then": true, "them": true,
	"some": true, "only": true, "other": true, "very": true, "after": true,
	"before": true, "most": true, "same": true, "both": true,
}

func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Tokenize splits text on non-alphanumeric boundaries, lowercases, expands
// CamelCase-boundary compounds, and discards tokens shorter than 2 runes.
// This is the index-build-time tokenizer; it applies no stopword filtering.
func Tokenize(text string) []string {
	var tokens []string

	for _, segment := range splitNonAlnum(text) {
		if segment == "" {
			continue
		}

		lower := strings.ToLower(segment)
		if len([]rune(lower)) < 2 {
			continue
		}

		tokens = append(tokens, lower)

		for _, part := range splitCompound(segment) {
			if len([]rune(part)) >= 2 && part != lower {
				tokens = append(tokens, part)
			}
		}
	}

	return tokens
}

// QueryTerms extracts search terms: Tokenize, filter stop words, dedup
// preserving first-occurrence order.
func QueryTerms(query string) []string {
	seen := make(map[string]bool)

	var terms []string

	for _, tok := range Tokenize(query) {
		if searchStopWords[tok] {
			continue
		}

		if seen[tok] {
			continue
		}

		seen[tok] = true

		terms = append(terms, tok)
	}

	return terms
}

func splitNonAlnum(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !isAlphanumeric(r) })
}

// splitCompound splits snake_case/kebab-case segments on '_'/'-' (redundant
// with splitNonAlnum's outer split, which already consumes those runes; kept
// because CamelCase expansion still needs to run per-sub-segment) and then
// splits CamelCase boundaries within each sub-segment.
func splitCompound(s string) []string {
	var parts []string

	for _, segment := range strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' }) {
		if segment == "" {
			continue
		}

		runes := []rune(segment)

		var current strings.Builder

		for i, r := range runes {
			if i > 0 && isUpper(r) {
				if current.Len() > 0 {
					parts = append(parts, strings.ToLower(current.String()))
					current.Reset()
				}
			}

			current.WriteRune(r)
		}

		if current.Len() > 0 {
			parts = append(parts, strings.ToLower(current.String()))
		}
	}

	return parts
}

func isUpper(r rune) bool {
	return unicode.IsUpper(r)
}

// Truncate trims s to at most max bytes, never splitting a UTF-8 rune.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	end := max
	for end > 0 && !isRuneBoundary(s, end) {
		end--
	}

	return s[:end]
}

func isRuneBoundary(s string, i int) bool {
	if i == 0 || i == len(s) {
		return true
	}

	return s[i]&0xC0 != 0x80
}
