package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/briefing"
	"github.com/amaranth-kb/amaranth/internal/clock"
	"github.com/amaranth-kb/amaranth/internal/compress"
	"github.com/amaranth-kb/amaranth/internal/corpus"
	"github.com/amaranth-kb/amaranth/internal/tokenize"
)

// ReconstructOptions configures [Store.Reconstruct] (spec.md §6:
// `reconstruct(query, detail, since_hours?, focus?)`).
type ReconstructOptions struct {
	Detail     briefing.Detail
	SinceHours int
	HasSince   bool
	Focus      []string // category names, matched against entry tags
}

// Reconstruct assembles a compressed, tiered briefing for query: primary
// topics (glob, source-path, or substring match), related entries (sharing a
// query term), entries reached by one narrative-link hop, scored by
// relevance and run through the five-pass compressor and the three-tier
// formatter. Grounded on original_source/src/reconstruct.rs's `run`.
func (s *Store) Reconstruct(query string, opts ReconstructOptions) (string, error) {
	q := strings.ToLower(query)
	isGlob := strings.Contains(q, "*")
	isSourceQuery := strings.Contains(query, ".") && !strings.Contains(query, " ")
	qSanitized := q
	if !isGlob {
		qSanitized = sanitizeTopicQuery(query)
	}

	qTerms := tokenize.QueryTerms(query)
	nowDays := clock.NowDays()

	var maxDays int64 = -1
	hasMaxDays := false

	if opts.HasSince {
		hasMaxDays = true

		if opts.SinceHours <= 12 {
			maxDays = 0
		} else {
			maxDays = (int64(opts.SinceHours) - 1) / 24
		}
	}

	var result string

	err := s.cache.WithCorpus(s.fsys, s.logPath(), func(entries []*corpus.Entry) {
		result = reconstructFromCorpus(entries, query, qSanitized, qTerms, isGlob, isSourceQuery,
			nowDays, maxDays, hasMaxDays, opts)
	})
	if err != nil {
		return "", err
	}

	return result, nil
}

func reconstructFromCorpus(
	entries []*corpus.Entry,
	query, qSanitized string,
	qTerms []string,
	isGlob, isSourceQuery bool,
	nowDays, maxDays int64,
	hasMaxDays bool,
	opts ReconstructOptions,
) string {
	primarySet := make(map[string]bool)

	for _, e := range entries {
		if isGlob {
			if globMatch(strings.ToLower(query), e.Topic) {
				primarySet[e.Topic] = true
			}
		} else if !isSourceQuery {
			if strings.Contains(e.Topic, qSanitized) {
				primarySet[e.Topic] = true
			}
		}
	}

	// offset -> topic-local index, and in-topic occurrence counters, built
	// once over the full live corpus (not just matched entries) so link
	// targets outside the match set can still be located.
	offsetTIdx := make(map[uint32]int, len(entries))
	topicCounters := make(map[string]int)

	for _, e := range entries {
		idx := topicCounters[e.Topic]
		offsetTIdx[e.Offset] = idx
		topicCounters[e.Topic] = idx + 1
	}

	linkInCounts := make(map[uint64]uint16)

	for _, e := range entries {
		for _, l := range e.Links {
			linkInCounts[linkKey(l.Topic, l.Index)]++
		}
	}

	var raw []compress.RawEntry

	matchedOffsets := make(map[uint32]bool)

	for _, e := range entries {
		isPrimary := primarySet[e.Topic]

		isRelated := false
		for _, t := range qTerms {
			if _, ok := e.TFMap[t]; ok {
				isRelated = true

				break
			}
		}

		isSourceMatch := isSourceQuery && e.HasSource && sourceMatches(e.Source, query)

		if !isPrimary && !isRelated && !isSourceMatch {
			continue
		}

		daysOld := e.DaysOld(nowDays)

		if hasMaxDays && daysOld > maxDays {
			continue
		}

		if !matchesFocus(e.Tags, opts.Focus) {
			continue
		}

		matchedOffsets[e.Offset] = true

		relevance := 0.0

		switch {
		case isPrimary:
			relevance = 10.0
		case isSourceMatch:
			relevance = 15.0
		}

		for _, t := range qTerms {
			relevance += float64(e.TFMap[t])
		}

		if !e.HasTag("invariant") && !e.HasTag("architecture") {
			relevance *= 1.0 + 1.0/(1.0+float64(daysOld)/7.0)
		}

		relevance *= e.Confidence

		tidx := offsetTIdx[e.Offset]
		linkIn := linkInCounts[linkKey(e.Topic, tidx)]
		relevance += float64(linkIn) * 2.0

		if isSourceMatch {
			primarySet[e.Topic] = true
		}

		raw = append(raw, compress.RawEntry{
			Topic:        e.Topic,
			Body:         e.Body,
			TimestampMin: e.TimestampMin,
			DaysOld:      daysOld,
			Tags:         e.Tags,
			Relevance:    relevance,
			Confidence:   e.Confidence,
			LinkIn:       linkIn,
		})
	}

	if !hasMaxDays {
		raw = followLinks(entries, raw, matchedOffsets, offsetTIdx, linkInCounts, nowDays)
	}

	if len(raw) == 0 {
		if opts.HasSince {
			return fmt.Sprintf("No new entries for '%s' in the last %dh.\n", query, opts.SinceHours)
		}

		return fmt.Sprintf("No entries found for '%s'.\n", query)
	}

	primary := make([]string, 0, len(primarySet))
	for t := range primarySet {
		primary = append(primary, t)
	}

	sort.Strings(primary)

	rawCount := len(raw)
	compressed := compress.Compress(raw)

	return briefing.Format(compressed, briefing.Options{
		Query:      query,
		RawCount:   rawCount,
		Primary:    primary,
		Detail:     opts.Detail,
		SinceHours: opts.SinceHours,
		HasSince:   opts.HasSince,
	})
}

// followLinks pulls in, one hop, entries reached via `[links: topic:idx]`
// from an already-matched entry, at a fixed relevance of 3.0×confidence,
// with the body prefixed to show where the link came from.
func followLinks(
	entries []*corpus.Entry,
	raw []compress.RawEntry,
	matchedOffsets map[uint32]bool,
	offsetTIdx map[uint32]int,
	linkInCounts map[uint64]uint16,
	nowDays int64,
) []compress.RawEntry {
	hasAnyLinks := false

	for _, e := range entries {
		if len(e.Links) > 0 && matchedOffsets[e.Offset] {
			hasAnyLinks = true

			break
		}
	}

	if !hasAnyLinks {
		return raw
	}

	topicIdxPos := make(map[string]map[int]int)
	topicCounters := make(map[string]int)

	for pos, e := range entries {
		idx := topicCounters[e.Topic]
		topicCounters[e.Topic] = idx + 1

		if topicIdxPos[e.Topic] == nil {
			topicIdxPos[e.Topic] = make(map[int]int)
		}

		topicIdxPos[e.Topic][idx] = pos
	}

	for _, e := range entries {
		if !matchedOffsets[e.Offset] || len(e.Links) == 0 {
			continue
		}

		for _, link := range e.Links {
			byIdx, ok := topicIdxPos[link.Topic]
			if !ok {
				continue
			}

			pos, ok := byIdx[link.Index]
			if !ok {
				continue
			}

			le := entries[pos]
			if matchedOffsets[le.Offset] {
				continue
			}

			daysOld := le.DaysOld(nowDays)
			leTIdx := offsetTIdx[le.Offset]
			leLinkIn := linkInCounts[linkKey(le.Topic, leTIdx)]

			raw = append(raw, compress.RawEntry{
				Topic:        le.Topic,
				Body:         fmt.Sprintf("[linked from: %s:%d]\n%s", e.Topic, link.Index, le.Body),
				TimestampMin: le.TimestampMin,
				DaysOld:      daysOld,
				Tags:         le.Tags,
				Relevance:    3.0 * le.Confidence,
				Confidence:   le.Confidence,
				LinkIn:       leLinkIn,
			})

			matchedOffsets[le.Offset] = true
		}
	}

	return raw
}

// sourceMatches reports whether a `[source: ...]` path matches a query file
// name: "src/cache.rs:11" matches query "cache.rs", but not "ache.rs".
func sourceMatches(source, query string) bool {
	path := source
	if i := strings.Index(source, ":"); i >= 0 {
		path = source[:i]
	}

	if !strings.HasSuffix(path, query) {
		return false
	}

	prefixEnd := len(path) - len(query)

	return prefixEnd == 0 || path[prefixEnd-1] == '/'
}

// globMatch is a minimal `*`-wildcard matcher: each literal segment between
// wildcards must appear in order.
func globMatch(pattern, text string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return strings.Contains(text, pattern)
	}

	pos := 0

	for i, part := range parts {
		if part == "" {
			continue
		}

		switch i {
		case 0:
			if !strings.HasPrefix(text, part) {
				return false
			}

			pos = len(part)
		case len(parts) - 1:
			if !strings.HasSuffix(text[pos:], part) {
				return false
			}
		default:
			rest := text[pos:]

			idx := strings.Index(rest, part)
			if idx < 0 {
				return false
			}

			pos += idx + len(part)
		}
	}

	return true
}

// linkKey is an FNV-1a hash of (topic, idx), used for counting in-links.
func linkKey(topic string, idx int) uint64 {
	h := uint64(0xcbf29ce484222325)

	for i := 0; i < len(topic); i++ {
		h ^= uint64(topic[i])
		h *= 0x100000001b3
	}

	h ^= uint64(idx)
	h *= 0x100000001b3

	return h
}

// sanitizeTopicQuery lowercases and collapses a free-text query into the
// slug-like form topic names are stored in, so substring matching against
// live topics behaves sensibly for a human-typed query.
func sanitizeTopicQuery(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder

	lastHyphen := false

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)

			lastHyphen = false
		case r == '-' || r == '_':
			b.WriteRune(r)

			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')

				lastHyphen = true
			}
		}
	}

	return strings.Trim(b.String(), "-")
}

// matchesFocus reports whether tags satisfy a focus filter: no filter always
// matches, otherwise at least one focus term must appear as a substring of
// (or be a substring match against) one of the entry's tags.
func matchesFocus(tags []string, focus []string) bool {
	if len(focus) == 0 {
		return true
	}

	for _, f := range focus {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}

		f = strings.TrimSuffix(f, "s")

		for _, t := range tags {
			if strings.Contains(t, f) || strings.Contains(f, t) {
				return true
			}
		}
	}

	return false
}
