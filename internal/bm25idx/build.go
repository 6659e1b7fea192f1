package bm25idx

import (
	"math"
	"sort"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/clock"
	"github.com/amaranth-kb/amaranth/internal/corpus"
	"github.com/amaranth-kb/amaranth/internal/tokenize"
)

// maxEntries bounds the corpus to what a uint16 entry id can address
// (original_source/src/inverted.rs uses the same limit).
const maxEntries = 65535

// snippetMaxBytes caps one entry's snippet body before the uint16 length
// prefix, grounded on inverted.rs's SNIPPET_MAX constant.
const snippetMaxBytes = 120

type termPosting struct {
	entryID uint16
	tf      uint16
}

// Build lays out a complete index.bin image for entries, in the order
// given (entries[i] becomes entry id i). Grounded on
// original_source/src/inverted.rs's IndexBuilder::build.
func Build(entries []*corpus.Entry) ([]byte, error) {
	if len(entries) > maxEntries {
		return nil, ErrTooManyEntries
	}

	numEntries := len(entries)

	postingsByTerm := make(map[string][]termPosting)

	topicIDs := make(map[string]uint8, numEntries)

	var totalWords int64

	var nextTopicID int

	for i, e := range entries {
		if _, seen := topicIDs[e.Topic]; !seen {
			topicIDs[e.Topic] = clampUint8(nextTopicID)
			nextTopicID++
		}

		totalWords += int64(e.WordCount)

		terms := make([]string, 0, len(e.TFMap))
		for t := range e.TFMap {
			terms = append(terms, t)
		}

		sort.Strings(terms)

		for _, t := range terms {
			tf := e.TFMap[t]
			postingsByTerm[t] = append(postingsByTerm[t], termPosting{
				entryID: uint16(i), //nolint:gosec // bounded by maxEntries check above
				tf:      clampUint16(tf),
			})
		}
	}

	avgdlX100 := uint32(0)
	if numEntries > 0 {
		avgdlX100 = uint32((totalWords * 100) / int64(numEntries)) //nolint:gosec // small ratio
	}

	terms := make([]string, 0, len(postingsByTerm))
	for t := range postingsByTerm {
		terms = append(terms, t)
	}

	sort.Strings(terms)

	numTerms := len(terms)
	tableCap := nextPowerOfTwo(maxInt(16, (4*numTerms)/3))

	// Assign postings offsets in term order, so the postings region is
	// laid out deterministically regardless of hash-table slot order.
	postingsOff := make(map[string]uint32, numTerms)
	postingsLen := make(map[string]uint16, numTerms)

	var postingsCursor uint32

	for _, t := range terms {
		plist := postingsByTerm[t]
		postingsOff[t] = postingsCursor
		postingsLen[t] = uint16(len(plist)) //nolint:gosec // bounded by maxEntries
		postingsCursor += uint32(len(plist)) * postSize
	}

	postingsRegionSize := postingsCursor

	// Hash table: open-addressed, linear probing over tableCap slots.
	slots := make([]termSlot, tableCap)
	occupied := make([]bool, tableCap)

	for _, t := range terms {
		h := hashTerm(t)
		idx := int(h % uint64(tableCap)) //nolint:gosec // tableCap > 0

		for occupied[idx] {
			idx = (idx + 1) % tableCap
		}

		occupied[idx] = true
		slots[idx] = termSlot{
			hash:        h,
			postingsOff: postingsOff[t],
			postingsLen: postingsLen[t],
		}
	}

	n := int64(numEntries)

	idfX1000 := make(map[string]uint32, numTerms)
	for _, t := range terms {
		df := int64(len(postingsByTerm[t]))
		idf := math.Log((float64(n-df)+0.5)/(float64(df)+0.5) + 1)
		idfX1000[t] = uint32(math.Round(idf * 1000))
	}

	// Region offsets.
	termTableOff := headerSize
	metaOff := termTableOff + tableCap*slotSize
	snippetOff := metaOff + numEntries*metaSize

	buf := make([]byte, snippetOff)

	for i, s := range slots {
		putSlot(buf, termTableOff+i*slotSize, s)
	}

	postingsBuf := make([]byte, postingsRegionSize)

	for _, t := range terms {
		base := postingsOff[t]
		for j, p := range postingsByTerm[t] {
			putPosting(postingsBuf, int(base)+j*postSize, posting{
				entryID:  p.entryID,
				tf:       p.tf,
				idfX1000: idfX1000[t],
			})
		}
	}

	snippetBuf := make([]byte, 0, numEntries*64)

	for i, e := range entries {
		snippet := buildSnippet(e)
		sb := []byte(snippet)

		putMeta(buf, metaOff+i*metaSize, entryMeta{
			topicID:    topicIDs[e.Topic],
			wordCount:  clampUint16(e.WordCount),
			snippetOff: uint32(len(snippetBuf)), //nolint:gosec // bounded by snippetMaxBytes*numEntries
			snippetLen: clampUint16(len(sb)),
		})

		snippetBuf = append(snippetBuf, sb...)
	}

	buf = append(buf[:snippetOff], snippetBuf...)

	postingsStart := termTableOff + tableCap*slotSize

	full := make([]byte, 0, len(buf)+len(postingsBuf))
	full = append(full, buf[:postingsStart]...)
	full = append(full, postingsBuf...)
	full = append(full, buf[postingsStart:]...)

	hdr := encodeHeader(Header{
		NumEntries:  uint32(numEntries), //nolint:gosec // bounded by maxEntries
		NumTerms:    uint32(numTerms),   //nolint:gosec // bounded by entries
		TableCap:    uint32(tableCap),   //nolint:gosec // derived from numTerms
		AvgdlX100:   avgdlX100,
		PostingsOff: uint32(postingsStart),                       //nolint:gosec
		MetaOff:     uint32(postingsStart + len(postingsBuf)),    //nolint:gosec
		SnippetOff:  uint32(postingsStart + len(postingsBuf) + numEntries*metaSize), //nolint:gosec
		TotalLen:    uint32(len(full)), //nolint:gosec
	})

	copy(full[:headerSize], hdr)

	return full, nil
}

// buildSnippet renders "[{topic}] {date} {first content, truncated}" per
// spec.md §6's display-snippet rule, reusing the shared FirstContent helper
// so build-time and query-time snippets never diverge.
func buildSnippet(e *corpus.Entry) string {
	date := clock.MinutesToDate(e.TimestampMin)
	first := corpus.FirstContent(e.Body)

	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(e.Topic)
	b.WriteString("] ")
	b.WriteString(date)
	b.WriteByte(' ')
	b.WriteString(first)

	return tokenize.Truncate(b.String(), snippetMaxBytes)
}

// clampUint8 saturates at 255, the highest topic_id a one-byte field can
// hold (spec.md §4.3: "assigning a stable topic_id (insertion order, <=255)").
// A knowledge base with more than 256 distinct topics reuses 255 for the
// overflow rather than wrapping back to 0.
func clampUint8(v int) uint8 {
	if v > math.MaxUint8 {
		return math.MaxUint8
	}

	return uint8(v)
}

func clampUint16(v int) uint16 {
	if v < 0 {
		return 0
	}

	if v > math.MaxUint16 {
		return math.MaxUint16
	}

	return uint16(v)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
