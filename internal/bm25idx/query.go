package bm25idx

// Index is a read-only view over a loaded index.bin image (spec.md §4.3).
// The backing bytes are typically an mmap'd file (component C4); Index
// never copies them except into caller-supplied scratch state.
type Index struct {
	data []byte
	hdr  Header
}

// Open decodes and validates the header of an index.bin image. data is
// retained, not copied: callers that mmap the file must keep it mapped for
// the Index's lifetime.
func Open(data []byte) (*Index, error) {
	hdr, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	if uint32(len(data)) < hdr.TotalLen { //nolint:gosec // TotalLen is a file-size-bounded count
		return nil, ErrTruncated
	}

	return &Index{data: data, hdr: hdr}, nil
}

// NumEntries is the number of entries this index was built over.
func (ix *Index) NumEntries() int { return int(ix.hdr.NumEntries) }

// AvgDL is the corpus average document length (word count) at build time.
func (ix *Index) AvgDL() float64 { return float64(ix.hdr.AvgdlX100) / 100.0 }

// Scratch is the reusable, generation-stamped per-query state (spec.md §4.4,
// §9): scores and match counts are "erased" lazily by bumping generation
// instead of zeroing the backing arrays between queries.
type Scratch struct {
	scores     []float64
	matched    []uint16
	gen        []uint32
	touched    []uint32
	generation uint32
}

// NewScratch allocates scratch state sized for an index of numEntries.
func NewScratch(numEntries int) *Scratch {
	return &Scratch{
		scores:  make([]float64, numEntries),
		matched: make([]uint16, numEntries),
		gen:     make([]uint32, numEntries),
	}
}

// grow extends the scratch arrays if the index is larger than they were
// last sized for (a rebuilt index may add entries).
func (s *Scratch) grow(numEntries int) {
	if len(s.gen) >= numEntries {
		return
	}

	extra := numEntries - len(s.gen)
	s.scores = append(s.scores, make([]float64, extra)...)
	s.matched = append(s.matched, make([]uint16, extra)...)
	s.gen = append(s.gen, make([]uint32, extra)...)
}

// beginQuery advances the generation counter, skipping zero (zero means
// "never touched" for freshly-allocated arrays).
func (s *Scratch) beginQuery(numEntries int) {
	s.grow(numEntries)

	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}

	s.touched = s.touched[:0]
}

func (s *Scratch) touch(entryID uint16) {
	id := int(entryID)
	if s.gen[id] != s.generation {
		s.gen[id] = s.generation
		s.scores[id] = 0
		s.matched[id] = 0
		s.touched = append(s.touched, uint32(entryID))
	}
}

// Mode selects how multi-term queries combine per-term postings.
type Mode int

const (
	// ModeAnd requires every term to match; see [Index.Search] for the
	// automatic fallback to OR when AND yields no results.
	ModeAnd Mode = iota
	ModeOr
)

// Hit is one scored search result.
type Hit struct {
	EntryID   uint16
	Score     float64
	Matched   int
	WordCount int
	Snippet   string
}

// Search scores terms against the index into scratch and returns the top
// limit hits ordered by descending score, ascending entry id on ties.
// When mode is ModeAnd and at least two terms are given but no entry
// matches all of them, Search falls back to OR semantics automatically
// (spec.md §4.4's "AND-with-OR-fallback" rule).
func (ix *Index) Search(terms []string, mode Mode, limit int, scratch *Scratch) []Hit {
	numEntries := ix.NumEntries()
	scratch.beginQuery(numEntries)

	if numEntries == 0 || len(terms) == 0 {
		return nil
	}

	avgdl := ix.AvgDL()

	for _, term := range terms {
		postings := ix.lookupTerm(term)
		for _, p := range postings {
			scratch.touch(p.entryID)

			id := int(p.entryID)
			scratch.matched[id]++
			scratch.scores[id] += ix.termScore(p, id, avgdl)
		}
	}

	required := 1
	if mode == ModeAnd {
		required = len(terms)
	}

	candidates := scratch.collect(required)

	if mode == ModeAnd && len(terms) >= 2 && len(candidates) == 0 {
		candidates = scratch.collect(1)
	}

	return ix.resolveHits(topK(candidates, limit))
}

// termScore computes one posting's BM25 contribution using the index's
// native formula (spec.md §4.4): length-normalized term-frequency
// saturation scaled by the term's stored IDF.
func (ix *Index) termScore(p posting, entryID int, avgdl float64) float64 {
	meta := readMeta(ix.data, int(ix.hdr.MetaOff)+entryID*metaSize)

	denom := avgdl
	if denom < 1 {
		denom = 1
	}

	lenNorm := 0.25 + 0.75*(float64(meta.wordCount)/denom)
	tf := float64(p.tf)
	tfSat := (tf * 2.2) / (tf + 1.2*lenNorm)
	idf := float64(p.idfX1000) / 1000.0

	return idf * tfSat
}

type hitCandidate struct {
	entryID uint16
	score   float64
	matched int
}

// collect gathers every touched entry with at least required matched
// terms into candidate values.
func (s *Scratch) collect(required int) []hitCandidate {
	var out []hitCandidate

	for _, id := range s.touched {
		if int(s.matched[id]) >= required {
			out = append(out, hitCandidate{
				entryID: uint16(id), //nolint:gosec // id came from a uint16 entry id
				score:   s.scores[id],
				matched: int(s.matched[id]),
			})
		}
	}

	return out
}

// lookupTerm probes the open-addressed hash table for term and returns its
// decoded postings, or nil if absent.
func (ix *Index) lookupTerm(term string) []posting {
	if ix.hdr.TableCap == 0 {
		return nil
	}

	h := hashTerm(term)
	cap64 := uint64(ix.hdr.TableCap)
	idx := h % cap64

	for probes := uint64(0); probes < cap64; probes++ {
		slotOff := headerSize + int(idx)*slotSize
		s := readSlot(ix.data, slotOff)

		if s.hash == 0 {
			return nil
		}

		if s.hash == h {
			return ix.decodePostings(s)
		}

		idx = (idx + 1) % cap64
	}

	return nil
}

func (ix *Index) decodePostings(s termSlot) []posting {
	out := make([]posting, s.postingsLen)
	base := int(ix.hdr.PostingsOff) + int(s.postingsOff)

	for i := range out {
		out[i] = readPosting(ix.data, base+i*postSize)
	}

	return out
}

// topK selects the limit highest-scoring candidates, descending by score
// then ascending by entry id on ties (I-BM25-1), via insertion sort (limit
// is typically small relative to candidate count).
func topK(candidates []hitCandidate, limit int) []hitCandidate {
	if limit <= 0 {
		return nil
	}

	best := make([]hitCandidate, 0, limit)

	for _, c := range candidates {
		insertAt := len(best)

		for insertAt > 0 && less(c, best[insertAt-1]) {
			insertAt--
		}

		if insertAt >= limit {
			continue
		}

		best = append(best, hitCandidate{})
		copy(best[insertAt+1:], best[insertAt:])
		best[insertAt] = c

		if len(best) > limit {
			best = best[:limit]
		}
	}

	return best
}

func less(a, b hitCandidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}

	return a.entryID < b.entryID
}

// resolveHits attaches snippet and word-count display data to each ranked
// candidate; called once per query on the (small) top-K slice, not the hot
// scan path.
func (ix *Index) resolveHits(ranked []hitCandidate) []Hit {
	if len(ranked) == 0 {
		return nil
	}

	hits := make([]Hit, len(ranked))

	for i, c := range ranked {
		snippet, wordCount := ix.snippetFor(c.entryID)
		hits[i] = Hit{
			EntryID:   c.entryID,
			Score:     c.score,
			Matched:   c.matched,
			WordCount: wordCount,
			Snippet:   snippet,
		}
	}

	return hits
}

func (ix *Index) snippetFor(entryID uint16) (string, int) {
	meta := readMeta(ix.data, int(ix.hdr.MetaOff)+int(entryID)*metaSize)
	start := int(ix.hdr.SnippetOff) + int(meta.snippetOff)
	end := start + int(meta.snippetLen)

	if start < 0 || end > len(ix.data) || start > end {
		return "", int(meta.wordCount)
	}

	return string(ix.data[start:end]), int(meta.wordCount)
}
