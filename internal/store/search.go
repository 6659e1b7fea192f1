package store

import (
	"github.com/amaranth-kb/amaranth/internal/bm25idx"
	"github.com/amaranth-kb/amaranth/internal/corpus"
	"github.com/amaranth-kb/amaranth/internal/score"
	"github.com/amaranth-kb/amaranth/internal/tokenize"
)

// SearchResult is the ranked outcome of [Store.Search]: the scored hits,
// whether an AND query fell back to OR because AND matched nothing (spec.md
// §4.4's "fell back to OR" caller-visible flag), and whether index.bin
// itself was missing, corrupt, or stale and the search had to fall back to
// a full corpus scan to get an answer at all.
type SearchResult struct {
	Hits          []score.Result
	Fallback      bool
	IndexUnusable bool
}

// Search scores query against the live corpus, trying the binary index
// first and falling back to a full scan as needed (spec.md §6: `search`).
func (s *Store) Search(query string, limit int, mode bm25idx.Mode, filter score.Filter) (SearchResult, error) {
	filter.Mode = mode

	terms := tokenize.QueryTerms(query)

	if s.scratch == nil {
		s.scratch = bm25idx.NewScratch(0)
	}

	var (
		hits          []score.Result
		fallback      bool
		indexUnusable bool
		dispErr       error
	)

	err := s.cache.WithCorpus(s.fsys, s.logPath(), func(entries []*corpus.Entry) {
		hits, fallback, indexUnusable, dispErr = score.SearchScored(s.fsys, s.indexPath(), entries, terms, filter, limit, s.scratch)
	})
	if err != nil {
		return SearchResult{}, err
	}

	if dispErr != nil {
		return SearchResult{}, dispErr
	}

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	return SearchResult{Hits: hits, Fallback: fallback, IndexUnusable: indexUnusable}, nil
}
