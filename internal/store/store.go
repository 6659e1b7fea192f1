// Package store is the orchestrator exposing every operation spec.md §6
// names (store/append/edit/delete/search/list/rebuild/compact/reconstruct),
// wiring the data log (C1), corpus cache (C2), index builder/query (C3/C4),
// and compression/briefing (C5) together, and owning the directory-level
// lock acquisition spec.md §5 requires around every write. Grounded on
// original_source/src/store.rs for Store/Append/dupe-detection; edit and
// delete reuse the same append-tombstone-then-reappend pattern store.rs
// establishes, since no literal edit.rs/delete.rs source was retrievable.
package store

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/bm25idx"
	"github.com/amaranth-kb/amaranth/internal/clock"
	"github.com/amaranth-kb/amaranth/internal/corpus"
	"github.com/amaranth-kb/amaranth/internal/dlog"
	"github.com/amaranth-kb/amaranth/internal/fs"
)

// lockFileName is the advisory lock file spec.md §6 names for a
// knowledge-base directory.
const lockFileName = ".lock"

// Store is the orchestrator over one knowledge-base directory.
type Store struct {
	fsys    fs.FS
	locker  *fs.Locker
	dir     string
	cache   *corpus.Cache
	scratch *bm25idx.Scratch
}

// New creates a Store rooted at dir, using fsys for all I/O and the given
// corpus cache (pass [corpus.Global]() for the process-wide singleton).
func New(fsys fs.FS, dir string, cache *corpus.Cache) *Store {
	return &Store{
		fsys:   fsys,
		locker: fs.NewLocker(fsys),
		dir:    dir,
		cache:  cache,
	}
}

func (s *Store) lockPath() string  { return filepath.Join(s.dir, lockFileName) }
func (s *Store) logPath() string   { return dlog.Path(s.dir) }
func (s *Store) indexPath() string { return filepath.Join(s.dir, bm25idx.FileName) }

// ensureDir creates the knowledge-base directory if absent.
func (s *Store) ensureDir() error {
	if err := s.fsys.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("ensure kb dir: %w", err)
	}

	return nil
}

// Options configures [Store.Store] (spec.md §6's `store(...)` operation).
type Options struct {
	Tags       string
	HasTags    bool
	Force      bool
	Source     string
	HasSource  bool
	Confidence float64
	HasConf    bool
	Links      string
	HasLinks   bool
}

// Result is a human-readable confirmation message plus the offset of the
// newly written record, returned by every mutating operation.
type Result struct {
	Message string
	Offset  uint32
}

// Store appends a new entry to topic (spec.md §6: `store`). Duplicate
// detection (Jaccard ≥ 70% against live entries in the same topic) produces
// a non-fatal advisory in the message unless opts.Force is set
// (SPEC_FULL.md §D).
func (s *Store) Store(topic, text string, opts Options) (Result, error) {
	if err := s.ensureDir(); err != nil {
		return Result{}, err
	}

	lock, err := s.locker.Lock(s.lockPath())
	if err != nil {
		return Result{}, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = lock.Close() }()

	logPath, err := dlog.Ensure(s.fsys, s.dir)
	if err != nil {
		return Result{}, err
	}

	tags := s.resolveTags(opts, text)
	body := buildBody(text, tags, opts)

	tsMin := clock.NowMinutes()

	var dupeWarning string
	if !opts.Force {
		dupeWarning = s.checkDupe(topic, text)
	}

	offset, err := dlog.AppendEntry(s.fsys, logPath, topic, body, tsMin)
	if err != nil {
		return Result{}, err
	}

	s.cache.AppendToCache(s.fsys, logPath, topic, body, tsMin, offset)

	msg := formatStoreMessage(topic, text, tags, opts, tsMin, dupeWarning)

	return Result{Message: msg, Offset: offset}, nil
}

func (s *Store) resolveTags(opts Options, text string) string {
	if opts.HasTags {
		return normalizeTags(opts.Tags)
	}

	if auto := autoDetectTags(text); auto != "" {
		return auto
	}

	return ""
}

func buildBody(text, tags string, opts Options) string {
	var b strings.Builder

	if tags != "" {
		fmt.Fprintf(&b, "[tags: %s]\n", tags)
	}

	if opts.HasSource && opts.Source != "" {
		fmt.Fprintf(&b, "[source: %s]\n", opts.Source)
	}

	if opts.HasConf && opts.Confidence < 1.0 {
		fmt.Fprintf(&b, "[confidence: %g]\n", opts.Confidence)
	}

	if opts.HasLinks && opts.Links != "" {
		fmt.Fprintf(&b, "[links: %s]\n", opts.Links)
	}

	b.WriteString(text)

	return b.String()
}

func formatStoreMessage(topic, text, tags string, opts Options, tsMin int32, dupeWarning string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "stored in %s\n  @ %s", topic, clock.MinutesToDate(tsMin))

	if tags != "" {
		fmt.Fprintf(&b, " [tags: %s]", tags)
	}

	if opts.HasConf && opts.Confidence < 1.0 {
		fmt.Fprintf(&b, " (~%.0f%%)", opts.Confidence*100)
	}

	if opts.HasLinks && opts.Links != "" {
		fmt.Fprintf(&b, " [links: %s]", opts.Links)
	}

	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(&b, "\n  > %s", line)
	}

	if dupeWarning != "" {
		fmt.Fprintf(&b, "\n  dupe warning: %s", dupeWarning)
	}

	return b.String()
}

// checkDupe compares newText's tokens against every live entry in topic via
// Jaccard similarity, returning a short preview of the match when similarity
// is 70% or more (spec.md §7's "Duplicate warning").
func (s *Store) checkDupe(topic, newText string) string {
	var warning string

	_ = s.cache.WithCorpus(s.fsys, s.logPath(), func(entries []*corpus.Entry) {
		newTokens := dupeTokenSet(newText)
		if len(newTokens) < 6 {
			return
		}

		for _, e := range entries {
			if e.Topic != topic {
				continue
			}

			if jaccardAgainstTFMap(newTokens, e.TFMap) >= 0.70 {
				warning = previewOf(e.Body)

				return
			}
		}
	})

	return warning
}

// ListTopics returns every distinct topic with its live entry count, sorted
// alphabetically (spec.md §6: `list_topics`).
func (s *Store) ListTopics() ([]TopicInfo, error) {
	var out []TopicInfo

	err := s.cache.WithCorpus(s.fsys, s.logPath(), func(entries []*corpus.Entry) {
		counts := make(map[string]int)

		var order []string

		for _, e := range entries {
			if _, ok := counts[e.Topic]; !ok {
				order = append(order, e.Topic)
			}

			counts[e.Topic]++
		}

		sort.Strings(order)

		for _, t := range order {
			out = append(out, TopicInfo{Topic: t, Count: counts[t]})
		}
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// TopicInfo is one topic's live entry count.
type TopicInfo struct {
	Topic string
	Count int
}

// ListEntries returns every live entry in topic, in log order (spec.md §6:
// `list_entries`).
func (s *Store) ListEntries(topic string) ([]*corpus.Entry, error) {
	var out []*corpus.Entry

	err := s.cache.WithCorpus(s.fsys, s.logPath(), func(entries []*corpus.Entry) {
		for _, e := range entries {
			if e.Topic == topic {
				out = append(out, e)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// GetEntry returns the index-th live entry (0-based) within topic (spec.md
// §6: `get_entry`).
func (s *Store) GetEntry(topic string, index int) (*corpus.Entry, error) {
	entries, err := s.ListEntries(topic)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(entries) {
		return nil, fmt.Errorf("%w: %s[%d]", ErrNotFound, topic, index)
	}

	return entries[index], nil
}

// RebuildIndex rebuilds index.bin from the live corpus and atomically
// replaces it (spec.md §6: `rebuild_index`).
func (s *Store) RebuildIndex() error {
	if err := s.ensureDir(); err != nil {
		return err
	}

	if _, err := dlog.Ensure(s.fsys, s.dir); err != nil {
		return err
	}

	return s.rebuildIndexLocked()
}

func (s *Store) rebuildIndexLocked() error {
	var buildErr error

	err := s.cache.WithCorpus(s.fsys, s.logPath(), func(entries []*corpus.Entry) {
		buildErr = bm25idx.BuildAndWrite(s.fsys, s.indexPath(), entries)
	})
	if err != nil {
		return err
	}

	return buildErr
}

// CompactLog rewrites data.log to contain only live entries, invalidates the
// corpus cache, and rebuilds the index (offsets change on compaction, so
// both must be refreshed; spec.md §6: `compact_log`).
func (s *Store) CompactLog() (dlog.CompactResult, error) {
	lock, err := s.locker.Lock(s.lockPath())
	if err != nil {
		return dlog.CompactResult{}, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = lock.Close() }()

	result, err := dlog.Compact(s.fsys, s.dir)
	if err != nil {
		return dlog.CompactResult{}, err
	}

	s.cache.Invalidate(s.logPath())

	if err := s.rebuildIndexLocked(); err != nil {
		return result, err
	}

	return result, nil
}

// MigrateLegacy imports legacyDir's "<topic>.md" files into this store's
// data log, one entry per "## DATE" section, then invalidates the corpus
// cache and rebuilds the index so the imported entries are immediately
// searchable (spec.md §4.1's one-time legacy-markdown migration).
func (s *Store) MigrateLegacy(legacyDir string) (int, error) {
	if err := s.ensureDir(); err != nil {
		return 0, err
	}

	lock, err := s.locker.Lock(s.lockPath())
	if err != nil {
		return 0, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = lock.Close() }()

	count, err := dlog.MigrateLegacy(s.fsys, legacyDir, s.dir)
	if err != nil {
		return count, err
	}

	s.cache.Invalidate(s.logPath())

	return count, s.rebuildIndexLocked()
}
