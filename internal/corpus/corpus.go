// Package corpus implements the process-wide corpus cache (spec.md §4.2,
// component C2): a parsed, lowercased, token-counted view of live entries,
// invalidated by data.log's mtime.
//
// The original system cached one entry per "## DATE" section across many
// per-topic markdown files (original_source/src/cache.rs). This module's
// entries already live in a single append-only data.log (spec.md §3), so the
// cache keys on that one file's mtime instead of a path list; parsing means
// decoding the log's live records and their in-body metadata lines, not
// splitting on section headers.
package corpus

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/amaranth-kb/amaranth/internal/dlog"
	"github.com/amaranth-kb/amaranth/internal/fs"
	"github.com/amaranth-kb/amaranth/internal/tokenize"
)

// Link is one outgoing narrative link parsed from a "[links: ...]" line.
type Link struct {
	Topic string
	Index int
}

// Entry is one cached, parsed view of a live data.log entry.
type Entry struct {
	Topic        string
	Body         string // original body, including metadata lines
	TextLower    string // lowercased body, for search
	WordCount    int
	TFMap        map[string]int // term -> frequency, from TextLower tokens
	Tags         []string       // lowercased, from "[tags: ...]"
	Source       string         // from "[source: ...]", empty if absent
	HasSource    bool
	Confidence   float64 // from "[confidence: ...]", default 1.0
	Links        []Link
	TimestampMin int32
	Offset       uint32
}

// HasTag reports whether the entry carries the given lowercased tag.
func (e *Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// DaysOld returns how many days old the entry is relative to nowDays
// (floor(minutes/1440) days since epoch, per spec.md §6).
func (e *Entry) DaysOld(nowDays int64) int64 {
	entryDays := int64(e.TimestampMin) / 1440

	return nowDays - entryDays
}

type cachedLog struct {
	mtime   time.Time
	entries []*Entry
}

// Cache is the process-wide singleton mapping a data.log path to its parsed
// entries, refreshed when the file's mtime changes (I-CACHE-1).
type Cache struct {
	mu   sync.Mutex
	logs map[string]*cachedLog
}

var global = &Cache{logs: make(map[string]*cachedLog)}

// Global returns the process-wide cache singleton.
func Global() *Cache { return global }

// WithCorpus refreshes the cache entry for logPath if stale, then invokes fn
// with the borrowed, up-to-date entry slice. fn must not call back into
// cache APIs: the mutex is held for the duration of the call.
func (c *Cache) WithCorpus(fsys fs.FS, logPath string, fn func(entries []*Entry)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.refresh(fsys, logPath)
	if err != nil {
		return err
	}

	fn(entries)

	return nil
}

func (c *Cache) refresh(fsys fs.FS, logPath string) ([]*Entry, error) {
	info, err := fsys.Stat(logPath)
	if err != nil {
		delete(c.logs, logPath)

		return nil, err
	}

	mtime := info.ModTime()

	if cl, ok := c.logs[logPath]; ok && cl.mtime.Equal(mtime) {
		return cl.entries, nil
	}

	liveEntries, err := dlog.IterLive(fsys, logPath)
	if err != nil {
		return nil, err
	}

	parsed := make([]*Entry, 0, len(liveEntries))
	for _, le := range liveEntries {
		parsed = append(parsed, parseEntry(le))
	}

	c.logs[logPath] = &cachedLog{mtime: mtime, entries: parsed}

	return parsed, nil
}

// Invalidate drops the cached parse for logPath, forcing a reparse on next use.
func (c *Cache) Invalidate(logPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.logs, logPath)
}

// InvalidateAll drops every cached log.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logs = make(map[string]*cachedLog)
}

// AppendToCache inserts a freshly-written entry without re-reading logPath
// (write-through): the next WithCorpus call for logPath still reparses if
// the file's mtime has moved past what was recorded, but callers that hold
// the write lock across the log append typically call this immediately
// after [dlog.AppendEntry] so readers in the same process see the write
// without waiting on a stat.
func (c *Cache) AppendToCache(fsys fs.FS, logPath, topic, body string, tsMin int32, offset uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cl, ok := c.logs[logPath]
	if !ok {
		return
	}

	info, err := fsys.Stat(logPath)
	if err != nil {
		delete(c.logs, logPath)

		return
	}

	cl.entries = append(cl.entries, parseEntry(dlog.Entry{
		Offset: offset, Topic: topic, Body: body, TimestampMin: tsMin,
	}))
	cl.mtime = info.ModTime()
}

func parseEntry(le dlog.Entry) *Entry {
	e := &Entry{
		Topic:        le.Topic,
		Body:         le.Body,
		TextLower:    strings.ToLower(le.Body),
		TimestampMin: le.TimestampMin,
		Offset:       le.Offset,
		Confidence:   1.0,
	}

	// Unknown bracketed lines stay in the body but are left out of the term
	// counts; the four recognized metadata lines are still tokenized.
	var scored []string

	for _, line := range strings.Split(e.TextLower, "\n") {
		t := strings.TrimSpace(line)
		if IsMetadataLine(t) && !strings.HasPrefix(t, "[tags: ") && !strings.HasPrefix(t, "[source: ") &&
			!strings.HasPrefix(t, "[confidence: ") && !strings.HasPrefix(t, "[links: ") {
			continue
		}

		scored = append(scored, line)
	}

	tokens := tokenize.Tokenize(strings.Join(scored, "\n"))
	e.WordCount = len(tokens)
	e.TFMap = make(map[string]int, len(tokens))

	for _, t := range tokens {
		e.TFMap[t]++
	}

	for _, line := range strings.Split(le.Body, "\n") {
		parseMetadataLine(e, line)
	}

	return e
}

func parseMetadataLine(e *Entry, line string) {
	switch {
	case strings.HasPrefix(line, "[tags: ") && strings.HasSuffix(line, "]"):
		inner := line[len("[tags: ") : len(line)-1]
		for _, t := range strings.Split(inner, ",") {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" {
				e.Tags = append(e.Tags, t)
			}
		}

	case strings.HasPrefix(line, "[source: ") && strings.HasSuffix(line, "]"):
		e.Source = strings.TrimSpace(line[len("[source: ") : len(line)-1])
		e.HasSource = true

	case strings.HasPrefix(line, "[confidence: ") && strings.HasSuffix(line, "]"):
		inner := strings.TrimSpace(line[len("[confidence: ") : len(line)-1])
		if v, err := strconv.ParseFloat(inner, 64); err == nil {
			e.Confidence = v
		}

	case strings.HasPrefix(line, "[links: ") && strings.HasSuffix(line, "]"):
		inner := line[len("[links: ") : len(line)-1]
		for _, pair := range strings.Fields(inner) {
			topic, idxStr, ok := strings.Cut(pair, ":")
			if !ok {
				continue
			}

			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				continue
			}

			e.Links = append(e.Links, Link{Topic: topic, Index: idx})
		}
	}
}

// IsMetadataLine reports whether line is a recognized (or unrecognized but
// bracketed) in-body metadata line, per spec.md §6: unknown bracketed lines
// are preserved but ignored by scoring and display.
func IsMetadataLine(line string) bool {
	t := strings.TrimSpace(line)

	return strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]")
}

// FirstContent returns the first non-blank, non-metadata line of body, or
// "" if none exists.
func FirstContent(body string) string {
	for _, line := range strings.Split(body, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || IsMetadataLine(t) {
			continue
		}

		return line
	}

	return ""
}
