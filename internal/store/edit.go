package store

import (
	"fmt"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/clock"
	"github.com/amaranth-kb/amaranth/internal/corpus"
	"github.com/amaranth-kb/amaranth/internal/dlog"
)

// EditByMatch replaces the body of the most recent live entry in topic whose
// body contains needle with newText, preserving any in-body metadata lines
// and setting `[modified: ...]` (spec.md §6: `edit_by_match`; same
// reappend-then-tombstone pattern as [Store.Append], since C1 has no
// in-place mutation).
func (s *Store) EditByMatch(topic, needle, newText string) (Result, error) {
	return s.editEntry(func(entries []*corpus.Entry) (*corpus.Entry, error) {
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if e.Topic == topic && strings.Contains(e.Body, needle) {
				return e, nil
			}
		}

		return nil, fmt.Errorf("%w: no entry in %s matching %q", ErrNotFound, topic, needle)
	}, newText)
}

// EditByIndex replaces the body of the index-th live entry within topic
// (0-based).
func (s *Store) EditByIndex(topic string, index int, newText string) (Result, error) {
	return s.editEntry(func(entries []*corpus.Entry) (*corpus.Entry, error) {
		matches := make([]*corpus.Entry, 0)

		for _, e := range entries {
			if e.Topic == topic {
				matches = append(matches, e)
			}
		}

		if index < 0 || index >= len(matches) {
			return nil, fmt.Errorf("%w: %s[%d]", ErrNotFound, topic, index)
		}

		return matches[index], nil
	}, newText)
}

func (s *Store) editEntry(pick func([]*corpus.Entry) (*corpus.Entry, error), newText string) (Result, error) {
	lock, err := s.locker.Lock(s.lockPath())
	if err != nil {
		return Result{}, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = lock.Close() }()

	logPath, err := dlog.Ensure(s.fsys, s.dir)
	if err != nil {
		return Result{}, err
	}

	var (
		target  *corpus.Entry
		pickErr error
	)

	err = s.cache.WithCorpus(s.fsys, logPath, func(entries []*corpus.Entry) {
		target, pickErr = pick(entries)
	})
	if err != nil {
		return Result{}, err
	}

	if pickErr != nil {
		return Result{}, pickErr
	}

	newBody := replaceContentLines(target.Body, newText) + fmt.Sprintf("\n[modified: %s]", clock.MinutesToDate(clock.NowMinutes()))

	offset, err := dlog.AppendEntry(s.fsys, logPath, target.Topic, newBody, target.TimestampMin)
	if err != nil {
		return Result{}, err
	}

	if err := dlog.AppendTombstone(s.fsys, logPath, target.Offset); err != nil {
		return Result{}, err
	}

	s.cache.Invalidate(logPath)

	return Result{Message: fmt.Sprintf("edited entry in %s", target.Topic), Offset: offset}, nil
}

// replaceContentLines keeps every leading in-body metadata line ("[...]")
// unchanged and replaces everything after them with newText.
func replaceContentLines(body, newText string) string {
	lines := strings.Split(body, "\n")

	var metaLines []string

	i := 0
	for ; i < len(lines); i++ {
		if corpus.IsMetadataLine(lines[i]) {
			metaLines = append(metaLines, lines[i])

			continue
		}

		break
	}

	if len(metaLines) == 0 {
		return newText
	}

	return strings.Join(metaLines, "\n") + "\n" + newText
}
