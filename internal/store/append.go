package store

import (
	"fmt"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/corpus"
	"github.com/amaranth-kb/amaranth/internal/dlog"
)

// Append adds text to the last live entry in topic: the old record is
// tombstoned and a new record combining old body + text is appended under
// the original timestamp (spec.md §6: `append`; grounded on store.rs's
// append, the only crash-safe shape consistent with C1's append-only,
// tombstone-only deletion model).
func (s *Store) Append(topic, text string) (Result, error) {
	return s.appendTo(func(entries []*corpus.Entry) (*corpus.Entry, error) {
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].Topic == topic {
				return entries[i], nil
			}
		}

		return nil, fmt.Errorf("%w: %s not found — use 'store' first", ErrNotFound, topic)
	}, text)
}

// AppendByIndex adds text to the index-th live entry within topic (0-based).
func (s *Store) AppendByIndex(topic string, index int, text string) (Result, error) {
	return s.appendTo(func(entries []*corpus.Entry) (*corpus.Entry, error) {
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
	}, text)
}

// AppendByTag adds text to the most recent live entry carrying tag, across
// every topic.
func (s *Store) AppendByTag(tag, text string) (Result, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))

	return s.appendTo(func(entries []*corpus.Entry) (*corpus.Entry, error) {
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].HasTag(tag) {
				return entries[i], nil
			}
		}

		return nil, fmt.Errorf("%w: no entry tagged %q", ErrNotFound, tag)
	}, text)
}

// appendTo locates the target entry via pick (run against the live corpus
// under the write lock), appends a new record combining its body with text
// under the original timestamp, then tombstones the old record.
func (s *Store) appendTo(pick func([]*corpus.Entry) (*corpus.Entry, error), text string) (Result, error) {
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
		target    *corpus.Entry
		pickErr   error
		topicName string
	)

	err = s.cache.WithCorpus(s.fsys, logPath, func(entries []*corpus.Entry) {
		target, pickErr = pick(entries)
		if target != nil {
			topicName = target.Topic
		}
	})
	if err != nil {
		return Result{}, err
	}

	if pickErr != nil {
		return Result{}, pickErr
	}

	newBody := strings.TrimRight(target.Body, "\n") + "\n" + text

	offset, err := dlog.AppendEntry(s.fsys, logPath, topicName, newBody, target.TimestampMin)
	if err != nil {
		return Result{}, err
	}

	if err := dlog.AppendTombstone(s.fsys, logPath, target.Offset); err != nil {
		return Result{}, err
	}

	s.cache.Invalidate(logPath)

	return Result{Message: fmt.Sprintf("appended to entry in %s", topicName), Offset: offset}, nil
}
