package store

import (
	"fmt"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/corpus"
	"github.com/amaranth-kb/amaranth/internal/dlog"
)

// DeleteByLast tombstones the most recent live entry in topic (spec.md §6:
// `delete_by_last`).
func (s *Store) DeleteByLast(topic string) (Result, error) {
	return s.deleteOne(func(entries []*corpus.Entry) (*corpus.Entry, error) {
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].Topic == topic {
				return entries[i], nil
			}
		}

		return nil, fmt.Errorf("%w: %s not found", ErrNotFound, topic)
	})
}

// DeleteByMatch tombstones the most recent live entry in topic whose body
// contains needle (spec.md §6: `delete_by_match`).
func (s *Store) DeleteByMatch(topic, needle string) (Result, error) {
	return s.deleteOne(func(entries []*corpus.Entry) (*corpus.Entry, error) {
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if e.Topic == topic && strings.Contains(e.Body, needle) {
				return e, nil
			}
		}

		return nil, fmt.Errorf("%w: no entry in %s matching %q", ErrNotFound, topic, needle)
	})
}

// DeleteByIndex tombstones the index-th live entry within topic (0-based;
// spec.md §6: `delete_by_index`).
func (s *Store) DeleteByIndex(topic string, index int) (Result, error) {
	return s.deleteOne(func(entries []*corpus.Entry) (*corpus.Entry, error) {
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
	})
}

func (s *Store) deleteOne(pick func([]*corpus.Entry) (*corpus.Entry, error)) (Result, error) {
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

	if err := dlog.AppendTombstone(s.fsys, logPath, target.Offset); err != nil {
		return Result{}, err
	}

	s.cache.Invalidate(logPath)

	return Result{Message: fmt.Sprintf("deleted entry in %s", target.Topic)}, nil
}

// DeleteAll tombstones every live entry in topic, returning how many were
// removed (spec.md §6: `delete_all`).
func (s *Store) DeleteAll(topic string) (int, error) {
	lock, err := s.locker.Lock(s.lockPath())
	if err != nil {
		return 0, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = lock.Close() }()

	logPath, err := dlog.Ensure(s.fsys, s.dir)
	if err != nil {
		return 0, err
	}

	var targets []*corpus.Entry

	err = s.cache.WithCorpus(s.fsys, logPath, func(entries []*corpus.Entry) {
		for _, e := range entries {
			if e.Topic == topic {
				targets = append(targets, e)
			}
		}
	})
	if err != nil {
		return 0, err
	}

	for _, e := range targets {
		if err := dlog.AppendTombstone(s.fsys, logPath, e.Offset); err != nil {
			return 0, err
		}
	}

	s.cache.Invalidate(logPath)

	return len(targets), nil
}
