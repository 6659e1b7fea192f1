package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaranth-kb/amaranth/internal/store"
)

func TestAppendAddsToMostRecentEntryInTopic(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store("cache", "first note", store.Options{})
	require.NoError(t, err)

	_, err = s.Append("cache", "second line")
	require.NoError(t, err)

	entries, err := s.ListEntries("cache")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Body, "first note")
	assert.Contains(t, entries[0].Body, "second line")
}

func TestAppendToMissingTopicIsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Append("ghost", "text")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAppendByIndexTargetsSpecificEntry(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store("cache", "entry zero", store.Options{})
	require.NoError(t, err)
	_, err = s.Store("cache", "entry one", store.Options{})
	require.NoError(t, err)

	_, err = s.AppendByIndex("cache", 0, "appended to zero")
	require.NoError(t, err)

	// appendTo tombstones the old entry-zero record and appends the combined
	// body as a new record at the end of the log, so live order becomes
	// [entry one, combined entry zero].
	entries, err := s.ListEntries("cache")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "entry one", entries[0].Body)
	assert.Contains(t, entries[1].Body, "entry zero")
	assert.Contains(t, entries[1].Body, "appended to zero")
}

func TestAppendByTagFindsMostRecentAcrossTopics(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store("auth", "login flow", store.Options{Tags: "decision", HasTags: true})
	require.NoError(t, err)
	_, err = s.Store("cache", "eviction policy", store.Options{Tags: "decision", HasTags: true})
	require.NoError(t, err)

	_, err = s.AppendByTag("decision", "more context")
	require.NoError(t, err)

	cacheEntries, err := s.ListEntries("cache")
	require.NoError(t, err)
	require.Len(t, cacheEntries, 1)
	assert.Contains(t, cacheEntries[0].Body, "more context")

	authEntries, err := s.ListEntries("auth")
	require.NoError(t, err)
	require.Len(t, authEntries, 1)
	assert.NotContains(t, authEntries[0].Body, "more context")
}
