package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaranth-kb/amaranth/internal/store"
)

func TestDeleteByLastRemovesMostRecentEntry(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store("cache", "older", store.Options{})
	require.NoError(t, err)
	_, err = s.Store("cache", "newer", store.Options{})
	require.NoError(t, err)

	_, err = s.DeleteByLast("cache")
	require.NoError(t, err)

	entries, err := s.ListEntries("cache")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "older", entries[0].Body)
}

func TestDeleteByMatchFindsContainingEntry(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store("cache", "alpha beta", store.Options{})
	require.NoError(t, err)
	_, err = s.Store("cache", "gamma delta", store.Options{})
	require.NoError(t, err)

	_, err = s.DeleteByMatch("cache", "gamma")
	require.NoError(t, err)

	entries, err := s.ListEntries("cache")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alpha beta", entries[0].Body)
}

func TestDeleteByIndexRemovesTargetedEntry(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store("cache", "entry zero", store.Options{})
	require.NoError(t, err)
	_, err = s.Store("cache", "entry one", store.Options{})
	require.NoError(t, err)

	_, err = s.DeleteByIndex("cache", 0)
	require.NoError(t, err)

	entries, err := s.ListEntries("cache")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "entry one", entries[0].Body)
}

func TestDeleteByIndexOutOfRangeIsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store("cache", "only entry", store.Options{})
	require.NoError(t, err)

	_, err = s.DeleteByIndex("cache", 3)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteAllRemovesEveryLiveEntryInTopic(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store("cache", "one", store.Options{})
	require.NoError(t, err)
	_, err = s.Store("cache", "two", store.Options{})
	require.NoError(t, err)
	_, err = s.Store("auth", "unrelated", store.Options{})
	require.NoError(t, err)

	n, err := s.DeleteAll("cache")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cacheEntries, err := s.ListEntries("cache")
	require.NoError(t, err)
	assert.Len(t, cacheEntries, 0)

	authEntries, err := s.ListEntries("auth")
	require.NoError(t, err)
	assert.Len(t, authEntries, 1)
}
