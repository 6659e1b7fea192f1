package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaranth-kb/amaranth/internal/bm25idx"
	"github.com/amaranth-kb/amaranth/internal/score"
	"github.com/amaranth-kb/amaranth/internal/store"
)

func TestSearchFindsStoredEntryWithoutIndex(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store("cache", "lru eviction policy details", store.Options{})
	require.NoError(t, err)

	res, err := s.Search("eviction", 10, bm25idx.ModeOr, score.Filter{})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "cache", res.Hits[0].Entry.Topic)
}

func TestSearchUsesRebuiltIndex(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store("cache", "lru eviction policy details", store.Options{})
	require.NoError(t, err)
	_, err = s.Store("auth", "token refresh flow", store.Options{})
	require.NoError(t, err)

	require.NoError(t, s.RebuildIndex())

	res, err := s.Search("token", 10, bm25idx.ModeOr, score.Filter{})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "auth", res.Hits[0].Entry.Topic)
}

func TestSearchRespectsLimit(t *testing.T) {
	s := newTestStore(t)

	for _, body := range []string{"token alpha", "token beta", "token gamma"} {
		_, err := s.Store("auth", body, store.Options{})
		require.NoError(t, err)
	}

	res, err := s.Search("token", 2, bm25idx.ModeOr, score.Filter{})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 2)
}

func TestSearchTagFilterNarrowsResults(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store("auth", "token refresh flow", store.Options{Tags: "decision", HasTags: true})
	require.NoError(t, err)
	_, err = s.Store("cache", "token mentioned here too", store.Options{})
	require.NoError(t, err)

	res, err := s.Search("token", 10, bm25idx.ModeOr, score.Filter{Tag: "decision", HasTag: true})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "auth", res.Hits[0].Entry.Topic)
}
