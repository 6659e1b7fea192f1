package store_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaranth-kb/amaranth/internal/store"
)

func TestEditByMatchReplacesBodyAndKeepsMetadata(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store("cache", "stale claim about eviction", store.Options{Tags: "gotcha", HasTags: true})
	require.NoError(t, err)

	_, err = s.EditByMatch("cache", "stale claim", "corrected claim about eviction")
	require.NoError(t, err)

	entries, err := s.ListEntries("cache")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Body, "corrected claim about eviction")
	assert.NotContains(t, entries[0].Body, "stale claim")
	assert.Contains(t, entries[0].Body, "[modified:")
	assert.True(t, entries[0].HasTag("gotcha"))
}

func TestEditByMatchNoHitIsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store("cache", "unrelated body", store.Options{})
	require.NoError(t, err)

	_, err = s.EditByMatch("cache", "needle not present", "replacement")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEditByIndexReplacesTargetedEntryOnly(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store("cache", "entry zero", store.Options{})
	require.NoError(t, err)
	_, err = s.Store("cache", "entry one", store.Options{})
	require.NoError(t, err)

	_, err = s.EditByIndex("cache", 0, "replaced entry zero")
	require.NoError(t, err)

	entries, err := s.ListEntries("cache")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var sawReplaced, sawUntouched bool

	for _, e := range entries {
		if e.Body == "entry one" {
			sawUntouched = true
		}

		if strings.Contains(e.Body, "replaced entry zero") {
			sawReplaced = true
		}
	}

	assert.True(t, sawUntouched, "entry one must be unchanged")
	assert.True(t, sawReplaced, "entry zero must be replaced")
}
