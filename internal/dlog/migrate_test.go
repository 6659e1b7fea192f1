package dlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amaranth-kb/amaranth/internal/fs"
)

func TestMigrateLegacy_SplitsSectionsPerTopicFile(t *testing.T) {
	fsys := fs.NewReal()
	dir := t.TempDir()

	cache := "## 2024-01-15\nLRU eviction beats random under skew.\n\n" +
		"## 2024-02-01 09:30\nBumped shard count to 16.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cache.md"), []byte(cache), 0o644))

	auth := "## 2024-03-01\nToken refresh needs a 5s skew buffer.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.md"), []byte(auth), 0o644))

	// excluded whole-directory files must not become topics.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "INDEX.md"), []byte("## 2024-01-01\nignored\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MEMORY.md"), []byte("## 2024-01-01\nignored\n"), 0o644))

	count, err := MigrateLegacy(fsys, dir, dir)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	logPath := Path(dir)
	entries, err := IterLive(fsys, logPath)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byTopic := map[string][]Entry{}
	for _, e := range entries {
		byTopic[e.Topic] = append(byTopic[e.Topic], e)
	}

	require.Len(t, byTopic["cache"], 2)
	require.Len(t, byTopic["auth"], 1)

	require.Equal(t, "LRU eviction beats random under skew.", byTopic["cache"][0].Body)
	require.Equal(t, "Bumped shard count to 16.", byTopic["cache"][1].Body)
	require.Equal(t, "Token refresh needs a 5s skew buffer.", byTopic["auth"][0].Body)

	require.NotZero(t, byTopic["cache"][0].TimestampMin)
	require.Less(t, byTopic["cache"][0].TimestampMin, byTopic["cache"][1].TimestampMin)
}

func TestMigrateLegacy_UnparsableHeaderFallsBackToZero(t *testing.T) {
	fsys := fs.NewReal()
	dir := t.TempDir()

	content := "## not-a-date\nsome note\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.md"), []byte(content), 0o644))

	count, err := MigrateLegacy(fsys, dir, dir)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	entries, err := IterLive(fsys, Path(dir))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, int32(0), entries[0].TimestampMin)
}

func TestSplitSections_IgnoresTextBeforeFirstHeader(t *testing.T) {
	content := "preamble with no header\n## 2024-01-01\nbody one\n"

	sections := splitSections(content)
	require.Len(t, sections, 1)
	require.Equal(t, "## 2024-01-01", sections[0].header)
	require.Equal(t, "body one", sections[0].body)
}
