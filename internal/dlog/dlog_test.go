package dlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaranth-kb/amaranth/internal/fs"
)

func newTestLog(t *testing.T) (fs.FS, string, string) {
	t.Helper()

	fsys := fs.NewReal()
	dir := t.TempDir()

	path, err := Ensure(fsys, dir)
	require.NoError(t, err)

	return fsys, dir, path
}

func TestEnsure_CreatesHeaderOnce(t *testing.T) {
	fsys := fs.NewReal()
	dir := t.TempDir()

	path, err := Ensure(fsys, dir)
	require.NoError(t, err)

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, logHeaderSize)
	assert.Equal(t, "AMRL", string(data[0:4]))

	// second call is a no-op, not a truncate-and-rewrite.
	path2, err := Ensure(fsys, dir)
	require.NoError(t, err)
	assert.Equal(t, path, path2)

	data2, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, data2)
}

func TestAppendEntry_RoundTrip(t *testing.T) {
	fsys, _, path := newTestLog(t)

	off1, err := AppendEntry(fsys, path, "cache", "first note", 100)
	require.NoError(t, err)

	off2, err := AppendEntry(fsys, path, "cache", "second note", 200)
	require.NoError(t, err)

	assert.Less(t, off1, off2, "offsets must be monotonically increasing")

	e1, err := ReadEntry(fsys, path, off1)
	require.NoError(t, err)
	assert.Equal(t, "cache", e1.Topic)
	assert.Equal(t, "first note", e1.Body)
	assert.Equal(t, int32(100), e1.TimestampMin)
	assert.Equal(t, off1, e1.Offset)

	e2, err := ReadEntry(fsys, path, off2)
	require.NoError(t, err)
	assert.Equal(t, "second note", e2.Body)
	assert.Equal(t, int32(200), e2.TimestampMin)
}

func TestAppendEntry_RejectsOverlongTopic(t *testing.T) {
	fsys, _, path := newTestLog(t)

	longTopic := make([]byte, 256)
	for i := range longTopic {
		longTopic[i] = 'x'
	}

	_, err := AppendEntry(fsys, path, string(longTopic), "body", 0)
	assert.ErrorIs(t, err, ErrTopicTooLong)
}

func TestIterLive_ReturnsEntriesInOrder(t *testing.T) {
	fsys, _, path := newTestLog(t)

	var offsets []uint32
	for i, body := range []string{"A", "B", "C"} {
		off, err := AppendEntry(fsys, path, "cache", body, int32(i))
		require.NoError(t, err)
		offsets = append(offsets, off)
	}

	entries, err := IterLive(fsys, path)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for i, e := range entries {
		assert.Equal(t, offsets[i], e.Offset)
	}
	assert.Equal(t, "A", entries[0].Body)
	assert.Equal(t, "B", entries[1].Body)
	assert.Equal(t, "C", entries[2].Body)
}

// TestIterLive_TombstoneHidesEntry is the spec.md §8 example 3 scenario:
// store("cache","A") at o1, store("cache","B"), tombstone o1, IterLive
// returns only "B".
func TestIterLive_TombstoneHidesEntry(t *testing.T) {
	fsys, _, path := newTestLog(t)

	o1, err := AppendEntry(fsys, path, "cache", "A", 0)
	require.NoError(t, err)

	_, err = AppendEntry(fsys, path, "cache", "B", 1)
	require.NoError(t, err)

	require.NoError(t, AppendTombstone(fsys, path, o1))

	entries, err := IterLive(fsys, path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "B", entries[0].Body)
}

func TestIterLive_TombstoneSubsetLeavesComplement(t *testing.T) {
	fsys, _, path := newTestLog(t)

	var offsets []uint32
	for _, body := range []string{"A", "B", "C", "D"} {
		off, err := AppendEntry(fsys, path, "t", body, 0)
		require.NoError(t, err)
		offsets = append(offsets, off)
	}

	require.NoError(t, AppendTombstone(fsys, path, offsets[1]))
	require.NoError(t, AppendTombstone(fsys, path, offsets[3]))

	entries, err := IterLive(fsys, path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].Body)
	assert.Equal(t, "C", entries[1].Body)
}

// TestIterLive_TruncatesOnMalformedTrailingRecord covers I-LOG-1/I-LOG-2:
// a record whose declared length runs past EOF ends the scan without error,
// and every earlier record stays valid.
func TestIterLive_TruncatesOnMalformedTrailingRecord(t *testing.T) {
	fsys, _, path := newTestLog(t)

	_, err := AppendEntry(fsys, path, "cache", "good entry", 0)
	require.NoError(t, err)

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)

	// Append a truncated entry header claiming a body far longer than what
	// follows it.
	truncated := append([]byte{}, data...)
	badHdr := entryHeader(1, 1000, 0)
	truncated = append(truncated, badHdr[:]...)
	truncated = append(truncated, 't') // topic byte only, body never written

	require.NoError(t, fsys.WriteFileAtomic(path, truncated, 0o644))

	entries, err := IterLive(fsys, path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "good entry", entries[0].Body)
}

func TestIterLive_RejectsBadMagic(t *testing.T) {
	fsys := fs.NewReal()
	dir := t.TempDir()
	path := Path(dir)
	require.NoError(t, fsys.WriteFileAtomic(path, []byte("XXXX\x01\x00\x00\x00"), 0o644))

	_, err := IterLive(fsys, path)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestIterLive_RejectsTooSmall(t *testing.T) {
	fsys := fs.NewReal()
	dir := t.TempDir()
	path := Path(dir)
	require.NoError(t, fsys.WriteFileAtomic(path, []byte("AM"), 0o644))

	_, err := IterLive(fsys, path)
	assert.ErrorIs(t, err, ErrLogTooSmall)
}

// TestCompact_PreservesLiveEntriesAndOrder is P-COMPACT: IterLive before and
// after Compact returns equal (topic,body,ts) tuples in the same order,
// though offsets may differ.
func TestCompact_PreservesLiveEntriesAndOrder(t *testing.T) {
	fsys, dir, path := newTestLog(t)

	o1, err := AppendEntry(fsys, path, "cache", "A", 10)
	require.NoError(t, err)

	_, err = AppendEntry(fsys, path, "cache", "B", 20)
	require.NoError(t, err)

	_, err = AppendEntry(fsys, path, "other", "C", 30)
	require.NoError(t, err)

	require.NoError(t, AppendTombstone(fsys, path, o1))

	before, err := IterLive(fsys, path)
	require.NoError(t, err)
	require.Len(t, before, 2)

	result, err := Compact(fsys, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.EntryCount)
	assert.Less(t, result.AfterSize, result.BeforeSize)

	after, err := IterLive(fsys, path)
	require.NoError(t, err)
	require.Len(t, after, 2)

	for i := range before {
		assert.Equal(t, before[i].Topic, after[i].Topic)
		assert.Equal(t, before[i].Body, after[i].Body)
		assert.Equal(t, before[i].TimestampMin, after[i].TimestampMin)
	}
}

func TestAppendTombstone_UnknownTargetIsIgnored(t *testing.T) {
	fsys, _, path := newTestLog(t)

	_, err := AppendEntry(fsys, path, "cache", "A", 0)
	require.NoError(t, err)

	// Tombstone referencing an offset that was never an entry record.
	require.NoError(t, AppendTombstone(fsys, path, 9999))

	entries, err := IterLive(fsys, path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A", entries[0].Body)
}
