// Package dlog implements the append-only data log (spec.md §3, §4.1): the
// primary source of truth for entries, never modified in place. Deletes are
// recorded as tombstone records appended after the entry they target.
package dlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/amaranth-kb/amaranth/internal/fs"
)

// LogMagic is the 4-byte magic at the start of data.log.
var LogMagic = [4]byte{'A', 'M', 'R', 'L'}

// LogVersion is the current on-disk log version.
const LogVersion = 1

const (
	logHeaderSize    = 8 // magic(4) + version_u32_le(4)
	entryHeaderSize  = 12
	tombstoneRecSize = 8
	maxTopicLen      = 255

	tagEntry     = 0x01
	tagTombstone = 0x02
)

// Sentinel errors. See spec.md §7's error taxonomy: these are Storage /
// Invalid argument / Corrupt index kinds, not distinguished as Go types.
var (
	ErrTopicTooLong   = errors.New("topic exceeds 255 bytes")
	ErrBadMagic       = errors.New("bad data.log magic")
	ErrLogTooSmall    = errors.New("data.log too small")
	ErrNotEntryRecord = errors.New("not an entry record")
	ErrOutOfBounds    = errors.New("record extends past end of file")
)

// Entry is one live entry read back from the log.
type Entry struct {
	Offset       uint32
	Topic        string
	Body         string
	TimestampMin int32
}

// FileName is the data log's fixed name within a knowledge-base directory.
const FileName = "data.log"

// Path returns the data.log path within dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Ensure creates data.log with its header if absent. Returns the path.
func Ensure(fsys fs.FS, dir string) (string, error) {
	path := Path(dir)

	exists, err := fsys.Exists(path)
	if err != nil {
		return "", fmt.Errorf("stat data.log: %w", err)
	}

	if exists {
		return path, nil
	}

	f, err := fsys.Create(path)
	if err != nil {
		return "", fmt.Errorf("create data.log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var hdr [logHeaderSize]byte
	copy(hdr[0:4], LogMagic[:])
	binary.LittleEndian.PutUint32(hdr[4:8], LogVersion)

	if _, err := f.Write(hdr[:]); err != nil {
		return "", fmt.Errorf("write data.log header: %w", err)
	}

	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("sync data.log: %w", err)
	}

	return path, nil
}

// AppendEntry opens the log for append and writes one entry record,
// returning the offset of the record's first byte. Callers are responsible
// for holding the directory write lock (spec.md §5) across this call.
func AppendEntry(fsys fs.FS, logPath, topic, body string, tsMin int32) (uint32, error) {
	if len(topic) > maxTopicLen {
		return 0, fmt.Errorf("%w: %d bytes", ErrTopicTooLong, len(topic))
	}

	f, err := fsys.OpenFile(logPath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open data.log: %w", err)
	}
	defer func() { _ = f.Close() }()

	return appendEntryTo(f, topic, body, tsMin, true)
}

// appendEntryTo writes one entry record to an already-open, append-positioned
// file. When sync is true it fsyncs before returning (single-append path);
// batch writers may pass false and sync once after the whole batch.
func appendEntryTo(f fs.File, topic, body string, tsMin int32, sync bool) (uint32, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat data.log: %w", err)
	}

	offset := uint32(info.Size())

	tb := []byte(topic)
	bb := []byte(body)

	hdr := entryHeader(uint8(len(tb)), uint32(len(bb)), tsMin)

	if _, err := f.Write(hdr[:]); err != nil {
		return 0, fmt.Errorf("write entry header: %w", err)
	}

	if _, err := f.Write(tb); err != nil {
		return 0, fmt.Errorf("write topic: %w", err)
	}

	if _, err := f.Write(bb); err != nil {
		return 0, fmt.Errorf("write body: %w", err)
	}

	if sync {
		if err := f.Sync(); err != nil {
			return 0, fmt.Errorf("sync data.log: %w", err)
		}
	}

	return offset, nil
}

// AppendTombstone writes a tombstone record referencing targetOffset. No
// validation of targetOffset is performed: per spec.md §9's open question,
// a tombstone naming a non-entry offset is silently ignored by IterLive.
func AppendTombstone(fsys fs.FS, logPath string, targetOffset uint32) error {
	f, err := fsys.OpenFile(logPath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open data.log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var rec [tombstoneRecSize]byte
	rec[0] = tagTombstone
	binary.LittleEndian.PutUint32(rec[4:8], targetOffset)

	if _, err := f.Write(rec[:]); err != nil {
		return fmt.Errorf("write tombstone: %w", err)
	}

	return f.Sync()
}

// ReadEntry seeks to offset and reads one entry record.
func ReadEntry(fsys fs.FS, logPath string, offset uint32) (Entry, error) {
	f, err := fsys.Open(logPath)
	if err != nil {
		return Entry{}, fmt.Errorf("open data.log: %w", err)
	}
	defer func() { _ = f.Close() }()

	return readEntryFrom(f, offset)
}

func readEntryFrom(f fs.File, offset uint32) (Entry, error) {
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return Entry{}, fmt.Errorf("seek: %w", err)
	}

	var hdr [entryHeaderSize]byte
	if _, err := readFull(f, hdr[:]); err != nil {
		return Entry{}, fmt.Errorf("read entry header: %w", err)
	}

	if hdr[0] != tagEntry {
		return Entry{}, ErrNotEntryRecord
	}

	topicLen := int(hdr[1])
	bodyLen := int(binary.LittleEndian.Uint32(hdr[2:6]))
	tsMin := int32(binary.LittleEndian.Uint32(hdr[6:10]))

	topicBuf := make([]byte, topicLen)
	if _, err := readFull(f, topicBuf); err != nil {
		return Entry{}, fmt.Errorf("read topic: %w", err)
	}

	bodyBuf := make([]byte, bodyLen)
	if _, err := readFull(f, bodyBuf); err != nil {
		return Entry{}, fmt.Errorf("read body: %w", err)
	}

	return Entry{
		Offset:       offset,
		Topic:        string(topicBuf),
		Body:         string(bodyBuf),
		TimestampMin: tsMin,
	}, nil
}

func readFull(f fs.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n

		if err != nil {
			return total, err
		}

		if n == 0 {
			return total, io.ErrUnexpectedEOF
		}
	}

	return total, nil
}

// IterLive performs a single forward pass over the log, collecting entry
// records and tombstoned offsets simultaneously, then filters. Scan halts
// cleanly (without error) on any truncated trailing record: a record whose
// declared length would run past the end of file is treated as the end of
// the log, and every earlier record remains valid (I-LOG-1, I-LOG-2).
func IterLive(fsys fs.FS, logPath string) ([]Entry, error) {
	data, err := fsys.ReadFile(logPath)
	if err != nil {
		return nil, fmt.Errorf("read data.log: %w", err)
	}

	if len(data) < logHeaderSize {
		return nil, ErrLogTooSmall
	}

	if string(data[0:4]) != string(LogMagic[:]) {
		return nil, ErrBadMagic
	}

	var entries []Entry

	deleted := make(map[uint32]bool)

	pos := logHeaderSize
	for pos < len(data) {
		switch data[pos] {
		case tagEntry:
			offset := uint32(pos)

			if pos+entryHeaderSize > len(data) {
				pos = len(data)

				continue
			}

			tl := int(data[pos+1])
			bl := int(binary.LittleEndian.Uint32(data[pos+2 : pos+6]))
			ts := int32(binary.LittleEndian.Uint32(data[pos+6 : pos+10]))

			recEnd := pos + entryHeaderSize + tl + bl
			if recEnd > len(data) {
				pos = len(data)

				continue
			}

			topic := string(data[pos+entryHeaderSize : pos+entryHeaderSize+tl])
			body := string(data[pos+entryHeaderSize+tl : recEnd])

			entries = append(entries, Entry{
				Offset: offset, Topic: topic, Body: body, TimestampMin: ts,
			})

			pos = recEnd

		case tagTombstone:
			if pos+tombstoneRecSize > len(data) {
				pos = len(data)

				continue
			}

			target := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
			deleted[target] = true
			pos += tombstoneRecSize

		default:
			pos = len(data)
		}
	}

	if len(deleted) == 0 {
		return entries, nil
	}

	live := entries[:0]

	for _, e := range entries {
		if !deleted[e.Offset] {
			live = append(live, e)
		}
	}

	return live, nil
}

// CompactResult reports the before/after size of a Compact call.
type CompactResult struct {
	EntryCount int
	BeforeSize int64
	AfterSize  int64
}

// Compact writes a new log containing only live entries, in original order,
// to a sibling temp path, then replaces data.log atomically. Offsets change;
// callers must rebuild the index and invalidate the corpus cache.
func Compact(fsys fs.FS, dir string) (CompactResult, error) {
	logPath := Path(dir)

	entries, err := IterLive(fsys, logPath)
	if err != nil {
		return CompactResult{}, err
	}

	before, err := fsys.Stat(logPath)
	if err != nil {
		return CompactResult{}, fmt.Errorf("stat data.log: %w", err)
	}

	buf := make([]byte, 0, before.Size())
	buf = append(buf, LogMagic[:]...)

	var verBuf [4]byte
	binary.LittleEndian.PutUint32(verBuf[:], LogVersion)
	buf = append(buf, verBuf[:]...)

	for _, e := range entries {
		tb := []byte(e.Topic)
		bb := []byte(e.Body)
		hdr := entryHeader(uint8(len(tb)), uint32(len(bb)), e.TimestampMin)
		buf = append(buf, hdr[:]...)
		buf = append(buf, tb...)
		buf = append(buf, bb...)
	}

	if err := fsys.WriteFileAtomic(logPath, buf, 0o644); err != nil {
		return CompactResult{}, fmt.Errorf("write compacted data.log: %w", err)
	}

	return CompactResult{
		EntryCount: len(entries),
		BeforeSize: before.Size(),
		AfterSize:  int64(len(buf)),
	}, nil
}

func entryHeader(topicLen uint8, bodyLen uint32, tsMin int32) [entryHeaderSize]byte {
	var h [entryHeaderSize]byte
	h[0] = tagEntry
	h[1] = topicLen
	binary.LittleEndian.PutUint32(h[2:6], bodyLen)
	binary.LittleEndian.PutUint32(h[6:10], uint32(tsMin))
	// h[10:12] is padding, left zero.
	return h
}
