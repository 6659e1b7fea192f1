// Package bm25idx implements the binary inverted index (spec.md §3, §4.3,
// §4.4): component C3 (Build) lays out term postings computed from the
// corpus, and component C4 (Index.Search) scans the packed bytes with a
// zero-allocation BM25 hot path. Binary layout grounded on
// original_source/src/inverted.rs; mmap loading and explicit byte-offset
// decoding grounded on the teacher's root cache_binary.go ("TKC1" format).
package bm25idx

import "encoding/binary"

// Magic is the 4-byte magic at the start of index.bin.
var Magic = [4]byte{'A', 'M', 'R', 'N'}

// Version is the current on-disk index format version.
const Version = 1

// Region sizes and field widths. All structs are packed; every field is
// read with an explicit byte-offset unaligned load via [binary.LittleEndian]
// (spec.md §9), never assumed to match Go's natural struct alignment.
const (
	headerSize = 40 // magic(4) + 9×u32
	slotSize   = 16 // hash(8) + postings_off(4) + postings_len(2) + pad(2)
	postSize   = 8  // entry_id(2) + tf(2) + idf_x1000(4)
	metaSize   = 12 // topic_id(1) + pad(1) + word_count(2) + snippet_off(4) + snippet_len(2) + pad2(2)
)

// header offsets within the fixed 40-byte header region.
const (
	hdrMagic       = 0
	hdrVersion     = 4
	hdrNumEntries  = 8
	hdrNumTerms    = 12
	hdrTableCap    = 16
	hdrAvgdlX100   = 20
	hdrPostingsOff = 24
	hdrMetaOff     = 28
	hdrSnippetOff  = 32
	hdrTotalLen    = 36
)

// Header is the decoded fixed header at offset 0.
type Header struct {
	Version     uint32
	NumEntries  uint32
	NumTerms    uint32
	TableCap    uint32
	AvgdlX100   uint32
	PostingsOff uint32
	MetaOff     uint32
	SnippetOff  uint32
	TotalLen    uint32
}

func encodeHeader(h Header) []byte {
	buf := make([]byte, headerSize)
	copy(buf[hdrMagic:hdrMagic+4], Magic[:])
	binary.LittleEndian.PutUint32(buf[hdrVersion:], Version)
	binary.LittleEndian.PutUint32(buf[hdrNumEntries:], h.NumEntries)
	binary.LittleEndian.PutUint32(buf[hdrNumTerms:], h.NumTerms)
	binary.LittleEndian.PutUint32(buf[hdrTableCap:], h.TableCap)
	binary.LittleEndian.PutUint32(buf[hdrAvgdlX100:], h.AvgdlX100)
	binary.LittleEndian.PutUint32(buf[hdrPostingsOff:], h.PostingsOff)
	binary.LittleEndian.PutUint32(buf[hdrMetaOff:], h.MetaOff)
	binary.LittleEndian.PutUint32(buf[hdrSnippetOff:], h.SnippetOff)
	binary.LittleEndian.PutUint32(buf[hdrTotalLen:], h.TotalLen)

	return buf
}

func decodeHeader(data []byte) (Header, error) {
	if len(data) < headerSize {
		return Header{}, ErrTruncated
	}

	if string(data[hdrMagic:hdrMagic+4]) != string(Magic[:]) {
		return Header{}, ErrBadMagic
	}

	version := binary.LittleEndian.Uint32(data[hdrVersion:])
	if version != Version {
		return Header{}, ErrVersionMismatch
	}

	h := Header{
		Version:     version,
		NumEntries:  binary.LittleEndian.Uint32(data[hdrNumEntries:]),
		NumTerms:    binary.LittleEndian.Uint32(data[hdrNumTerms:]),
		TableCap:    binary.LittleEndian.Uint32(data[hdrTableCap:]),
		AvgdlX100:   binary.LittleEndian.Uint32(data[hdrAvgdlX100:]),
		PostingsOff: binary.LittleEndian.Uint32(data[hdrPostingsOff:]),
		MetaOff:     binary.LittleEndian.Uint32(data[hdrMetaOff:]),
		SnippetOff:  binary.LittleEndian.Uint32(data[hdrSnippetOff:]),
		TotalLen:    binary.LittleEndian.Uint32(data[hdrTotalLen:]),
	}

	return h, nil
}

// termSlot reads one 16-byte term-table slot at byte offset off.
type termSlot struct {
	hash        uint64
	postingsOff uint32
	postingsLen uint16
}

func readSlot(data []byte, off int) termSlot {
	return termSlot{
		hash:        binary.LittleEndian.Uint64(data[off:]),
		postingsOff: binary.LittleEndian.Uint32(data[off+8:]),
		postingsLen: binary.LittleEndian.Uint16(data[off+12:]),
	}
}

func putSlot(buf []byte, off int, s termSlot) {
	binary.LittleEndian.PutUint64(buf[off:], s.hash)
	binary.LittleEndian.PutUint32(buf[off+8:], s.postingsOff)
	binary.LittleEndian.PutUint16(buf[off+12:], s.postingsLen)
	// buf[off+14:off+16] is padding, left zero.
}

// posting reads one 8-byte posting at byte offset off (relative to data start).
type posting struct {
	entryID  uint16
	tf       uint16
	idfX1000 uint32
}

func readPosting(data []byte, off int) posting {
	return posting{
		entryID:  binary.LittleEndian.Uint16(data[off:]),
		tf:       binary.LittleEndian.Uint16(data[off+2:]),
		idfX1000: binary.LittleEndian.Uint32(data[off+4:]),
	}
}

func putPosting(buf []byte, off int, p posting) {
	binary.LittleEndian.PutUint16(buf[off:], p.entryID)
	binary.LittleEndian.PutUint16(buf[off+2:], p.tf)
	binary.LittleEndian.PutUint32(buf[off+4:], p.idfX1000)
}

// entryMeta reads one 12-byte entry-meta record at byte offset off.
type entryMeta struct {
	topicID    uint8
	wordCount  uint16
	snippetOff uint32
	snippetLen uint16
}

func readMeta(data []byte, off int) entryMeta {
	return entryMeta{
		topicID:    data[off],
		wordCount:  binary.LittleEndian.Uint16(data[off+2:]),
		snippetOff: binary.LittleEndian.Uint32(data[off+4:]),
		snippetLen: binary.LittleEndian.Uint16(data[off+8:]),
	}
}

func putMeta(buf []byte, off int, m entryMeta) {
	buf[off] = m.topicID
	// buf[off+1] is padding, left zero.
	binary.LittleEndian.PutUint16(buf[off+2:], m.wordCount)
	binary.LittleEndian.PutUint32(buf[off+4:], m.snippetOff)
	binary.LittleEndian.PutUint16(buf[off+8:], m.snippetLen)
	// buf[off+10:off+12] is padding, left zero.
}

// hashTerm is the FNV-1a 64-bit hash used to key the term table. Zero is
// remapped to 1 because zero marks an empty slot (I-IDX-1).
func hashTerm(s string) uint64 {
	var h uint64 = 0xcbf29ce484222325

	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 0x100000001b3
	}

	if h == 0 {
		h = 1
	}

	return h
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}

	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
