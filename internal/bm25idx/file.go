package bm25idx

import (
	"fmt"
	"syscall"

	"github.com/amaranth-kb/amaranth/internal/corpus"
	"github.com/amaranth-kb/amaranth/internal/fs"
)

// FileName is the index file's fixed name within a knowledge-base directory.
const FileName = "index.bin"

// BuildAndWrite builds a fresh index image from entries and atomically
// replaces path (spec.md §4.3: "index.bin is rebuilt wholesale, never
// patched in place"). Grounded on the teacher's atomic tmp+rename write
// path (internal/fs.FS.WriteFileAtomic).
func BuildAndWrite(fsys fs.FS, path string, entries []*corpus.Entry) error {
	img, err := Build(entries)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	if err := fsys.WriteFileAtomic(path, img, 0o644); err != nil {
		return fmt.Errorf("write index.bin: %w", err)
	}

	return nil
}

// Mapped is an mmap'd index.bin, grounded on the teacher's root
// cache_binary.go: load once, keep the mapping for the process's lifetime
// (or until invalidated), and decode fields directly out of the mapped
// bytes rather than copying them into Go structs.
type Mapped struct {
	*Index

	region []byte
}

// OpenMapped mmaps path read-only and decodes its header. Callers must call
// Close when done to munmap.
func OpenMapped(fsys fs.FS, path string) (*Mapped, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index.bin: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index.bin: %w", err)
	}

	size := info.Size()
	if size == 0 {
		return nil, ErrTruncated
	}

	region, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap index.bin: %w", err)
	}

	ix, err := Open(region)
	if err != nil {
		_ = syscall.Munmap(region)

		return nil, err
	}

	return &Mapped{Index: ix, region: region}, nil
}

// Close unmaps the underlying region. Safe to call once; a second call
// returns the error from re-unmapping already-released memory.
func (m *Mapped) Close() error {
	return syscall.Munmap(m.region)
}
