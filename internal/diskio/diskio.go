// Package diskio implements the "disk collaborator" of the buffer pool
// manager: a synchronous, fixed-page-size read/write contract backed by
// a segmented local file set. Higher layers (table heap, B-tree, ...)
// are out of scope here — a page is an opaque byte buffer.
package diskio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/haduyet/bustubgo/internal/alias/util"
)

const (
	// PageSize is the compile-time page size the buffer pool operates on.
	PageSize = 4096

	// SegmentSize bounds how many pages live in a single backing file
	// before a new segment is opened, mirroring the teacher's 1GiB
	// segments at a smaller, test-friendly scale.
	SegmentSize = 1024 * PageSize
)

var (
	// ErrBadBuffer is returned when a caller passes a buffer whose
	// length does not equal PageSize.
	ErrBadBuffer = errors.New("diskio: buffer must be exactly PageSize bytes")
)

// Manager is the disk collaborator contract from spec §6: two
// synchronous, by-construction-infallible operations. Errors still
// propagate through Go's error return (the "infallible by contract"
// language in the source just means there is no internal retry or
// partial-success path, not that the Go port should panic).
type Manager interface {
	ReadPage(pageID int32, dst []byte) error
	WritePage(pageID int32, src []byte) error
}

// FileSet names the backing file for a single logical relation/table.
// Segments are stored as Base, Base.1, Base.2, ... exactly like the
// teacher's LocalFileSet.
type FileSet struct {
	Dir  string
	Base string
}

func (fs FileSet) openSegment(segNo int32) (*os.File, error) {
	name := fs.Base
	if segNo > 0 {
		name = fmt.Sprintf("%s.%d", fs.Base, segNo)
	}
	path := filepath.Join(fs.Dir, name)
	if err := os.MkdirAll(fs.Dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
}

// FileManager is the concrete Manager backing the buffer pool in this
// repository: one FileSet, pages located by dividing the page id by
// the number of pages per segment. Grounded on the teacher's
// internal/storage.StorageManager, trimmed of the slotted-page layout
// it used to impose on top (that belongs to the excluded table layer).
type FileManager struct {
	fs FileSet
}

func NewFileManager(dir, base string) *FileManager {
	return &FileManager{fs: FileSet{Dir: dir, Base: base}}
}

func (m *FileManager) pagesPerSegment() int32 {
	return SegmentSize / PageSize
}

func (m *FileManager) locate(pageID int32) (segNo int32, offset int64) {
	pps := m.pagesPerSegment()
	segNo = pageID / pps
	pageInSeg := pageID % pps
	return segNo, int64(pageInSeg) * PageSize
}

// ReadPage reads exactly PageSize bytes into dst. A page beyond the
// current end of file reads back as all-zero, so pages may be
// lazily materialized by a first write.
func (m *FileManager) ReadPage(pageID int32, dst []byte) error {
	if len(dst) != PageSize {
		return ErrBadBuffer
	}
	segNo, off := m.locate(pageID)
	f, err := m.fs.openSegment(segNo)
	if err != nil {
		return fmt.Errorf("diskio: open segment %d: %w", segNo, err)
	}
	defer util.CloseFileFunc(f)

	n, err := f.ReadAt(dst, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("diskio: read page %d: %w", pageID, err)
	}
	for i := n; i < PageSize; i++ {
		dst[i] = 0
	}
	return nil
}

// WritePage writes exactly PageSize bytes from src at the page's
// location on disk.
func (m *FileManager) WritePage(pageID int32, src []byte) error {
	if len(src) != PageSize {
		return ErrBadBuffer
	}
	segNo, off := m.locate(pageID)
	f, err := m.fs.openSegment(segNo)
	if err != nil {
		return fmt.Errorf("diskio: open segment %d: %w", segNo, err)
	}
	defer util.CloseFileFunc(f)

	n, err := f.WriteAt(src, off)
	if err != nil {
		return fmt.Errorf("diskio: write page %d: %w", pageID, err)
	}
	if n != PageSize {
		return fmt.Errorf("diskio: write page %d: %w", pageID, io.ErrShortWrite)
	}
	return nil
}

var _ Manager = (*FileManager)(nil)
