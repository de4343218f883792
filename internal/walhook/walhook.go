// Package walhook implements the "log collaborator" of spec §6: an
// opaque hook the buffer pool holds a reference to but never invokes
// on its hot path. Crash recovery and redo replay are out of scope
// (spec.md §1 Non-goals); this package only appends and flushes
// checkpoint records, matching the pass-through contract the BPM
// relies on in its Shutdown hook.
package walhook

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"

	"github.com/haduyet/bustubgo/internal/alias/bx"
)

var ErrClosed = errors.New("walhook: hook is closed")

const (
	magicU32   uint32 = 0x4C41574E // "NWAL"
	versionU16        = 1

	recCheckpoint uint8 = 1
)

// Hook is a minimal write-ahead checkpoint appender. It satisfies the
// buffer.LogHook contract (a Flush method) so a BufferPoolManager can
// hold one without this package knowing anything about pages.
type Hook struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	lsn uint64
}

// Open creates (or appends to) a checkpoint log under dir.
func Open(dir string) (*Hook, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "checkpoint.wal")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Hook{f: f, w: bufio.NewWriter(f)}, nil
}

// AppendCheckpoint buffers a checkpoint record listing pageIDs and
// returns its LSN; the record reaches the file on Flush or Close.
// bustubctl's shutdown appends one just before the BPM's Shutdown
// flushes those pages. This core never replays the log; it only
// records the fact for a future WAL layer to build on.
func (h *Hook) AppendCheckpoint(pageIDs []int32) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.f == nil {
		return 0, ErrClosed
	}

	h.lsn++
	lsn := h.lsn

	payload := make([]byte, 4+2+1+8+4+4*len(pageIDs))
	off := 0
	bx.PutU32At(payload, off, magicU32)
	off += 4
	bx.PutU16At(payload, off, versionU16)
	off += 2
	payload[off] = recCheckpoint
	off++
	bx.PutU64At(payload, off, lsn)
	off += 8
	bx.PutU32At(payload, off, uint32(len(pageIDs)))
	off += 4
	for _, id := range pageIDs {
		bx.PutU32At(payload, off, uint32(id))
		off += 4
	}

	crc := crc32.ChecksumIEEE(payload)
	record := make([]byte, len(payload)+4)
	copy(record, payload)
	bx.PutU32At(record, len(payload), crc)

	if _, err := h.w.Write(record); err != nil {
		return 0, fmt.Errorf("walhook: append checkpoint: %w", err)
	}
	return lsn, nil
}

// Flush satisfies buffer.LogHook: flush buffered writes and fsync.
func (h *Hook) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.f == nil {
		return nil
	}
	if err := h.w.Flush(); err != nil {
		return fmt.Errorf("walhook: flush: %w", err)
	}
	return h.f.Sync()
}

// Close flushes and releases the underlying file.
func (h *Hook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.f == nil {
		return nil
	}
	_ = h.w.Flush()
	err := h.f.Close()
	h.f = nil
	return err
}
