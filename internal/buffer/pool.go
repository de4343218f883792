package buffer

import (
	"container/list"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/haduyet/bustubgo/internal/replacer"
)

const logPrefix = "buffer: "

// Pool is the buffer pool manager of spec.md §4.D: it owns a fixed
// arena of frames, a page table mapping resident page ids to frame
// ids, a free list, and an LRU-K replacer, keeping the three mutually
// consistent under one mutex held for the duration of every public
// operation (including disk I/O — spec.md §9 "holding the BPM lock
// across disk I/O" is the source's contract and is preserved here).
//
// Grounded on tuannm99-novasql's internal/bufferpool.Pool for the Go
// idiom (mutex-guarded arena, errors.New sentinels, slog tracing) and
// on bustub's buffer_pool_manager.cpp for the exact eviction and
// dirty-write-back semantics.
type Pool struct {
	mu sync.Mutex

	frames    []*Frame
	pageTable map[PageID]FrameID
	freeList  *list.List // of FrameID, front = next frame handed out
	replacer  *replacer.LRUK

	disk DiskManager
	log  LogHook

	nextPageID atomic.Int32
}

// NewPool allocates poolSize frames, an LRU-K replacer parameterized
// by k, and seeds the free list with every frame id. log may be nil.
func NewPool(poolSize int, disk DiskManager, k int, log LogHook) *Pool {
	p := &Pool{
		frames:    make([]*Frame, poolSize),
		pageTable: make(map[PageID]FrameID),
		freeList:  list.New(),
		replacer:  replacer.New(poolSize, k),
		disk:      disk,
		log:       log,
	}
	for i := range p.frames {
		p.frames[i] = newFrame()
		p.freeList.PushBack(i)
	}
	return p
}

// grabFrame returns a frame ready for reuse: a free-list frame if one
// exists, otherwise the replacer's eviction choice with its dirty
// contents written back first. Must be called with p.mu held. Returns
// ok=false if neither source has anything to offer.
func (p *Pool) grabFrame() (FrameID, bool, error) {
	if e := p.freeList.Front(); e != nil {
		p.freeList.Remove(e)
		return e.Value.(FrameID), true, nil
	}

	frameID, ok := p.replacer.Evict()
	if !ok {
		return 0, false, nil
	}

	victim := p.frames[frameID]
	if victim.dirty {
		slog.Debug(logPrefix+"writing back dirty victim before reuse",
			"frameID", frameID, "pageID", victim.pageID)
		if err := p.disk.WritePage(victim.pageID, victim.Data); err != nil {
			return 0, false, fmt.Errorf("buffer: flush victim page %d: %w", victim.pageID, err)
		}
	}
	delete(p.pageTable, victim.pageID)
	return frameID, true, nil
}

// recordAccess wraps replacer.RecordAccess; an out-of-range frame id
// here would be an internal inconsistency (the BPM only ever passes
// frame ids it itself allocated in [0, poolSize)), so it is logged
// loudly rather than silently swallowed.
func (p *Pool) recordAccess(frameID FrameID, accessType AccessType) {
	if err := p.replacer.RecordAccess(frameID, accessType); err != nil {
		slog.Error(logPrefix+"replacer rejected a frame id the pool itself assigned",
			"frameID", frameID, "err", err)
	}
}

func (p *Pool) allocatePage() PageID {
	return p.nextPageID.Add(1) - 1
}

// deallocatePage is a no-op hook: page ids are never reclaimed
// (spec.md §3, §6).
func (p *Pool) deallocatePage(PageID) {}

// NewPage allocates a new page id and a frame for it, returning the
// frame ready to use: zeroed, pinned once, not dirty, not evictable,
// with one access already recorded. Returns ErrNoFrameAvailable if the
// pool is exhausted (every frame pinned, replacer empty).
func (p *Pool) NewPage() (PageID, *Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok, err := p.grabFrame()
	if err != nil {
		return InvalidPageID, nil, err
	}
	if !ok {
		return InvalidPageID, nil, ErrNoFrameAvailable
	}

	pageID := p.allocatePage()
	frame := p.frames[frameID]
	frame.ResetMemory()
	frame.pageID = pageID
	frame.pinCount = 1
	frame.dirty = false

	p.pageTable[pageID] = frameID
	p.replacer.SetEvictable(frameID, false)
	p.recordAccess(frameID, AccessUnknown)

	slog.Debug(logPrefix+"new page", "pageID", pageID, "frameID", frameID)
	return pageID, frame, nil
}

// FetchPage returns the frame holding pageID, pinning it: loading it
// from disk first if it is not already resident. Returns
// ErrNoFrameAvailable if the pool is exhausted.
func (p *Pool) FetchPage(pageID PageID, accessType AccessType) (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frameID, ok := p.pageTable[pageID]; ok {
		frame := p.frames[frameID]
		frame.pinCount++
		p.replacer.SetEvictable(frameID, false)
		p.recordAccess(frameID, accessType)
		return frame, nil
	}

	frameID, ok, err := p.grabFrame()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoFrameAvailable
	}

	frame := p.frames[frameID]
	if err := p.disk.ReadPage(pageID, frame.Data); err != nil {
		// Nothing has been mutated for this page id yet; the frame is
		// simply handed back to the free list so the pool stays
		// internally consistent (spec.md §4.D "failure semantics").
		frame.pageID = InvalidPageID
		frame.dirty = false
		p.freeList.PushFront(frameID)
		return nil, fmt.Errorf("buffer: read page %d: %w", pageID, err)
	}

	frame.pageID = pageID
	frame.pinCount = 1
	frame.dirty = false

	p.pageTable[pageID] = frameID
	p.replacer.SetEvictable(frameID, false)
	p.recordAccess(frameID, accessType)

	slog.Debug(logPrefix+"fetch page (loaded from disk)", "pageID", pageID, "frameID", frameID)
	return frame, nil
}

// UnpinPage decrements pageID's pin count, OR-accumulating the dirty
// flag. Returns false if the page is not resident or already unpinned
// to zero. When the pin count reaches zero the frame becomes
// evictable. Flushing is not performed here.
func (p *Pool) UnpinPage(pageID PageID, isDirty bool, accessType AccessType) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.pageTable[pageID]
	if !ok {
		return false
	}
	frame := p.frames[frameID]
	if frame.pinCount <= 0 {
		return false
	}

	frame.pinCount--
	frame.dirty = frame.dirty || isDirty

	if frame.pinCount == 0 {
		p.replacer.SetEvictable(frameID, true)
	}
	return true
}

// FlushPage writes pageID to disk if dirty and clears the dirty flag.
// Returns false if the page is not resident. A clean page is a no-op
// returning true. Pin count is ignored.
func (p *Pool) FlushPage(pageID PageID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushPageLocked(pageID)
}

func (p *Pool) flushPageLocked(pageID PageID) (bool, error) {
	frameID, ok := p.pageTable[pageID]
	if !ok {
		return false, nil
	}
	frame := p.frames[frameID]
	if frame.dirty {
		if err := p.disk.WritePage(pageID, frame.Data); err != nil {
			return false, fmt.Errorf("buffer: flush page %d: %w", pageID, err)
		}
		frame.dirty = false
	}
	return true, nil
}

// FlushAllPages flushes every resident page.
func (p *Pool) FlushAllPages() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for pageID := range p.pageTable {
		if _, err := p.flushPageLocked(pageID); err != nil {
			return err
		}
	}
	return nil
}

// ResidentPageIDs returns the page ids currently resident in the pool,
// in no particular order. Intended for a caller that wants to record a
// checkpoint of what FlushAllPages is about to write back; the BPM
// itself has no notion of a checkpoint (spec.md §6, LogHook is opaque
// to the core).
func (p *Pool) ResidentPageIDs() []PageID {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]PageID, 0, len(p.pageTable))
	for pageID := range p.pageTable {
		ids = append(ids, pageID)
	}
	return ids
}

// DeletePage removes pageID from the pool. Returns true if already
// non-resident (idempotent). Returns false if resident and pinned.
// Otherwise flushes if dirty, zeroes the frame, returns it to the free
// list, removes it from the replacer, and deallocates the page id
// (a no-op).
func (p *Pool) DeletePage(pageID PageID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.pageTable[pageID]
	if !ok {
		return true, nil
	}
	frame := p.frames[frameID]
	if frame.pinCount > 0 {
		return false, nil
	}

	delete(p.pageTable, pageID)
	if frame.dirty {
		if err := p.disk.WritePage(pageID, frame.Data); err != nil {
			return false, fmt.Errorf("buffer: flush deleted page %d: %w", pageID, err)
		}
	}
	frame.ResetMemory()
	frame.pageID = InvalidPageID
	frame.pinCount = 0
	frame.dirty = false

	p.freeList.PushBack(frameID)
	if err := p.replacer.Remove(frameID); err != nil {
		slog.Error(logPrefix+"replacer remove failed for a frame the pool just freed",
			"frameID", frameID, "err", err)
	}
	p.deallocatePage(pageID)
	return true, nil
}

// Shutdown flushes every page and, if a log hook is configured,
// invokes its Flush as the one pass-through integration point this
// core permits (spec.md §6 "reserved for integration with a WAL
// layer").
func (p *Pool) Shutdown() error {
	if err := p.FlushAllPages(); err != nil {
		return err
	}
	if p.log != nil {
		return p.log.Flush()
	}
	return nil
}
