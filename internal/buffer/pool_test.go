package buffer

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// spyDisk is an in-memory DiskManager that records every WritePage
// call per page id, so tests can assert exact write-back counts
// (spec.md §8 scenario 4).
type spyDisk struct {
	mu      sync.Mutex
	pages   map[PageID][]byte
	writes  map[PageID]int
	failRd  map[PageID]bool
	failWrt map[PageID]bool
}

func newSpyDisk() *spyDisk {
	return &spyDisk{
		pages:   make(map[PageID][]byte),
		writes:  make(map[PageID]int),
		failRd:  make(map[PageID]bool),
		failWrt: make(map[PageID]bool),
	}
}

func (d *spyDisk) ReadPage(pageID PageID, dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failRd[pageID] {
		return errors.New("spyDisk: injected read failure")
	}
	if buf, ok := d.pages[pageID]; ok {
		copy(dst, buf)
		return nil
	}
	for i := range dst {
		dst[i] = 0
	}
	return nil
}

func (d *spyDisk) WritePage(pageID PageID, src []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWrt[pageID] {
		return errors.New("spyDisk: injected write failure")
	}
	buf := make([]byte, len(src))
	copy(buf, src)
	d.pages[pageID] = buf
	d.writes[pageID]++
	return nil
}

func (d *spyDisk) writeCount(pageID PageID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes[pageID]
}

// assertPoolInvariant checks spec.md §8's structural invariant:
// |page_table| + |free_list| == pool_size, and the two partitions are
// disjoint over frame ids.
func assertPoolInvariant(t *testing.T, p *Pool, poolSize int) {
	t.Helper()
	require.Equal(t, poolSize, len(p.pageTable)+p.freeList.Len())
	seen := make(map[FrameID]bool)
	for _, frameID := range p.pageTable {
		require.False(t, seen[frameID], "frame %d mapped twice", frameID)
		seen[frameID] = true
	}
	for e := p.freeList.Front(); e != nil; e = e.Next() {
		frameID := e.Value.(FrameID)
		require.False(t, seen[frameID], "frame %d both resident and free", frameID)
		seen[frameID] = true
	}
}

func residentPages(p *Pool) []PageID {
	out := make([]PageID, 0, len(p.pageTable))
	for id := range p.pageTable {
		out = append(out, id)
	}
	return out
}

func TestPool_NewPageAllocatesMonotonicIDs(t *testing.T) {
	p := NewPool(3, newSpyDisk(), 2, nil)

	id0, _, err := p.NewPage()
	require.NoError(t, err)
	id1, _, err := p.NewPage()
	require.NoError(t, err)

	require.Equal(t, PageID(0), id0)
	require.Equal(t, PageID(1), id1)
	assertPoolInvariant(t, p, 3)
}

func TestPool_NewPageExhaustedWhenAllPinned(t *testing.T) {
	p := NewPool(2, newSpyDisk(), 2, nil)

	_, _, err := p.NewPage()
	require.NoError(t, err)
	_, _, err = p.NewPage()
	require.NoError(t, err)

	_, _, err = p.NewPage()
	require.ErrorIs(t, err, ErrNoFrameAvailable)
}

// Scenario 1: eviction under pressure. pool_size=3, k=2. new -> p0,p1,p2
// all pinned once, then unpinned clean. Allocating p3 with NewPage must
// succeed by evicting p0 (its single access is the oldest).
// page_table == {p1,p2,p3}.
func TestPool_EvictionUnderPressure(t *testing.T) {
	p := NewPool(3, newSpyDisk(), 2, nil)

	p0, _, err := p.NewPage()
	require.NoError(t, err)
	p1, _, err := p.NewPage()
	require.NoError(t, err)
	p2, _, err := p.NewPage()
	require.NoError(t, err)

	require.True(t, p.UnpinPage(p0, false, AccessUnknown))
	require.True(t, p.UnpinPage(p1, false, AccessUnknown))
	require.True(t, p.UnpinPage(p2, false, AccessUnknown))

	p3, frame, err := p.NewPage()
	require.NoError(t, err)
	require.NotNil(t, frame)

	require.ElementsMatch(t, []PageID{p1, p2, p3}, residentPages(p))
	assertPoolInvariant(t, p, 3)
}

// Scenario 4: dirty write-back. Create p0 with NewPage, modify, unpin
// dirty. Force eviction by filling the pool. Disk must see exactly one WritePage(0).
func TestPool_DirtyWriteBackOnEviction(t *testing.T) {
	disk := newSpyDisk()
	p := NewPool(1, disk, 2, nil)

	p0, frame, err := p.NewPage()
	require.NoError(t, err)
	frame.Data[0] = 0xAB
	require.True(t, p.UnpinPage(p0, true, AccessUnknown))

	_, _, err = p.NewPage()
	require.NoError(t, err)

	require.Equal(t, 1, disk.writeCount(p0))
}

// Scenario 5: unpin of unpinned.
func TestPool_UnpinOfUnpinnedReturnsFalse(t *testing.T) {
	p := NewPool(1, newSpyDisk(), 2, nil)

	p0, _, err := p.NewPage()
	require.NoError(t, err)
	require.True(t, p.UnpinPage(p0, false, AccessUnknown))
	require.False(t, p.UnpinPage(p0, false, AccessUnknown))
}

func TestPool_UnpinNonResidentReturnsFalse(t *testing.T) {
	p := NewPool(1, newSpyDisk(), 2, nil)
	require.False(t, p.UnpinPage(999, false, AccessUnknown))
}

func TestPool_FetchPageHitIncrementsPinAndMarksNonEvictable(t *testing.T) {
	p := NewPool(2, newSpyDisk(), 2, nil)

	p0, _, err := p.NewPage()
	require.NoError(t, err)
	require.True(t, p.UnpinPage(p0, false, AccessUnknown))

	frame, err := p.FetchPage(p0, AccessUnknown)
	require.NoError(t, err)
	require.EqualValues(t, 1, frame.PinCount())
	require.False(t, p.replacer.IsEvictable(p.pageTable[p0]))
}

func TestPool_FlushPageWritesOnlyWhenDirty(t *testing.T) {
	disk := newSpyDisk()
	p := NewPool(1, disk, 2, nil)

	p0, frame, err := p.NewPage()
	require.NoError(t, err)
	frame.Data[0] = 7
	require.True(t, p.UnpinPage(p0, true, AccessUnknown))

	ok, err := p.FlushPage(p0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, disk.writeCount(p0))

	// Flushing an already-clean page is a no-op that still returns true.
	ok, err = p.FlushPage(p0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, disk.writeCount(p0))
}

func TestPool_FlushPageNonResidentReturnsFalse(t *testing.T) {
	p := NewPool(1, newSpyDisk(), 2, nil)
	ok, err := p.FlushPage(999)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPool_FlushAllPages(t *testing.T) {
	disk := newSpyDisk()
	p := NewPool(2, disk, 2, nil)

	p0, f0, err := p.NewPage()
	require.NoError(t, err)
	p1, f1, err := p.NewPage()
	require.NoError(t, err)
	f0.Data[0] = 1
	f1.Data[0] = 2
	require.True(t, p.UnpinPage(p0, true, AccessUnknown))
	require.True(t, p.UnpinPage(p1, true, AccessUnknown))

	require.NoError(t, p.FlushAllPages())
	require.Equal(t, 1, disk.writeCount(p0))
	require.Equal(t, 1, disk.writeCount(p1))
}

func TestPool_DeletePage(t *testing.T) {
	p := NewPool(2, newSpyDisk(), 2, nil)

	p0, _, err := p.NewPage()
	require.NoError(t, err)

	// Pinned: cannot delete.
	ok, err := p.DeletePage(p0)
	require.NoError(t, err)
	require.False(t, ok)

	require.True(t, p.UnpinPage(p0, false, AccessUnknown))
	ok, err = p.DeletePage(p0)
	require.NoError(t, err)
	require.True(t, ok)
	assertPoolInvariant(t, p, 2)

	// Idempotent: deleting a non-resident page is a no-op success.
	ok, err = p.DeletePage(p0)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPool_DeletePageFlushesDirtyFrame(t *testing.T) {
	disk := newSpyDisk()
	p := NewPool(1, disk, 2, nil)

	p0, frame, err := p.NewPage()
	require.NoError(t, err)
	frame.Data[0] = 42
	require.True(t, p.UnpinPage(p0, true, AccessUnknown))

	ok, err := p.DeletePage(p0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, disk.writeCount(p0))
}

func TestPool_FetchPageReadFailurePropagatesAndLeavesPoolConsistent(t *testing.T) {
	disk := newSpyDisk()
	disk.failRd[5] = true
	p := NewPool(1, disk, 2, nil)

	_, err := p.FetchPage(5, AccessUnknown)
	require.Error(t, err)
	assertPoolInvariant(t, p, 1)
}

func TestPool_Guards_BasicReadWrite(t *testing.T) {
	p := NewPool(2, newSpyDisk(), 2, nil)

	pageID, basic, err := p.NewPageGuarded()
	require.NoError(t, err)
	basic.Frame().Data[0] = 9
	basic.Drop()
	// Second drop is a no-op.
	basic.Drop()

	rg, err := p.FetchPageRead(pageID)
	require.NoError(t, err)
	require.Equal(t, byte(9), rg.Frame().Data[0])
	rg.Drop()

	wg, err := p.FetchPageWrite(pageID)
	require.NoError(t, err)
	wg.Frame().Data[0] = 10
	wg.Drop()

	rg2, err := p.FetchPageRead(pageID)
	require.NoError(t, err)
	require.Equal(t, byte(10), rg2.Frame().Data[0])
	rg2.Drop()
}

func TestPool_Guards_MoveEmptiesSourceAndDropIsNoop(t *testing.T) {
	p := NewPool(1, newSpyDisk(), 2, nil)

	_, basic, err := p.NewPageGuarded()
	require.NoError(t, err)

	moved := basic.Move()
	require.Nil(t, basic.Frame())
	require.NotNil(t, moved.Frame())

	// Dropping the emptied source must not double-unpin.
	basic.Drop()
	moved.Drop()
}

type countingLogHook struct{ flushes int }

func (h *countingLogHook) Flush() error {
	h.flushes++
	return nil
}

func TestPool_Shutdown_FlushesAndInvokesLogHook(t *testing.T) {
	disk := newSpyDisk()
	hook := &countingLogHook{}
	p := NewPool(1, disk, 2, hook)

	p0, frame, err := p.NewPage()
	require.NoError(t, err)
	frame.Data[0] = 1
	require.True(t, p.UnpinPage(p0, true, AccessUnknown))

	require.NoError(t, p.Shutdown())
	require.Equal(t, 1, disk.writeCount(p0))
	require.Equal(t, 1, hook.flushes)
}
