// Package buffer implements the buffer pool manager (spec.md §4.D),
// its page frames (§4.C) and scoped page guards (§4.E): the component
// that maps logical page ids onto a fixed set of in-memory frames,
// fetching and evicting pages against a disk collaborator.
package buffer

import (
	"github.com/haduyet/bustubgo/internal/replacer"
)

// PageID is a 32-bit signed, monotonically allocated page identifier.
// Once allocated it is never reused within a process lifetime.
type PageID = int32

// InvalidPageID marks the absence of a page.
const InvalidPageID PageID = -1

// FrameID names a dense slot in the pool's frame array.
type FrameID = replacer.FrameID

// AccessType classifies a page access; see replacer.AccessType.
type AccessType = replacer.AccessType

const (
	AccessUnknown = replacer.AccessUnknown
	AccessLookup  = replacer.AccessLookup
	AccessScan    = replacer.AccessScan
	AccessIndex   = replacer.AccessIndex
)

// DiskManager is the "disk collaborator" of spec.md §6: two
// synchronous operations over a fixed-size page buffer.
type DiskManager interface {
	ReadPage(pageID PageID, dst []byte) error
	WritePage(pageID PageID, src []byte) error
}

// LogHook is the "log collaborator" of spec.md §6: opaque to the BPM,
// reserved for integration with a future WAL layer. The core never
// invokes it except from Shutdown, as a pass-through checkpoint hook.
type LogHook interface {
	Flush() error
}
