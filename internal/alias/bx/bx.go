// stand for bytes helper
package bx

import "encoding/binary"

var le = binary.LittleEndian

// PutU16At, PutU32At and PutU64At write v at offset off within b,
// little-endian. This package only carries the helpers walhook's
// record framing actually calls.
func PutU16At(b []byte, off int, v uint16) { le.PutUint16(b[off:], v) }
func PutU32At(b []byte, off int, v uint32) { le.PutUint32(b[off:], v) }
func PutU64At(b []byte, off int, v uint64) { le.PutUint64(b[off:], v) }
