// Package lowbits implements the primitive I/O layer the rest of the
// codec builds on: unaligned little-endian load/store of fixed-width
// scalars, a variable-length unsigned-integer codec, and a growable byte
// buffer with a length-patching helper.
//
// DOC (BSON) is little-endian throughout, so every fixed-width helper here
// is little-endian; this mirrors the teacher's own per-width helper shape
// (internal/encoding/numbers.go's write1/write2/write4/write8) without
// copying its big-endian choice, which belongs to a different wire format.
package lowbits

import (
	"encoding/binary"
	"math"

	"github.com/colbase/sde/sdeerr"
)

// PutUint8 appends a single byte to dst.
func PutUint8(dst []byte, v uint8) []byte { return append(dst, v) }

// PutInt8 appends a single byte to dst.
func PutInt8(dst []byte, v int8) []byte { return append(dst, byte(v)) }

// PutUint16 appends 2 little-endian bytes to dst.
func PutUint16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

// PutInt16 appends 2 little-endian bytes to dst.
func PutInt16(dst []byte, v int16) []byte { return PutUint16(dst, uint16(v)) }

// PutUint32 appends 4 little-endian bytes to dst.
func PutUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// PutInt32 appends 4 little-endian bytes to dst.
func PutInt32(dst []byte, v int32) []byte { return PutUint32(dst, uint32(v)) }

// PutUint64 appends 8 little-endian bytes to dst.
func PutUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// PutInt64 appends 8 little-endian bytes to dst.
func PutInt64(dst []byte, v int64) []byte { return PutUint64(dst, uint64(v)) }

// PutFloat32 appends 4 little-endian bytes to dst.
func PutFloat32(dst []byte, v float32) []byte { return PutUint32(dst, math.Float32bits(v)) }

// PutFloat64 appends 8 little-endian bytes to dst.
func PutFloat64(dst []byte, v float64) []byte { return PutUint64(dst, math.Float64bits(v)) }

// Uint8 reads a single byte from b.
func Uint8(b []byte) uint8 { return b[0] }

// Int8 reads a single byte from b.
func Int8(b []byte) int8 { return int8(b[0]) }

// Uint16 reads 2 little-endian bytes from b.
func Uint16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

// Int16 reads 2 little-endian bytes from b.
func Int16(b []byte) int16 { return int16(Uint16(b)) }

// Uint32 reads 4 little-endian bytes from b.
func Uint32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// Int32 reads 4 little-endian bytes from b.
func Int32(b []byte) int32 { return int32(Uint32(b)) }

// Uint64 reads 8 little-endian bytes from b.
func Uint64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// Int64 reads 8 little-endian bytes from b.
func Int64(b []byte) int64 { return int64(Uint64(b)) }

// Float32 reads 4 little-endian bytes from b.
func Float32(b []byte) float32 { return math.Float32frombits(Uint32(b)) }

// Float64 reads 8 little-endian bytes from b.
func Float64(b []byte) float64 { return math.Float64frombits(Uint64(b)) }

// MaxVarUint is the largest value the var-uint codec accepts, per spec:
// the range is 0 ... 2^32-1.
const MaxVarUint = math.MaxUint32

// AppendVarUint appends v (0 <= v <= 2^32-1) to dst using the standard
// 7-bits-per-byte, high-bit-continuation little-endian varint encoding.
// The teacher reaches for encoding/binary's own Uvarint for this exact
// concern (internal/encoding/document.go's object/array length prefixes);
// we do the same rather than inventing a bespoke varint package.
func AppendVarUint(dst []byte, v uint32) []byte {
	var buf [binary.MaxVarintLen32]byte
	n := binary.PutUvarint(buf[:], uint64(v))
	return append(dst, buf[:n]...)
}

// ReadVarUint decodes a var-uint from the front of b, returning the value
// and the number of bytes consumed.
func ReadVarUint(b []byte) (uint32, int, error) {
	v, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, 0, sdeerr.InvalidEncoding("truncated var-uint")
	}
	if v > MaxVarUint {
		return 0, 0, sdeerr.InvalidEncoding("var-uint %d exceeds 2^32-1", v)
	}
	return uint32(v), n, nil
}
