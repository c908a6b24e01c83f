package lowbits

// Buffer is a growable byte buffer with a tell() cursor and a
// length-patching helper. Many DOC encodings reserve 4 bytes, emit a
// payload, then patch the reserved slot with the number of bytes written;
// BeginLength/EndLength model that "scoped length" pattern directly so the
// release is guaranteed on every call site rather than hand-computed.
type Buffer struct {
	buf []byte
}

// NewBuffer returns a Buffer that appends into the given backing slice
// (which may be nil). The buffer takes ownership of cap growth from here
// on; callers should use Bytes to retrieve the final contents.
func NewBuffer(backing []byte) *Buffer {
	return &Buffer{buf: backing}
}

// Tell returns the current write cursor, i.e. the number of bytes written
// so far.
func (b *Buffer) Tell() int { return len(b.buf) }

// Bytes returns the buffer's contents. The returned slice aliases the
// buffer's storage; callers that keep it past the next write must copy.
func (b *Buffer) Bytes() []byte { return b.buf }

// Grow returns a window of n uninitialised bytes appended to the buffer,
// for callers that want to fill them in place (e.g. copying a raw DOC
// value verbatim).
func (b *Buffer) Grow(n int) []byte {
	old := len(b.buf)
	b.buf = append(b.buf, make([]byte, n)...)
	return b.buf[old : old+n]
}

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// Write appends p verbatim.
func (b *Buffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteCString appends s followed by a single NUL terminator.
func (b *Buffer) WriteCString(s string) {
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
}

// BeginLength reserves 4 bytes for a little-endian uint32 length prefix
// and returns the offset to pass to EndLength.
func (b *Buffer) BeginLength() int {
	off := len(b.buf)
	b.buf = append(b.buf, 0, 0, 0, 0)
	return off
}

// EndLength patches the 4 bytes reserved at off with the number of bytes
// written to the buffer since off (i.e. including the 4-byte prefix
// itself), matching DOC's own self-inclusive object/array length
// convention.
func (b *Buffer) EndLength(off int) {
	n := uint32(len(b.buf) - off)
	copy(b.buf[off:off+4], PutUint32(nil, n))
}
