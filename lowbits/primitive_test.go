package lowbits

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedWidthRoundTrip(t *testing.T) {
	require.Equal(t, int8(-5), Int8(PutInt8(nil, -5)))
	require.Equal(t, uint8(250), Uint8(PutUint8(nil, 250)))
	require.Equal(t, int16(-1234), Int16(PutInt16(nil, -1234)))
	require.Equal(t, uint16(60000), Uint16(PutUint16(nil, 60000)))
	require.Equal(t, int32(-123456789), Int32(PutInt32(nil, -123456789)))
	require.Equal(t, uint32(4000000000), Uint32(PutUint32(nil, 4000000000)))
	require.Equal(t, int64(-9000000000000000000), Int64(PutInt64(nil, -9000000000000000000)))
	require.Equal(t, uint64(18000000000000000000), Uint64(PutUint64(nil, 18000000000000000000)))
	require.Equal(t, float32(3.5), Float32(PutFloat32(nil, 3.5)))
	require.Equal(t, 2.5, Float64(PutFloat64(nil, 2.5)))
}

func TestLittleEndianByteOrder(t *testing.T) {
	require.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, PutUint32(nil, 1))
}

func TestAppendIsAdditive(t *testing.T) {
	dst := []byte{0xff}
	dst = PutUint16(dst, 1)
	require.Equal(t, []byte{0xff, 0x01, 0x00}, dst)
}

func TestVarUintRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 300, MaxVarUint} {
		buf := AppendVarUint(nil, v)
		got, n, err := ReadVarUint(buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(buf), n)
	}
}

func TestReadVarUintTruncated(t *testing.T) {
	_, _, err := ReadVarUint(nil)
	require.Error(t, err)
}

func TestReadVarUintOverflow(t *testing.T) {
	buf := make([]byte, 0, 10)
	// encode a uint64 that exceeds 2^32-1
	var tmp [10]byte
	n := 0
	v := uint64(1) << 40
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		tmp[n] = b
		n++
		if v == 0 {
			break
		}
	}
	buf = append(buf, tmp[:n]...)
	_, _, err := ReadVarUint(buf)
	require.Error(t, err)
}
