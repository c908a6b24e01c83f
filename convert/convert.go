// Package convert implements the numeric/string conversion matrix: DOC
// scalar -> column width on encode, column width -> DOC numeric on
// decode, and textual DOC string -> numeric column.
package convert

import (
	"math"
	"strconv"
	"strings"

	"github.com/colbase/sde/lowbits"
	"github.com/colbase/sde/schema"
	"github.com/colbase/sde/sdeerr"
)

// FixedSize returns the number of bytes a fixed-width column occupies, or
// -1 for variable-width column types (StrZero, TwoStrZero, Binary, CarBin).
func FixedSize(meta schema.ColumnMeta) int {
	switch meta.Type {
	case schema.Sint08, schema.Uint08:
		return 1
	case schema.Sint16, schema.Uint16:
		return 2
	case schema.Sint32, schema.Uint32, schema.Float32:
		return 4
	case schema.Sint64, schema.Uint64, schema.Float64:
		return 8
	case schema.Float128:
		return 16
	case schema.Fixed:
		return meta.FixedLen
	default:
		return -1
	}
}

// EncodeInt writes x into dst per matrix direction A for an integer
// source (DOC Int32/Int64). Integer->integer of equal-or-wider size is a
// value-preserving copy; integer->narrower integer wraps (a cast, not a
// clamp); integer->float is a standard numeric conversion.
func EncodeInt(dst *lowbits.Buffer, meta schema.ColumnMeta, x int64, isLastField bool) error {
	switch meta.Type {
	case schema.Sint08:
		_ = dst.WriteByte(byte(int8(x)))
	case schema.Uint08:
		_ = dst.WriteByte(byte(uint8(x)))
	case schema.Sint16:
		dst.Write(lowbits.PutInt16(nil, int16(x)))
	case schema.Uint16:
		dst.Write(lowbits.PutUint16(nil, uint16(x)))
	case schema.Sint32:
		dst.Write(lowbits.PutInt32(nil, int32(x)))
	case schema.Uint32:
		dst.Write(lowbits.PutUint32(nil, uint32(x)))
	case schema.Sint64:
		dst.Write(lowbits.PutInt64(nil, x))
	case schema.Uint64:
		dst.Write(lowbits.PutUint64(nil, uint64(x)))
	case schema.Float32:
		dst.Write(lowbits.PutFloat32(nil, float32(x)))
	case schema.Float64:
		dst.Write(lowbits.PutFloat64(nil, float64(x)))
	case schema.Float128:
		return sdeerr.UnsupportedConversion("Float128 columns are not implemented")
	case schema.StrZero:
		writeDecimalText(dst, strconv.FormatInt(x, 10), isLastField)
	case schema.Binary:
		return writeBinaryText(dst, strconv.FormatInt(x, 10), isLastField)
	default:
		return sdeerr.SchemaMismatch("cannot encode integer into column type %s", meta.Type)
	}
	return nil
}

// EncodeDouble writes x into dst per matrix direction A for a Double
// source. Double->integer clamps at the target's min/max before
// truncating; Double->float32 is a standard cast.
func EncodeDouble(dst *lowbits.Buffer, meta schema.ColumnMeta, x float64, isLastField bool) error {
	switch meta.Type {
	case schema.Sint08:
		_ = dst.WriteByte(byte(uint8(int8(clampFloat(x, math.MinInt8, math.MaxInt8)))))
	case schema.Uint08:
		_ = dst.WriteByte(byte(uint8(clampFloat(x, 0, math.MaxUint8))))
	case schema.Sint16:
		dst.Write(lowbits.PutInt16(nil, int16(clampFloat(x, math.MinInt16, math.MaxInt16))))
	case schema.Uint16:
		dst.Write(lowbits.PutUint16(nil, uint16(clampFloat(x, 0, math.MaxUint16))))
	case schema.Sint32:
		dst.Write(lowbits.PutInt32(nil, int32(clampFloat(x, math.MinInt32, math.MaxInt32))))
	case schema.Uint32:
		dst.Write(lowbits.PutUint32(nil, uint32(clampFloat(x, 0, math.MaxUint32))))
	case schema.Sint64:
		dst.Write(lowbits.PutInt64(nil, int64(clampFloat(x, math.MinInt64, math.MaxInt64))))
	case schema.Uint64:
		dst.Write(lowbits.PutUint64(nil, uint64(clampFloat(x, 0, math.MaxUint64))))
	case schema.Float32:
		dst.Write(lowbits.PutFloat32(nil, float32(x)))
	case schema.Float64:
		dst.Write(lowbits.PutFloat64(nil, x))
	case schema.Float128:
		return sdeerr.UnsupportedConversion("Float128 columns are not implemented")
	case schema.StrZero:
		writeDecimalText(dst, formatDouble(x), isLastField)
	case schema.Binary:
		return writeBinaryText(dst, formatDouble(x), isLastField)
	default:
		return sdeerr.SchemaMismatch("cannot encode double into column type %s", meta.Type)
	}
	return nil
}

// clampFloat clamps x into [min, max] before the caller truncates it to
// the target integer type, mirroring the original codec's appendNumber
// clamp-then-cast.
func clampFloat(x, min, max float64) float64 {
	if x <= min {
		return min
	}
	if x >= max {
		return max
	}
	return x
}

func formatDouble(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

func writeDecimalText(dst *lowbits.Buffer, text string, isLastField bool) {
	dst.Write([]byte(text))
	if !isLastField {
		_ = dst.WriteByte(0)
	}
}

func writeBinaryText(dst *lowbits.Buffer, text string, isLastField bool) error {
	if len(text) > 126 {
		return sdeerr.InvalidArgument("Binary column text %q exceeds 126 bytes", text)
	}
	if !isLastField {
		_ = dst.WriteByte(byte(len(text) + 1))
	}
	dst.Write([]byte(text))
	_ = dst.WriteByte(0)
	return nil
}

// ParseStringToColumn parses a textual DOC string into a numeric column
// (matrix direction C). The entire string must be consumed; a trailing
// byte other than NUL is InvalidArgument.
func ParseStringToColumn(dst *lowbits.Buffer, meta schema.ColumnMeta, s string) error {
	text := strings.TrimSuffix(s, "\x00")
	switch meta.Type {
	case schema.Sint08, schema.Sint16, schema.Sint32, schema.Sint64:
		x, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return sdeerr.InvalidArgument("%q is not a valid integer", s)
		}
		return EncodeInt(dst, meta, x, true)
	case schema.Uint08, schema.Uint16, schema.Uint32, schema.Uint64:
		x, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return sdeerr.InvalidArgument("%q is not a valid unsigned integer", s)
		}
		return EncodeInt(dst, meta, int64(x), true)
	case schema.Float32, schema.Float64:
		x, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return sdeerr.InvalidArgument("%q is not a valid number", s)
		}
		return EncodeDouble(dst, meta, x, true)
	case schema.Float128:
		return sdeerr.UnsupportedConversion("Float128 columns are not implemented")
	default:
		return sdeerr.SchemaMismatch("cannot parse string into column type %s", meta.Type)
	}
}

// ReadAsInt32 decodes the stored column width at src and casts it to a
// DOC Int32, clamping when the stored type is wider or a float.
func ReadAsInt32(meta schema.ColumnMeta, src []byte) (int32, int, error) {
	switch meta.Type {
	case schema.Sint08:
		return int32(lowbits.Int8(src)), 1, nil
	case schema.Uint08:
		return int32(lowbits.Uint8(src)), 1, nil
	case schema.Sint16:
		return int32(lowbits.Int16(src)), 2, nil
	case schema.Uint16:
		return int32(lowbits.Uint16(src)), 2, nil
	case schema.Sint32:
		return lowbits.Int32(src), 4, nil
	case schema.Uint32:
		return int32(clampFloat(float64(lowbits.Uint32(src)), math.MinInt32, math.MaxInt32)), 4, nil
	case schema.Sint64:
		return int32(clampFloat(float64(lowbits.Int64(src)), math.MinInt32, math.MaxInt32)), 8, nil
	case schema.Uint64:
		return int32(clampFloat(float64(lowbits.Uint64(src)), math.MinInt32, math.MaxInt32)), 8, nil
	case schema.Float32:
		return int32(clampFloat(float64(lowbits.Float32(src)), math.MinInt32, math.MaxInt32)), 4, nil
	case schema.Float64:
		return int32(clampFloat(lowbits.Float64(src), math.MinInt32, math.MaxInt32)), 8, nil
	default:
		return 0, 0, sdeerr.SchemaMismatch("cannot decode column type %s as Int32", meta.Type)
	}
}

// ReadAsInt64 decodes the stored column width at src and casts it to a
// DOC Int64/Date/Timestamp, clamping when the stored type is a float.
func ReadAsInt64(meta schema.ColumnMeta, src []byte) (int64, int, error) {
	switch meta.Type {
	case schema.Sint08:
		return int64(lowbits.Int8(src)), 1, nil
	case schema.Uint08:
		return int64(lowbits.Uint8(src)), 1, nil
	case schema.Sint16:
		return int64(lowbits.Int16(src)), 2, nil
	case schema.Uint16:
		return int64(lowbits.Uint16(src)), 2, nil
	case schema.Sint32:
		return int64(lowbits.Int32(src)), 4, nil
	case schema.Uint32:
		return int64(lowbits.Uint32(src)), 4, nil
	case schema.Sint64:
		return lowbits.Int64(src), 8, nil
	case schema.Uint64:
		return int64(clampFloat(float64(lowbits.Uint64(src)), 0, math.MaxInt64)), 8, nil
	case schema.Float32:
		return int64(clampFloat(float64(lowbits.Float32(src)), math.MinInt64, math.MaxInt64)), 4, nil
	case schema.Float64:
		return int64(clampFloat(lowbits.Float64(src), math.MinInt64, math.MaxInt64)), 8, nil
	default:
		return 0, 0, sdeerr.SchemaMismatch("cannot decode column type %s as Int64", meta.Type)
	}
}

// ReadAsDouble decodes the stored column width at src and casts it to a
// DOC Double. Integer sources convert exactly (within float64 precision).
func ReadAsDouble(meta schema.ColumnMeta, src []byte) (float64, int, error) {
	switch meta.Type {
	case schema.Sint08:
		return float64(lowbits.Int8(src)), 1, nil
	case schema.Uint08:
		return float64(lowbits.Uint8(src)), 1, nil
	case schema.Sint16:
		return float64(lowbits.Int16(src)), 2, nil
	case schema.Uint16:
		return float64(lowbits.Uint16(src)), 2, nil
	case schema.Sint32:
		return float64(lowbits.Int32(src)), 4, nil
	case schema.Uint32:
		return float64(lowbits.Uint32(src)), 4, nil
	case schema.Sint64:
		return float64(lowbits.Int64(src)), 8, nil
	case schema.Uint64:
		return float64(lowbits.Uint64(src)), 8, nil
	case schema.Float32:
		return float64(lowbits.Float32(src)), 4, nil
	case schema.Float64:
		return lowbits.Float64(src), 8, nil
	default:
		return 0, 0, sdeerr.SchemaMismatch("cannot decode column type %s as Double", meta.Type)
	}
}

// ReadAsBool decodes a Uint08 column as a DOC Bool.
func ReadAsBool(meta schema.ColumnMeta, src []byte) (bool, int, error) {
	if meta.Type != schema.Uint08 {
		return false, 0, sdeerr.SchemaMismatch("Bool columns must have type Uint08, got %s", meta.Type)
	}
	return src[0] != 0, 1, nil
}
