// Package indexkey implements the order-preserving, positional index-key
// codec: a column prefix of a schema, encoded and decoded purely by
// position (no field-name tags), with no schema-less tail and no
// Array/Object/CodeWScope/BinData support. It is grounded directly on
// the original codec's encodeIndexKey/decodeIndexKey.
package indexkey

import (
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/colbase/sde/convert"
	"github.com/colbase/sde/lowbits"
	"github.com/colbase/sde/schema"
	"github.com/colbase/sde/sdeerr"
)

// Encode appends the index-key encoding of doc, against sch, to dst.
// sch must not declare a schema-less column. doc's fields are consumed
// strictly by position, one per declared column; a single leading
// column carrying an empty embedded document yields an empty key and
// stops immediately, matching a zero-field compound index prefix.
func Encode(dst *lowbits.Buffer, sch *schema.Schema, doc bsoncore.Document) error {
	if sch.HasSchemaLessColumn() {
		return sdeerr.InvalidArgument("index-key schema must not declare a schema-less column")
	}
	elems, err := doc.Elements()
	if err != nil {
		return sdeerr.InvalidEncoding("malformed document: %v", err)
	}

	for i, col := range sch.Ordered {
		if i >= len(elems) {
			return sdeerr.SchemaMismatch("document has fewer fields than index-key schema declares")
		}
		v := elems[i].Value()
		isLastField := i == sch.Len()-1

		if i == 0 && v.Type == bsontype.EmbeddedDocument {
			sub, ok := v.DocumentOK()
			if ok {
				subElems, err := sub.Elements()
				if err == nil && len(subElems) == 0 {
					return nil
				}
			}
		}

		if err := encodeColumn(dst, col.Meta, v, isLastField); err != nil {
			return sdeerr.Wrapf(err, "column %q", col.Name)
		}
	}
	return nil
}

func encodeColumn(dst *lowbits.Buffer, meta schema.ColumnMeta, v bsoncore.Value, isLastField bool) error {
	switch v.Type {
	case bsontype.Undefined, bsontype.Null, bsontype.MaxKey, bsontype.MinKey:
		return nil
	case bsontype.Boolean:
		b, ok := v.BooleanOK()
		if !ok {
			return sdeerr.InvalidEncoding("malformed Bool value")
		}
		if meta.Type != schema.Uint08 {
			return sdeerr.SchemaMismatch("Bool column must have type Uint08, got %s", meta.Type)
		}
		if b {
			_ = dst.WriteByte(1)
		} else {
			_ = dst.WriteByte(0)
		}
		return nil
	case bsontype.Int32:
		i32, ok := v.Int32OK()
		if !ok {
			return sdeerr.InvalidEncoding("malformed Int32 value")
		}
		return convert.EncodeInt(dst, meta, int64(i32), isLastField)
	case bsontype.Int64:
		i64, ok := v.Int64OK()
		if !ok {
			return sdeerr.InvalidEncoding("malformed Int64 value")
		}
		return convert.EncodeInt(dst, meta, i64, isLastField)
	case bsontype.Double:
		f, ok := v.DoubleOK()
		if !ok {
			return sdeerr.InvalidEncoding("malformed Double value")
		}
		return convert.EncodeDouble(dst, meta, f, isLastField)
	case bsontype.Timestamp:
		dst.Write(v.Data)
		return nil
	case bsontype.DateTime:
		millis, ok := v.DateTimeOK()
		if !ok {
			return sdeerr.InvalidEncoding("malformed DateTime value")
		}
		return convert.EncodeInt(dst, meta, millis, isLastField)
	case bsontype.ObjectID:
		if meta.Type != schema.Fixed || meta.FixedLen != 12 {
			return sdeerr.SchemaMismatch("ObjectId column must be Fixed(12), got %s", meta.Type)
		}
		dst.Write(v.Data)
		return nil
	case bsontype.Symbol, bsontype.JavaScript, bsontype.String:
		s, ok := v.StringValueOK()
		if !ok {
			return sdeerr.InvalidEncoding("malformed string-like value")
		}
		if meta.Type == schema.StrZero {
			dst.Write(v.Data[4:])
			return nil
		}
		return convert.ParseStringToColumn(dst, meta, s)
	case bsontype.DBPointer:
		if meta.Type != schema.StrZero {
			return sdeerr.SchemaMismatch("DBPointer column must be StrZero, got %s", meta.Type)
		}
		dst.Write(v.Data[4:])
		return nil
	case bsontype.Regex:
		if meta.Type != schema.TwoStrZero {
			return sdeerr.SchemaMismatch("Regex column must be TwoStrZero, got %s", meta.Type)
		}
		dst.Write(v.Data)
		return nil
	case bsontype.Array:
		return sdeerr.UnsupportedConversion("Array is not a valid index-key field")
	case bsontype.EmbeddedDocument:
		return sdeerr.UnsupportedConversion("Object is not a valid index-key field")
	case bsontype.CodeWithScope:
		return sdeerr.UnsupportedConversion("CodeWScope is not a valid index-key field")
	case bsontype.Binary:
		return sdeerr.UnsupportedConversion("BinData is not a valid index-key field")
	default:
		return sdeerr.InvalidEncoding("unsupported DOC type %v for index-key column", v.Type)
	}
}

// Decode reconstructs the DOC document an index key was encoded from.
func Decode(sch *schema.Schema, data []byte) (bsoncore.Document, error) {
	if sch.HasSchemaLessColumn() {
		return nil, sdeerr.InvalidArgument("index-key schema must not declare a schema-less column")
	}
	body := lowbits.NewBuffer(nil)
	pos := 0
	for i, col := range sch.Ordered {
		_ = body.WriteByte(byte(col.Meta.UType))
		body.WriteCString(col.Name)

		isLastField := i == sch.Len()-1
		n, err := decodeColumn(body, col.Meta, col.Meta.UType, data[pos:], isLastField)
		if err != nil {
			return nil, sdeerr.Wrapf(err, "column %q", col.Name)
		}
		pos += n
	}
	if pos != len(data) {
		return nil, sdeerr.InvalidEncoding("index key has %d trailing bytes", len(data)-pos)
	}
	_ = body.WriteByte(0x00)

	full := lowbits.NewBuffer(nil)
	off := full.BeginLength()
	full.Write(body.Bytes())
	full.EndLength(off)
	return bsoncore.Document(full.Bytes()), nil
}

func decodeColumn(dst *lowbits.Buffer, meta schema.ColumnMeta, target bsontype.Type, src []byte, isLastField bool) (int, error) {
	switch target {
	case bsontype.Undefined, bsontype.Null, bsontype.MaxKey, bsontype.MinKey:
		return 0, nil
	case bsontype.Boolean:
		b, n, err := convert.ReadAsBool(meta, src)
		if err != nil {
			return 0, err
		}
		if b {
			_ = dst.WriteByte(1)
		} else {
			_ = dst.WriteByte(0)
		}
		return n, nil
	case bsontype.Int32:
		x, n, err := convert.ReadAsInt32(meta, src)
		if err != nil {
			return 0, err
		}
		dst.Write(lowbits.PutInt32(nil, x))
		return n, nil
	case bsontype.Int64, bsontype.Timestamp, bsontype.DateTime:
		x, n, err := convert.ReadAsInt64(meta, src)
		if err != nil {
			return 0, err
		}
		dst.Write(lowbits.PutInt64(nil, x))
		return n, nil
	case bsontype.Double:
		x, n, err := convert.ReadAsDouble(meta, src)
		if err != nil {
			return 0, err
		}
		dst.Write(lowbits.PutFloat64(nil, x))
		return n, nil
	case bsontype.ObjectID:
		if len(src) < 12 {
			return 0, sdeerr.InvalidEncoding("truncated ObjectId column")
		}
		dst.Write(src[0:12])
		return 12, nil
	case bsontype.Symbol, bsontype.JavaScript, bsontype.String:
		if isLastField {
			if len(src) == 0 || src[len(src)-1] != 0 {
				dst.Write(lowbits.PutInt32(nil, int32(len(src)+1)))
				dst.Write(src)
				_ = dst.WriteByte(0)
			} else {
				dst.Write(lowbits.PutInt32(nil, int32(len(src))))
				dst.Write(src)
			}
			return len(src), nil
		}
		end := indexNUL(src, 0)
		if end < 0 {
			return 0, sdeerr.InvalidArgument("unterminated string column")
		}
		dst.Write(lowbits.PutInt32(nil, int32(end+1)))
		dst.Write(src[:end+1])
		return end + 1, nil
	case bsontype.DBPointer:
		end := indexNUL(src, 0)
		if end < 0 || len(src) < end+1+12 {
			return 0, sdeerr.InvalidEncoding("truncated DBPointer column")
		}
		ns := src[:end+1]
		oid := src[end+1 : end+1+12]
		dst.Write(lowbits.PutInt32(nil, int32(len(ns))))
		dst.Write(ns)
		dst.Write(oid)
		return end + 1 + 12, nil
	case bsontype.Regex:
		patEnd := indexNUL(src, 0)
		if patEnd < 0 {
			return 0, sdeerr.InvalidEncoding("unterminated regex pattern column")
		}
		if isLastField {
			dst.Write(src)
			if len(src) == 0 || src[len(src)-1] != 0 {
				_ = dst.WriteByte(0)
			}
			return len(src), nil
		}
		optEnd := indexNUL(src, patEnd+1)
		if optEnd < 0 {
			return 0, sdeerr.InvalidEncoding("unterminated regex options column")
		}
		total := optEnd + 1
		dst.Write(src[:total])
		return total, nil
	case bsontype.Array, bsontype.EmbeddedDocument, bsontype.CodeWithScope, bsontype.Binary:
		return 0, sdeerr.UnsupportedConversion("%v must not be an index-key field", target)
	default:
		return 0, sdeerr.InvalidEncoding("unsupported column target type %v", target)
	}
}

func indexNUL(b []byte, from int) int {
	for i := from; i < len(b); i++ {
		if b[i] == 0 {
			return i
		}
	}
	return -1
}
