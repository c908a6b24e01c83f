// Package record implements the schema-directed record codec: DOC
// document <-> fixed-column-then-schema-less-tail byte record. It is
// grounded directly on the original codec's SchemaRecordCoder::encode and
// SchemaRecordCoder::decode.
package record

import (
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/colbase/sde/container"
	"github.com/colbase/sde/convert"
	"github.com/colbase/sde/lowbits"
	"github.com/colbase/sde/schema"
	"github.com/colbase/sde/sdeconfig"
	"github.com/colbase/sde/sdeerr"
)

// Encode appends the SDE record encoding of doc, against sch, to dst.
// Declared columns are written positionally in schema order; any input
// field left unconsumed is appended to the schema-less tail, in its
// original document order, if sch declares one; if it does not, such a
// field is an InvalidArgument. Fields the schema
// declares but doc does not carry are a SchemaMismatch. If exclude is
// non-nil, schema-less-tail fields whose name is a declared column of
// exclude are skipped: those fields are covered by a sibling index and
// need not be duplicated in this record.
func Encode(dst *lowbits.Buffer, sch *schema.Schema, doc bsoncore.Document, exclude *schema.Schema, cfg sdeconfig.Config) error {
	elems, err := doc.Elements()
	if err != nil {
		return sdeerr.InvalidEncoding("malformed document: %v", err)
	}
	fieldsMap, err := buildFieldsMap(elems)
	if err != nil {
		return err
	}
	stored := make([]bool, len(elems))
	schemaColIdx := sch.SchemaColumnIndex()
	lastDeclaredIsFinal := !sch.HasSchemaLessColumn()

	for i := 0; i < schemaColIdx; i++ {
		col := sch.Ordered[i]
		idx, ok := fieldsMap[col.Name]
		if !ok {
			return sdeerr.SchemaMismatch("document is missing declared column %q", col.Name)
		}
		stored[idx] = true

		isLastField := lastDeclaredIsFinal && i == sch.Len()-1
		if err := encodeField(dst, col.Meta, elems[idx].Value(), isLastField, cfg); err != nil {
			return sdeerr.Wrapf(err, "column %q", col.Name)
		}
	}

	if !sch.HasSchemaLessColumn() {
		for i, elem := range elems {
			if !stored[i] {
				return sdeerr.InvalidArgument("document field %q matches no declared column and the schema has no schema-less column", elem.Key())
			}
		}
		return nil
	}
	for i, elem := range elems {
		if stored[i] {
			continue
		}
		if exclude != nil {
			if _, ok := exclude.Lookup(elem.Key()); ok {
				continue
			}
		}
		val := elem.Value()
		_ = dst.WriteByte(byte(val.Type))
		dst.WriteCString(elem.Key())
		if err := container.EncodeValue(dst, val, cfg, 0); err != nil {
			return sdeerr.Wrapf(err, "schema-less field %q", elem.Key())
		}
	}
	return nil
}

// buildFieldsMap is the encode path's FieldsMap construction: a
// name->source-offset index over the document's top-level fields.
// Duplicate names are rejected rather than silently resolved to the
// first occurrence.
func buildFieldsMap(elems []bsoncore.Element) (map[string]int, error) {
	fieldsMap := make(map[string]int, len(elems))
	for i, e := range elems {
		name := e.Key()
		if _, ok := fieldsMap[name]; ok {
			return nil, sdeerr.InvalidArgument("document has duplicate field name %q", name)
		}
		fieldsMap[name] = i
	}
	return fieldsMap, nil
}

// encodeField writes one declared column's value per matrix direction A,
// dispatching on the input DOC type the way narkEncodeBsonElemVal +
// SchemaRecordCoder::encode do.
func encodeField(dst *lowbits.Buffer, meta schema.ColumnMeta, v bsoncore.Value, isLastField bool, cfg sdeconfig.Config) error {
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
		if meta.Type != schema.Sint64 && meta.Type != schema.Uint64 {
			return sdeerr.SchemaMismatch("Timestamp column must be Sint64/Uint64, got %s", meta.Type)
		}
		dst.Write(v.Data)
		return nil
	case bsontype.DateTime:
		return encodeDate(dst, meta, v, isLastField)
	case bsontype.ObjectID:
		if meta.Type != schema.Fixed || meta.FixedLen != 12 {
			return sdeerr.SchemaMismatch("ObjectId column must be Fixed(12), got %s", meta.Type)
		}
		dst.Write(v.Data)
		return nil
	case bsontype.Symbol, bsontype.JavaScript, bsontype.String:
		return encodeStringLike(dst, meta, v)
	case bsontype.DBPointer:
		if meta.Type != schema.StrZero {
			return sdeerr.SchemaMismatch("DBPointer column must be StrZero, got %s", meta.Type)
		}
		dst.Write(v.Data[4:])
		return nil
	case bsontype.Array:
		if meta.Type != schema.CarBin {
			return sdeerr.SchemaMismatch("Array column must be CarBin, got %s", meta.Type)
		}
		arr, ok := v.ArrayOK()
		if !ok {
			return sdeerr.InvalidEncoding("malformed Array value")
		}
		off := dst.BeginLength()
		if err := container.EncodeArray(dst, arr, cfg, 0); err != nil {
			return err
		}
		// The CarBin prefix counts only the payload after the 4-byte prefix.
		copy(dst.Bytes()[off:off+4], lowbits.PutUint32(nil, uint32(dst.Tell()-off-4)))
		return nil
	case bsontype.EmbeddedDocument:
		if meta.Type != schema.CarBin {
			return sdeerr.SchemaMismatch("Object column must be CarBin, got %s", meta.Type)
		}
		sub, ok := v.DocumentOK()
		if !ok {
			return sdeerr.InvalidEncoding("malformed Object value")
		}
		off := dst.BeginLength()
		if err := container.EncodeObject(dst, sub, cfg, 0); err != nil {
			return err
		}
		// The CarBin prefix counts only the payload after the 4-byte prefix.
		copy(dst.Bytes()[off:off+4], lowbits.PutUint32(nil, uint32(dst.Tell()-off-4)))
		return nil
	case bsontype.CodeWithScope:
		if meta.Type != schema.CarBin {
			return sdeerr.SchemaMismatch("CodeWScope column must be CarBin, got %s", meta.Type)
		}
		dst.Write(v.Data)
		return nil
	case bsontype.Binary:
		if meta.Type != schema.CarBin {
			return sdeerr.SchemaMismatch("BinData column must be CarBin, got %s", meta.Type)
		}
		return encodeBinary(dst, v)
	case bsontype.Regex:
		if meta.Type != schema.TwoStrZero {
			return sdeerr.SchemaMismatch("Regex column must be TwoStrZero, got %s", meta.Type)
		}
		dst.Write(v.Data)
		return nil
	default:
		return sdeerr.InvalidEncoding("unsupported DOC type %v for declared column", v.Type)
	}
}

func encodeDate(dst *lowbits.Buffer, meta schema.ColumnMeta, v bsoncore.Value, isLastField bool) error {
	millis, ok := v.DateTimeOK()
	if !ok {
		return sdeerr.InvalidEncoding("malformed DateTime value")
	}
	switch meta.Type {
	case schema.Sint32, schema.Uint32:
		return convert.EncodeInt(dst, meta, millis/1000, isLastField)
	case schema.Sint64, schema.Uint64:
		dst.Write(v.Data)
		return nil
	default:
		return sdeerr.SchemaMismatch("DateTime column must be one of Sint32/Uint32/Sint64/Uint64, got %s", meta.Type)
	}
}

func encodeStringLike(dst *lowbits.Buffer, meta schema.ColumnMeta, v bsoncore.Value) error {
	s, ok := v.StringValueOK()
	if !ok {
		return sdeerr.InvalidEncoding("malformed string-like value")
	}
	if meta.Type == schema.StrZero {
		dst.Write(v.Data[4:])
		return nil
	}
	return convert.ParseStringToColumn(dst, meta, s)
}

func encodeBinary(dst *lowbits.Buffer, v bsoncore.Value) error {
	_, data, ok := v.BinaryOK()
	if !ok {
		return sdeerr.InvalidEncoding("malformed Binary value")
	}
	dst.Write(lowbits.PutUint32(nil, uint32(len(data)+1)))
	dst.Write(v.Data[4:]) // subtype byte + data
	return nil
}

// Decode reconstructs the DOC document a record was encoded from. It
// returns the document as raw DOC wire bytes.
func Decode(sch *schema.Schema, data []byte, cfg sdeconfig.Config) (bsoncore.Document, error) {
	body := lowbits.NewBuffer(nil)
	pos := 0
	schemaColIdx := sch.SchemaColumnIndex()

	for i := 0; i < schemaColIdx; i++ {
		col := sch.Ordered[i]
		_ = body.WriteByte(byte(col.Meta.UType))
		body.WriteCString(col.Name)

		isLastField := !sch.HasSchemaLessColumn() && i == sch.Len()-1
		n, err := decodeField(body, col.Meta, col.Meta.UType, data[pos:], isLastField, cfg)
		if err != nil {
			return nil, sdeerr.Wrapf(err, "column %q", col.Name)
		}
		pos += n
	}

	if sch.HasSchemaLessColumn() {
		n, err := container.DecodeElements(body, data[pos:], cfg, 0, false)
		if err != nil {
			return nil, err
		}
		pos += n
	} else if pos != len(data) {
		return nil, sdeerr.InvalidEncoding("record has %d trailing bytes with no schema-less column declared", len(data)-pos)
	}

	_ = body.WriteByte(0x00)
	return bsoncore.Document(wrapLength(body.Bytes())), nil
}

func wrapLength(body []byte) []byte {
	full := lowbits.NewBuffer(nil)
	off := full.BeginLength()
	full.Write(body)
	full.EndLength(off)
	return full.Bytes()
}

// decodeField writes the wire value bytes for one declared column,
// mirroring SchemaRecordCoder::decode's switch over the column's DOC
// target type (uType). It returns the number of bytes of src consumed.
func decodeField(dst *lowbits.Buffer, meta schema.ColumnMeta, target bsontype.Type, src []byte, isLastField bool, cfg sdeconfig.Config) (int, error) {
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
	case bsontype.Int64:
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
	case bsontype.Timestamp:
		dst.Write(src[0:8])
		return 8, nil
	case bsontype.DateTime:
		return decodeDate(dst, meta, src)
	case bsontype.ObjectID:
		dst.Write(src[0:12])
		return 12, nil
	case bsontype.Symbol, bsontype.JavaScript, bsontype.String:
		return decodeStringLike(dst, src, isLastField)
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
	case bsontype.Array:
		if len(src) < 4 {
			return 0, sdeerr.InvalidEncoding("truncated Array column")
		}
		n := int(lowbits.Int32(src))
		if n < 0 || len(src) < 4+n {
			return 0, sdeerr.InvalidEncoding("truncated Array column")
		}
		wire, _, err := container.DecodeArray(src[4:4+n], cfg, 0)
		if err != nil {
			return 0, err
		}
		dst.Write(wire)
		return 4 + n, nil
	case bsontype.EmbeddedDocument:
		if len(src) < 4 {
			return 0, sdeerr.InvalidEncoding("truncated Object column")
		}
		n := int(lowbits.Int32(src))
		if n < 0 || len(src) < 4+n {
			return 0, sdeerr.InvalidEncoding("truncated Object column")
		}
		wire, _, err := container.DecodeObject(src[4:4+n], cfg, 0)
		if err != nil {
			return 0, err
		}
		dst.Write(wire)
		return 4 + n, nil
	case bsontype.CodeWithScope:
		if len(src) < 4 {
			return 0, sdeerr.InvalidEncoding("truncated CodeWScope column")
		}
		n := int(lowbits.Int32(src))
		if n < 4 || len(src) < n {
			return 0, sdeerr.InvalidEncoding("truncated CodeWScope column")
		}
		dst.Write(src[:n])
		return n, nil
	case bsontype.Binary:
		if len(src) < 4 {
			return 0, sdeerr.InvalidEncoding("truncated BinData column")
		}
		n := int(lowbits.Int32(src))
		if n < 1 || len(src) < 4+n {
			return 0, sdeerr.InvalidEncoding("truncated BinData column")
		}
		dst.Write(lowbits.PutInt32(nil, int32(n-1)))
		dst.Write(src[4 : 4+n])
		return 4 + n, nil
	case bsontype.Regex:
		patEnd := indexNUL(src, 0)
		if patEnd < 0 {
			return 0, sdeerr.InvalidEncoding("unterminated regex pattern column")
		}
		if isLastField {
			if patEnd == len(src)-1 {
				// only the pattern's own NUL is present; options is empty.
				dst.Write(src[:patEnd+1])
				_ = dst.WriteByte(0)
				return len(src), nil
			}
			dst.Write(src)
			if src[len(src)-1] != 0 {
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
	default:
		return 0, sdeerr.InvalidEncoding("unsupported column target type %v", target)
	}
}

func decodeDate(dst *lowbits.Buffer, meta schema.ColumnMeta, src []byte) (int, error) {
	switch meta.Type {
	case schema.Sint32, schema.Uint32:
		if len(src) < 4 {
			return 0, sdeerr.InvalidEncoding("truncated Date column")
		}
		sec := int64(lowbits.Int32(src))
		dst.Write(lowbits.PutInt64(nil, sec*1000))
		return 4, nil
	case schema.Sint64, schema.Uint64:
		if len(src) < 8 {
			return 0, sdeerr.InvalidEncoding("truncated Date column")
		}
		dst.Write(src[0:8])
		return 8, nil
	default:
		return 0, sdeerr.SchemaMismatch("Date column must be one of Sint32/Uint32/Sint64/Uint64, got %s", meta.Type)
	}
}

func decodeStringLike(dst *lowbits.Buffer, src []byte, isLastField bool) (int, error) {
	if isLastField {
		if len(src) == 0 {
			dst.Write(lowbits.PutInt32(nil, 1))
			_ = dst.WriteByte(0)
			return 0, nil
		}
		if src[len(src)-1] != 0 {
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
}

func indexNUL(b []byte, from int) int {
	for i := from; i < len(b); i++ {
		if b[i] == 0 {
			return i
		}
	}
	return -1
}
