// Package container implements the DOC sub-codec: the condensed
// container-payload format used for CarBin columns and the schema-less
// tail. It is grounded directly on the original codec's
// narkEncodeBsonObject/narkEncodeBsonArray (encode) and
// narkDecodeBsonObject/narkDecodeBsonArray (decode).
//
// Encode reads DOC input via go.mongodb.org/mongo-driver/x/bsonx/bsoncore
// (the DOC library, an out-of-scope collaborator per the component
// design); decode reconstructs raw DOC wire bytes by hand, the same way
// the record and index-key codecs do, rather than lean on bsoncore's
// builder API.
package container

import (
	"strconv"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/colbase/sde/lowbits"
	"github.com/colbase/sde/sdeconfig"
	"github.com/colbase/sde/sdeerr"
)

const eoo = 0x00

// heterogeneous is the array item-type-tag sentinel the original codec
// uses when an array's elements don't all share one DOC type.
const heterogeneous = 129

// noItemsYet is the sentinel meaning "no array items observed yet".
const noItemsYet = 128

func checkDepth(cfg sdeconfig.Config, depth int) error {
	if depth > cfg.MaxDepth {
		return sdeerr.InvalidEncoding("container nesting exceeds max depth %d", cfg.MaxDepth)
	}
	return nil
}

// EncodeObject appends doc's condensed encoding to dst: each element as
// (type tag, NUL-terminated name, condensed value), terminated by a
// trailing EOO tag.
func EncodeObject(dst *lowbits.Buffer, doc bsoncore.Document, cfg sdeconfig.Config, depth int) error {
	if err := checkDepth(cfg, depth); err != nil {
		return err
	}
	elems, err := doc.Elements()
	if err != nil {
		return sdeerr.InvalidEncoding("malformed embedded document: %v", err)
	}
	for _, elem := range elems {
		val := elem.Value()
		_ = dst.WriteByte(byte(val.Type))
		dst.WriteCString(elem.Key())
		if err := EncodeValue(dst, val, cfg, depth); err != nil {
			return err
		}
	}
	_ = dst.WriteByte(eoo)
	return nil
}

// EncodeArray appends arr's condensed encoding to dst: a var-uint item
// count, then (if non-empty) a single item-type tag — or the
// heterogeneous sentinel plus a per-item tag — followed by each item's
// condensed value.
func EncodeArray(dst *lowbits.Buffer, arr bsoncore.Array, cfg sdeconfig.Config, depth int) error {
	if err := checkDepth(cfg, depth); err != nil {
		return err
	}
	values, err := arr.Values()
	if err != nil {
		return sdeerr.InvalidEncoding("malformed embedded array: %v", err)
	}

	itemType := noItemsYet
	for _, v := range values {
		if itemType == noItemsYet {
			itemType = int(v.Type)
		} else if int(v.Type) != itemType {
			itemType = heterogeneous
		}
	}

	dst.Write(lowbits.AppendVarUint(nil, uint32(len(values))))
	if len(values) == 0 {
		return nil
	}
	_ = dst.WriteByte(byte(itemType))
	for _, v := range values {
		if itemType == heterogeneous {
			_ = dst.WriteByte(byte(v.Type))
		}
		if err := EncodeValue(dst, v, cfg, depth); err != nil {
			return err
		}
	}
	return nil
}

// EncodeValue appends v's condensed payload (the type-specific part of
// narkEncodeBsonElemVal) to dst. Fixed-width scalars are copied
// verbatim; String/Symbol/JavaScript/DBPointer drop their redundant
// length prefix; Array/Object recurse; CodeWithScope/Binary/Regex are
// stored as their full raw DOC wire bytes.
func EncodeValue(dst *lowbits.Buffer, v bsoncore.Value, cfg sdeconfig.Config, depth int) error {
	switch v.Type {
	case bsontype.Undefined, bsontype.Null, bsontype.MaxKey, bsontype.MinKey:
		// no payload
	case bsontype.Boolean:
		b, ok := v.BooleanOK()
		if !ok {
			return sdeerr.InvalidEncoding("malformed Bool value")
		}
		if b {
			_ = dst.WriteByte(1)
		} else {
			_ = dst.WriteByte(0)
		}
	case bsontype.Int32:
		dst.Write(v.Data)
	case bsontype.Timestamp, bsontype.DateTime, bsontype.Double, bsontype.Int64:
		dst.Write(v.Data)
	case bsontype.ObjectID:
		dst.Write(v.Data)
	case bsontype.Symbol, bsontype.JavaScript, bsontype.String:
		if len(v.Data) < 4 {
			return sdeerr.InvalidEncoding("malformed string-like value")
		}
		dst.Write(v.Data[4:])
	case bsontype.DBPointer:
		if len(v.Data) < 4 {
			return sdeerr.InvalidEncoding("malformed DBPointer value")
		}
		dst.Write(v.Data[4:])
	case bsontype.Array:
		arr, ok := v.ArrayOK()
		if !ok {
			return sdeerr.InvalidEncoding("malformed embedded array value")
		}
		if err := EncodeArray(dst, arr, cfg, depth+1); err != nil {
			return err
		}
	case bsontype.EmbeddedDocument:
		sub, ok := v.DocumentOK()
		if !ok {
			return sdeerr.InvalidEncoding("malformed embedded document value")
		}
		if err := EncodeObject(dst, sub, cfg, depth+1); err != nil {
			return err
		}
	case bsontype.CodeWithScope, bsontype.Binary, bsontype.Regex:
		dst.Write(v.Data)
	default:
		return sdeerr.InvalidEncoding("unsupported DOC type %v in container payload", v.Type)
	}
	return nil
}

// DecodeObject reconstructs a complete DOC wire document (length prefix
// through trailing EOO) from a condensed container payload starting at
// src[0]. It returns the reconstructed bytes and the number of bytes of
// src consumed.
func DecodeObject(src []byte, cfg sdeconfig.Config, depth int) ([]byte, int, error) {
	if err := checkDepth(cfg, depth); err != nil {
		return nil, 0, err
	}
	body := lowbits.NewBuffer(nil)
	pos, err := DecodeElements(body, src, cfg, depth, true)
	if err != nil {
		return nil, 0, err
	}
	_ = body.WriteByte(eoo)
	return wrapWithLength(body.Bytes()), pos, nil
}

// DecodeElements decodes a run of (type tag, name, value) triples from
// src, appending their reconstructed wire bytes to dst. When stopAtEOO is
// true it consumes and stops at a trailing EOO tag (as object bodies
// carry); otherwise it decodes until src is exhausted, the shape of the
// schema-less tail that the record codec appends after its declared
// columns. It returns the number of bytes of src consumed, including the
// EOO byte when stopAtEOO is true.
func DecodeElements(dst *lowbits.Buffer, src []byte, cfg sdeconfig.Config, depth int, stopAtEOO bool) (int, error) {
	pos := 0
	for {
		if stopAtEOO {
			if pos >= len(src) {
				return 0, sdeerr.InvalidEncoding("truncated container object")
			}
			if src[pos] == eoo {
				pos++
				return pos, nil
			}
		} else if pos >= len(src) {
			return pos, nil
		}

		tag := src[pos]
		pos++
		nameEnd := indexNUL(src, pos)
		if nameEnd < 0 {
			return 0, sdeerr.InvalidEncoding("unterminated field name in container object")
		}
		name := string(src[pos:nameEnd])
		pos = nameEnd + 1

		wireVal, n, err := DecodeValue(bsontype.Type(tag), src[pos:], cfg, depth)
		if err != nil {
			return 0, err
		}
		pos += n

		_ = dst.WriteByte(tag)
		dst.WriteCString(name)
		dst.Write(wireVal)
	}
}

// DecodeArray reconstructs a complete DOC wire array document from a
// condensed container payload starting at src[0], materialising the
// positional keys "0", "1", ... that DOC arrays carry on the wire.
func DecodeArray(src []byte, cfg sdeconfig.Config, depth int) ([]byte, int, error) {
	if err := checkDepth(cfg, depth); err != nil {
		return nil, 0, err
	}
	cnt, n, err := lowbits.ReadVarUint(src)
	if err != nil {
		return nil, 0, err
	}
	pos := n

	body := lowbits.NewBuffer(nil)
	if cnt > 0 {
		if pos >= len(src) {
			return nil, 0, sdeerr.InvalidEncoding("truncated container array")
		}
		itemType := src[pos]
		pos++
		for i := 0; i < int(cnt); i++ {
			tag := itemType
			if itemType == heterogeneous {
				if pos >= len(src) {
					return nil, 0, sdeerr.InvalidEncoding("truncated container array item tag")
				}
				tag = src[pos]
				pos++
			}
			wireVal, n, err := DecodeValue(bsontype.Type(tag), src[pos:], cfg, depth)
			if err != nil {
				return nil, 0, err
			}
			pos += n

			_ = body.WriteByte(tag)
			body.WriteCString(strconv.Itoa(i))
			body.Write(wireVal)
		}
	}
	_ = body.WriteByte(eoo)
	return wrapWithLength(body.Bytes()), pos, nil
}

// DecodeValue reconstructs the DOC wire bytes for a single value of type
// t from the condensed payload at src[0], the inverse of EncodeValue. It
// returns the wire bytes and the number of bytes of src consumed.
func DecodeValue(t bsontype.Type, src []byte, cfg sdeconfig.Config, depth int) ([]byte, int, error) {
	switch t {
	case bsontype.Undefined, bsontype.Null, bsontype.MaxKey, bsontype.MinKey:
		return nil, 0, nil
	case bsontype.Boolean:
		if len(src) < 1 {
			return nil, 0, sdeerr.InvalidEncoding("truncated Bool value")
		}
		return src[0:1], 1, nil
	case bsontype.Int32:
		if len(src) < 4 {
			return nil, 0, sdeerr.InvalidEncoding("truncated Int32 value")
		}
		return src[0:4], 4, nil
	case bsontype.Timestamp, bsontype.DateTime, bsontype.Double, bsontype.Int64:
		if len(src) < 8 {
			return nil, 0, sdeerr.InvalidEncoding("truncated 8-byte value")
		}
		return src[0:8], 8, nil
	case bsontype.ObjectID:
		if len(src) < 12 {
			return nil, 0, sdeerr.InvalidEncoding("truncated ObjectId value")
		}
		return src[0:12], 12, nil
	case bsontype.Symbol, bsontype.JavaScript, bsontype.String:
		end := indexNUL(src, 0)
		if end < 0 {
			return nil, 0, sdeerr.InvalidEncoding("unterminated string-like value")
		}
		chars := src[:end+1]
		wireVal := append(lowbits.PutInt32(nil, int32(len(chars))), chars...)
		return wireVal, end + 1, nil
	case bsontype.DBPointer:
		end := indexNUL(src, 0)
		if end < 0 || len(src) < end+1+12 {
			return nil, 0, sdeerr.InvalidEncoding("truncated DBPointer value")
		}
		ns := src[:end+1]
		oid := src[end+1 : end+1+12]
		wireVal := append(lowbits.PutInt32(nil, int32(len(ns))), ns...)
		wireVal = append(wireVal, oid...)
		return wireVal, end + 1 + 12, nil
	case bsontype.Array:
		return DecodeArray(src, cfg, depth+1)
	case bsontype.EmbeddedDocument:
		return DecodeObject(src, cfg, depth+1)
	case bsontype.CodeWithScope:
		if len(src) < 4 {
			return nil, 0, sdeerr.InvalidEncoding("truncated CodeWithScope value")
		}
		total := int(lowbits.Int32(src))
		if total < 4 || len(src) < total {
			return nil, 0, sdeerr.InvalidEncoding("truncated CodeWithScope value")
		}
		return src[:total], total, nil
	case bsontype.Binary:
		if len(src) < 5 {
			return nil, 0, sdeerr.InvalidEncoding("truncated Binary value")
		}
		dataLen := int(lowbits.Int32(src))
		total := 4 + 1 + dataLen
		if dataLen < 0 || len(src) < total {
			return nil, 0, sdeerr.InvalidEncoding("truncated Binary value")
		}
		return src[:total], total, nil
	case bsontype.Regex:
		patEnd := indexNUL(src, 0)
		if patEnd < 0 {
			return nil, 0, sdeerr.InvalidEncoding("unterminated regex pattern")
		}
		optEnd := indexNUL(src, patEnd+1)
		if optEnd < 0 {
			return nil, 0, sdeerr.InvalidEncoding("unterminated regex options")
		}
		total := optEnd + 1
		return src[:total], total, nil
	default:
		return nil, 0, sdeerr.InvalidEncoding("unsupported DOC type %v in container payload", t)
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

func wrapWithLength(body []byte) []byte {
	full := lowbits.NewBuffer(nil)
	off := full.BeginLength()
	full.Write(body)
	full.EndLength(off)
	return full.Bytes()
}
