// Package schema describes the ordered column layout the record and
// index-key codecs encode and decode against. A Schema is borrowed by the
// codecs, never owned or mutated by them.
package schema

import (
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/colbase/sde/sdeerr"
)

// SchemaLessColumn is the sentinel column name that designates the
// schema-less tail. When present it must be the last declared column.
const SchemaLessColumn = "$$"

// ColumnType is the on-storage width/shape of a column.
type ColumnType int

const (
	Sint08 ColumnType = iota
	Uint08
	Sint16
	Uint16
	Sint32
	Uint32
	Sint64
	Uint64
	Float32
	Float64
	Float128
	Fixed
	StrZero
	TwoStrZero
	Binary
	CarBin // container binary: opaque length-prefixed DOC payload
)

func (t ColumnType) String() string {
	switch t {
	case Sint08:
		return "Sint08"
	case Uint08:
		return "Uint08"
	case Sint16:
		return "Sint16"
	case Uint16:
		return "Uint16"
	case Sint32:
		return "Sint32"
	case Uint32:
		return "Uint32"
	case Sint64:
		return "Sint64"
	case Uint64:
		return "Uint64"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Float128:
		return "Float128"
	case Fixed:
		return "Fixed"
	case StrZero:
		return "StrZero"
	case TwoStrZero:
		return "TwoStrZero"
	case Binary:
		return "Binary"
	case CarBin:
		return "CarBin"
	default:
		return "Unknown"
	}
}

// ColumnMeta is the per-column declaration a Schema carries.
type ColumnMeta struct {
	// Type is the on-storage column type.
	Type ColumnType
	// FixedLen is the byte width used when Type is Fixed.
	FixedLen int
	// UType is the DOC tag the column's stored value is materialised as
	// on decode (e.g. bsontype.ObjectID, bsontype.Int32, bsontype.String).
	UType bsontype.Type
}

// Column pairs a declared name with its metadata and its position in
// traversal order.
type Column struct {
	Name     string
	Meta     ColumnMeta
	Position int
}

// Schema is an ordered, named set of columns. Column order is total and
// authoritative for encode/decode traversal.
type Schema struct {
	Ordered []Column
	byName  map[string]int
}

// New validates and builds a Schema from an ordered column list. The
// schema-less column, if present, must be last.
func New(columns []Column) (*Schema, error) {
	byName := make(map[string]int, len(columns))
	for i, c := range columns {
		if c.Name == SchemaLessColumn && i != len(columns)-1 {
			return nil, sdeerr.InvalidArgument("schema-less column %q must be the last declared column", SchemaLessColumn)
		}
		if _, ok := byName[c.Name]; ok {
			return nil, sdeerr.InvalidArgument("duplicate column name %q", c.Name)
		}
		if c.Meta.Type == Fixed && c.Name != SchemaLessColumn {
			if c.Meta.UType == bsontype.ObjectID && c.Meta.FixedLen != 12 {
				return nil, sdeerr.SchemaMismatch("column %q: ObjectId columns must have fixedLen=12, got %d", c.Name, c.Meta.FixedLen)
			}
		}
		byName[c.Name] = i
	}

	s := &Schema{Ordered: make([]Column, len(columns)), byName: byName}
	for i, c := range columns {
		c.Position = i
		s.Ordered[i] = c
	}
	return s, nil
}

// HasSchemaLessColumn reports whether the last column is the schema-less
// sentinel.
func (s *Schema) HasSchemaLessColumn() bool {
	n := len(s.Ordered)
	return n > 0 && s.Ordered[n-1].Name == SchemaLessColumn
}

// SchemaColumnIndex returns the index at which the schema-less column
// sits, or len(s.Ordered) if there is none. Declared-column traversal
// runs over [0, SchemaColumnIndex).
func (s *Schema) SchemaColumnIndex() int {
	if s.HasSchemaLessColumn() {
		return len(s.Ordered) - 1
	}
	return len(s.Ordered)
}

// Lookup returns the column declared under name, and whether it exists.
func (s *Schema) Lookup(name string) (Column, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Column{}, false
	}
	return s.Ordered[i], true
}

// Len returns the number of declared columns, including the schema-less
// sentinel if present.
func (s *Schema) Len() int {
	return len(s.Ordered)
}
