package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

func TestNewRejectsSchemaLessColumnNotLast(t *testing.T) {
	_, err := New([]Column{
		{Name: SchemaLessColumn, Meta: ColumnMeta{Type: CarBin}},
		{Name: "a", Meta: ColumnMeta{Type: Sint32, UType: bsontype.Int32}},
	})
	require.Error(t, err)
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	_, err := New([]Column{
		{Name: "a", Meta: ColumnMeta{Type: Sint32, UType: bsontype.Int32}},
		{Name: "a", Meta: ColumnMeta{Type: Sint32, UType: bsontype.Int32}},
	})
	require.Error(t, err)
}

func TestNewRejectsMisconfiguredObjectIdColumn(t *testing.T) {
	_, err := New([]Column{
		{Name: "id", Meta: ColumnMeta{Type: Fixed, FixedLen: 8, UType: bsontype.ObjectID}},
	})
	require.Error(t, err)
}

func TestSchemaColumnIndexAndLookup(t *testing.T) {
	s, err := New([]Column{
		{Name: "a", Meta: ColumnMeta{Type: Sint32, UType: bsontype.Int32}},
		{Name: SchemaLessColumn, Meta: ColumnMeta{Type: CarBin}},
	})
	require.NoError(t, err)
	require.True(t, s.HasSchemaLessColumn())
	require.Equal(t, 1, s.SchemaColumnIndex())

	col, ok := s.Lookup("a")
	require.True(t, ok)
	require.Equal(t, 0, col.Position)

	_, ok = s.Lookup("missing")
	require.False(t, ok)
}

func TestSchemaColumnIndexWithoutSchemaLess(t *testing.T) {
	s, err := New([]Column{
		{Name: "a", Meta: ColumnMeta{Type: Sint32, UType: bsontype.Int32}},
	})
	require.NoError(t, err)
	require.False(t, s.HasSchemaLessColumn())
	require.Equal(t, 1, s.SchemaColumnIndex())
	require.Equal(t, 1, s.Len())
}
