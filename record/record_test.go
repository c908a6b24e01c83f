package record

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/colbase/sde/lowbits"
	"github.com/colbase/sde/schema"
	"github.com/colbase/sde/sdeconfig"
	"github.com/colbase/sde/sdeerr"
)

func asMap(t *testing.T, doc bsoncore.Document) bson.M {
	t.Helper()
	var m bson.M
	require.NoError(t, bson.Unmarshal(doc, &m))
	return m
}

func marshal(t *testing.T, v interface{}) bsoncore.Document {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	return bsoncore.Document(raw)
}

func fixedSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Column{
		{Name: "name", Meta: schema.ColumnMeta{Type: schema.StrZero, UType: bsontype.String}},
		{Name: "age", Meta: schema.ColumnMeta{Type: schema.Sint16, UType: bsontype.Int32}},
		{Name: "score", Meta: schema.ColumnMeta{Type: schema.Float64, UType: bsontype.Double}},
	})
	require.NoError(t, err)
	return s
}

func schemaLessSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Column{
		{Name: "id", Meta: schema.ColumnMeta{Type: schema.Sint32, UType: bsontype.Int32}},
		{Name: schema.SchemaLessColumn, Meta: schema.ColumnMeta{Type: schema.CarBin}},
	})
	require.NoError(t, err)
	return s
}

func TestEncodeDecodeFixedSchemaRoundTrip(t *testing.T) {
	sch := fixedSchema(t)
	cfg := sdeconfig.New()
	doc := marshal(t, bson.M{"name": "ada", "age": int32(36), "score": 9.5})

	dst := lowbits.NewBuffer(nil)
	require.NoError(t, Encode(dst, sch, doc, nil, cfg))

	decoded, err := Decode(sch, dst.Bytes(), cfg)
	require.NoError(t, err)

	eq, err := FieldsEqual(doc, decoded)
	require.NoError(t, err)
	require.True(t, eq)
}

func TestEncodeMissingDeclaredColumnIsSchemaMismatch(t *testing.T) {
	sch := fixedSchema(t)
	cfg := sdeconfig.New()
	doc := marshal(t, bson.M{"name": "ada", "age": int32(36)})

	dst := lowbits.NewBuffer(nil)
	err := Encode(dst, sch, doc, nil, cfg)
	require.Error(t, err)
	require.True(t, sdeerr.Is(err, sdeerr.KindSchemaMismatch))
}

func TestEncodeDecodeWithSchemaLessTail(t *testing.T) {
	sch := schemaLessSchema(t)
	cfg := sdeconfig.New()
	doc := marshal(t, bson.M{"id": int32(7), "extra1": "x", "extra2": int32(9)})

	dst := lowbits.NewBuffer(nil)
	require.NoError(t, Encode(dst, sch, doc, nil, cfg))

	decoded, err := Decode(sch, dst.Bytes(), cfg)
	require.NoError(t, err)

	eq, err := FieldsEqual(doc, decoded)
	require.NoError(t, err)
	require.True(t, eq)
}

func TestEncodeDecodeNestedObjectColumn(t *testing.T) {
	s, err := schema.New([]schema.Column{
		{Name: "nested", Meta: schema.ColumnMeta{Type: schema.CarBin, UType: bsontype.EmbeddedDocument}},
	})
	require.NoError(t, err)
	cfg := sdeconfig.New()
	doc := marshal(t, bson.M{"nested": bson.M{"a": int32(1), "b": "y"}})

	dst := lowbits.NewBuffer(nil)
	require.NoError(t, Encode(dst, s, doc, nil, cfg))

	decoded, err := Decode(s, dst.Bytes(), cfg)
	require.NoError(t, err)

	eq, err := FieldsEqual(doc, decoded)
	require.NoError(t, err)
	require.True(t, eq)

	if diff := cmp.Diff(asMap(t, doc), asMap(t, decoded)); diff != "" {
		t.Errorf("decoded document differs from input (-want +got):\n%s", diff)
	}
}

func TestEncodeIntoNarrowerColumnClamps(t *testing.T) {
	s, err := schema.New([]schema.Column{
		{Name: "v", Meta: schema.ColumnMeta{Type: schema.Sint08, UType: bsontype.Int32}},
	})
	require.NoError(t, err)
	cfg := sdeconfig.New()
	doc := marshal(t, bson.M{"v": 9.9e10})

	dst := lowbits.NewBuffer(nil)
	require.NoError(t, Encode(dst, s, doc, nil, cfg))
	require.Equal(t, int8(127), int8(dst.Bytes()[0]))
}

func TestEncodeDuplicateFieldNameIsInvalidArgument(t *testing.T) {
	sch := schemaLessSchema(t)
	cfg := sdeconfig.New()
	doc := marshal(t, bson.D{
		{Key: "id", Value: int32(1)},
		{Key: "x", Value: "a"},
		{Key: "x", Value: "b"},
	})

	dst := lowbits.NewBuffer(nil)
	err := Encode(dst, sch, doc, nil, cfg)
	require.Error(t, err)
	require.True(t, sdeerr.Is(err, sdeerr.KindInvalidArgument))
}

func TestEncodeExcludeSchemaSuppressesSchemaLessField(t *testing.T) {
	sch := schemaLessSchema(t)
	exclude, err := schema.New([]schema.Column{
		{Name: "extra1", Meta: schema.ColumnMeta{Type: schema.StrZero, UType: bsontype.String}},
	})
	require.NoError(t, err)
	cfg := sdeconfig.New()
	doc := marshal(t, bson.M{"id": int32(7), "extra1": "x", "extra2": int32(9)})

	dst := lowbits.NewBuffer(nil)
	require.NoError(t, Encode(dst, sch, doc, exclude, cfg))

	decoded, err := Decode(sch, dst.Bytes(), cfg)
	require.NoError(t, err)

	m := asMap(t, decoded)
	require.Contains(t, m, "id")
	require.Contains(t, m, "extra2")
	require.NotContains(t, m, "extra1")
}

func TestEncodeDecodeDBPointerAndCodeWithScope(t *testing.T) {
	s, err := schema.New([]schema.Column{
		{Name: "ref", Meta: schema.ColumnMeta{Type: schema.StrZero, UType: bsontype.DBPointer}},
		{Name: "fn", Meta: schema.ColumnMeta{Type: schema.CarBin, UType: bsontype.CodeWithScope}},
	})
	require.NoError(t, err)
	cfg := sdeconfig.New()

	doc := marshal(t, bson.D{
		{Key: "ref", Value: primitive.DBPointer{DB: "things", Pointer: primitive.NewObjectID()}},
		{Key: "fn", Value: primitive.CodeWithScope{Code: "function() {}", Scope: bson.M{"x": int32(1)}}},
	})

	dst := lowbits.NewBuffer(nil)
	require.NoError(t, Encode(dst, s, doc, nil, cfg))

	decoded, err := Decode(s, dst.Bytes(), cfg)
	require.NoError(t, err)

	eq, err := FieldsEqual(doc, decoded)
	require.NoError(t, err)
	require.True(t, eq)
}

func TestEncodeDecodeDate32SecondsCompression(t *testing.T) {
	s, err := schema.New([]schema.Column{
		{Name: "when", Meta: schema.ColumnMeta{Type: schema.Sint32, UType: bsontype.DateTime}},
	})
	require.NoError(t, err)
	cfg := sdeconfig.New()

	const millis = int64(1_700_000_000_123)
	const wantSeconds = int32(1_700_000_000)
	doc := marshal(t, bson.M{"when": primitive.DateTime(millis)})

	dst := lowbits.NewBuffer(nil)
	require.NoError(t, Encode(dst, s, doc, nil, cfg))
	require.Equal(t, lowbits.PutInt32(nil, wantSeconds), dst.Bytes())

	decoded, err := Decode(s, dst.Bytes(), cfg)
	require.NoError(t, err)

	m := asMap(t, decoded)
	got, ok := m["when"].(primitive.DateTime)
	require.True(t, ok)
	require.Equal(t, int64(wantSeconds)*1000, int64(got))
}

func TestEncodeDecodeObjectIdAndTimestamp(t *testing.T) {
	s, err := schema.New([]schema.Column{
		{Name: "oid", Meta: schema.ColumnMeta{Type: schema.Fixed, FixedLen: 12, UType: bsontype.ObjectID}},
		{Name: "ts", Meta: schema.ColumnMeta{Type: schema.Sint64, UType: bsontype.Timestamp}},
	})
	require.NoError(t, err)
	cfg := sdeconfig.New()

	doc := marshal(t, bson.D{
		{Key: "oid", Value: primitive.NewObjectID()},
		{Key: "ts", Value: primitive.Timestamp{T: 1_700_000_000, I: 7}},
	})

	dst := lowbits.NewBuffer(nil)
	require.NoError(t, Encode(dst, s, doc, nil, cfg))

	decoded, err := Decode(s, dst.Bytes(), cfg)
	require.NoError(t, err)

	eq, err := FieldsEqual(doc, decoded)
	require.NoError(t, err)
	require.True(t, eq)
}

func TestEncodeDecodeRegexMidField(t *testing.T) {
	s, err := schema.New([]schema.Column{
		{Name: "pat", Meta: schema.ColumnMeta{Type: schema.TwoStrZero, UType: bsontype.Regex}},
		{Name: "tail", Meta: schema.ColumnMeta{Type: schema.Sint32, UType: bsontype.Int32}},
	})
	require.NoError(t, err)
	cfg := sdeconfig.New()

	doc := marshal(t, bson.D{
		{Key: "pat", Value: primitive.Regex{Pattern: "^abc", Options: "i"}},
		{Key: "tail", Value: int32(5)},
	})

	dst := lowbits.NewBuffer(nil)
	require.NoError(t, Encode(dst, s, doc, nil, cfg))

	decoded, err := Decode(s, dst.Bytes(), cfg)
	require.NoError(t, err)

	eq, err := FieldsEqual(doc, decoded)
	require.NoError(t, err)
	require.True(t, eq)
}

func TestEncodeDecodeRegexAsLastField(t *testing.T) {
	s, err := schema.New([]schema.Column{
		{Name: "pat", Meta: schema.ColumnMeta{Type: schema.TwoStrZero, UType: bsontype.Regex}},
	})
	require.NoError(t, err)
	cfg := sdeconfig.New()

	doc := marshal(t, bson.M{"pat": primitive.Regex{Pattern: "^abc$", Options: ""}})

	dst := lowbits.NewBuffer(nil)
	require.NoError(t, Encode(dst, s, doc, nil, cfg))

	decoded, err := Decode(s, dst.Bytes(), cfg)
	require.NoError(t, err)

	eq, err := FieldsEqual(doc, decoded)
	require.NoError(t, err)
	require.True(t, eq)
}

func TestDecodeFieldRegexLastFieldMissingTrailingNUL(t *testing.T) {
	dst := lowbits.NewBuffer(nil)
	meta := schema.ColumnMeta{Type: schema.TwoStrZero, UType: bsontype.Regex}
	src := []byte("^abc\x00i") // options has no trailing NUL in storage
	n, err := decodeField(dst, meta, bsontype.Regex, src, true, sdeconfig.New())
	require.NoError(t, err)
	require.Equal(t, len(src), n)
	require.Equal(t, []byte("^abc\x00i\x00"), dst.Bytes())
}

func TestDecodeFieldRegexLastFieldNoOptions(t *testing.T) {
	dst := lowbits.NewBuffer(nil)
	meta := schema.ColumnMeta{Type: schema.TwoStrZero, UType: bsontype.Regex}
	src := []byte("^abc\x00") // pattern's own NUL only, no options at all
	n, err := decodeField(dst, meta, bsontype.Regex, src, true, sdeconfig.New())
	require.NoError(t, err)
	require.Equal(t, len(src), n)
	require.Equal(t, []byte("^abc\x00\x00"), dst.Bytes())
}

func TestDecodeStringLikeLastFieldWithoutTrailingNUL(t *testing.T) {
	dst := lowbits.NewBuffer(nil)
	n, err := decodeStringLike(dst, []byte("hello"), true)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	want := append(lowbits.PutInt32(nil, int32(6)), append([]byte("hello"), 0)...)
	require.Equal(t, want, dst.Bytes())
}

func TestDecodeStringLikeLastFieldWithTrailingNUL(t *testing.T) {
	dst := lowbits.NewBuffer(nil)
	n, err := decodeStringLike(dst, []byte("hello\x00"), true)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	want := append(lowbits.PutInt32(nil, int32(6)), []byte("hello\x00")...)
	require.Equal(t, want, dst.Bytes())
}

func TestDecodeStringLikeLastFieldEmpty(t *testing.T) {
	dst := lowbits.NewBuffer(nil)
	n, err := decodeStringLike(dst, nil, true)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	want := append(lowbits.PutInt32(nil, int32(1)), 0)
	require.Equal(t, want, dst.Bytes())
}

func TestEncodeDecodeIntIntoStrZeroLastFieldElidesNUL(t *testing.T) {
	s, err := schema.New([]schema.Column{
		{Name: "val", Meta: schema.ColumnMeta{Type: schema.StrZero, UType: bsontype.String}},
	})
	require.NoError(t, err)
	cfg := sdeconfig.New()
	doc := marshal(t, bson.M{"val": int32(42)})

	dst := lowbits.NewBuffer(nil)
	require.NoError(t, Encode(dst, s, doc, nil, cfg))
	require.Equal(t, []byte("42"), dst.Bytes())

	decoded, err := Decode(s, dst.Bytes(), cfg)
	require.NoError(t, err)

	m := asMap(t, decoded)
	require.Equal(t, "42", m["val"])
}
