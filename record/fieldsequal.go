package record

import (
	"bytes"
	"math"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/colbase/sde/sdelog"
)

// FieldsEqual reports whether x and y carry the same set of fields with
// equal values, directly on the DOC documents rather than their SDE
// encodings. It is grounded on SchemaRecordCoder::fieldsEqual: field
// order doesn't matter, and when either side of a matched pair is a
// Double the comparison uses a 10% relative tolerance rather than exact
// equality, since the round trip through a narrower storage column may
// have lost precision.
func FieldsEqual(x, y bsoncore.Document) (bool, error) {
	xElems, err := x.Elements()
	if err != nil {
		return false, err
	}
	yElems, err := y.Elements()
	if err != nil {
		return false, err
	}
	if len(xElems) != len(yElems) {
		return false, nil
	}

	yByName := make(map[string]bsoncore.Value, len(yElems))
	for _, e := range yElems {
		yByName[e.Key()] = e.Value()
	}

	for _, xe := range xElems {
		yv, ok := yByName[xe.Key()]
		if !ok {
			return false, nil
		}
		xv := xe.Value()
		if xv.Type == bsontype.Double || yv.Type == bsontype.Double {
			if !doublesEqual(xv, yv) {
				return false, nil
			}
			continue
		}
		if !valuesEqual(xv, yv) {
			return false, nil
		}
	}
	return true, nil
}

// doublesEqual resolves the xd==0 case the original's relative-error
// formula leaves undefined (division by zero): zero is treated as equal
// only to zero, never within "10% of zero".
func doublesEqual(x, y bsoncore.Value) bool {
	xd, xok := x.DoubleOK()
	yd, yok := y.DoubleOK()
	if !xok {
		xd = numericAsDouble(x)
	}
	if !yok {
		yd = numericAsDouble(y)
	}
	if xd == 0 {
		eq := yd == 0
		sdelog.Debug("fieldsEqual: xd==0 open-question path", map[string]interface{}{
			"yd":    yd,
			"equal": eq,
		})
		return eq
	}
	return math.Abs((xd-yd)/xd) <= 0.1
}

func numericAsDouble(v bsoncore.Value) float64 {
	switch v.Type {
	case bsontype.Int32:
		i, _ := v.Int32OK()
		return float64(i)
	case bsontype.Int64:
		i, _ := v.Int64OK()
		return float64(i)
	default:
		return 0
	}
}

func valuesEqual(x, y bsoncore.Value) bool {
	if x.Type != y.Type {
		return false
	}
	return bytes.Equal(x.Data, y.Data)
}
