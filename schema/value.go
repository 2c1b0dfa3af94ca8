package schema

import (
	"strconv"

	"github.com/google/uuid"
)

// DataValue is a schema-typed value: exactly one of the typed fields below is
// meaningful, selected by Type.
type DataValue struct {
	Type DataType

	str  string
	num  float64
	b    bool
	uid  uuid.UUID
}

func NullValue() DataValue                { return DataValue{Type: DataTypeNull} }
func StringValue(s string) DataValue      { return DataValue{Type: DataTypeString, str: s} }
func BooleanValue(b bool) DataValue       { return DataValue{Type: DataTypeBoolean, b: b} }
func NumberValue(n float64) DataValue     { return DataValue{Type: DataTypeNumber, num: n} }
func UuidValue(id uuid.UUID) DataValue    { return DataValue{Type: DataTypeUuid, uid: id} }

// IsNull reports whether v is the null value.
func (v DataValue) IsNull() bool { return v.Type == DataTypeNull }

func (v DataValue) AsString() (string, bool)   { return v.str, v.Type == DataTypeString }
func (v DataValue) AsBoolean() (bool, bool)     { return v.b, v.Type == DataTypeBoolean }
func (v DataValue) AsNumber() (float64, bool)   { return v.num, v.Type == DataTypeNumber }
func (v DataValue) AsUuid() (uuid.UUID, bool)   { return v.uid, v.Type == DataTypeUuid }

// ToString is the total stringification used for composite-key
// construction: "0" for null, decimal for numbers, lowercase "true"/"false"
// for booleans, verbatim for strings, canonical 36-char hyphenated form for
// UUID.
func (v DataValue) ToString() string {
	switch v.Type {
	case DataTypeNull:
		return "0"
	case DataTypeString:
		return v.str
	case DataTypeBoolean:
		if v.b {
			return "true"
		}
		return "false"
	case DataTypeNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case DataTypeUuid:
		return v.uid.String()
	default:
		return "0"
	}
}
