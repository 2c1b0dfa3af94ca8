package schema

import (
	"fmt"

	"github.com/google/uuid"

	gojson "github.com/goccy/go-json"

	"github.com/schemejs/storage/errs"
)

// Row is a self-describing value bound to a Table: column-keyed lookup plus
// (de)serialization to bytes. The in-memory Row is discarded once handed to
// the storage layer.
type Row interface {
	GetValue(column string) (DataValue, bool)
	SetValue(column string, value DataValue)
	TableName() string
	Table() *Table
	Serialize() ([]byte, error)
}

// jsonEnvelope is the on-disk shape of the default row codec: a JSON object
// tagged with the owning table name, wrapping a flat column-name-keyed
// value map.
type jsonEnvelope struct {
	Table string                 `json:"table"`
	Value map[string]interface{} `json:"value"`
}

// JSONRow is the default Row implementation: JSON-shaped bytes tagged with
// the owning table name, via goccy/go-json.
type JSONRow struct {
	table  *Table
	values map[string]DataValue
}

// NewJSONRow builds an empty row bound to table.
func NewJSONRow(table *Table) *JSONRow {
	return &JSONRow{table: table, values: make(map[string]DataValue)}
}

func (r *JSONRow) Table() *Table      { return r.table }
func (r *JSONRow) TableName() string  { return r.table.Name }

func (r *JSONRow) GetValue(column string) (DataValue, bool) {
	v, ok := r.values[column]
	return v, ok
}

func (r *JSONRow) SetValue(column string, value DataValue) {
	r.values[column] = value
}

// Serialize encodes the row as a table-name-tagged JSON envelope.
func (r *JSONRow) Serialize() ([]byte, error) {
	value := make(map[string]interface{}, len(r.values))
	for name, v := range r.values {
		value[name] = toJSONValue(v)
	}
	b, err := gojson.Marshal(jsonEnvelope{Table: r.table.Name, Value: value})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidSerialization, err)
	}
	return b, nil
}

// DeserializeJSONRow decodes data into a Row bound to table, converting each
// present field according to the column's declared DataType.
func DeserializeJSONRow(table *Table, data []byte) (*JSONRow, error) {
	var env jsonEnvelope
	if err := gojson.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidSerialization, err)
	}
	row := NewJSONRow(table)
	for name, raw := range env.Value {
		col, ok := table.GetColumn(name)
		if !ok {
			continue
		}
		v, err := fromJSONValue(col.DataType, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", errs.ErrInvalidSerialization, name, err)
		}
		row.SetValue(name, v)
	}
	return row, nil
}

func toJSONValue(v DataValue) interface{} {
	switch v.Type {
	case DataTypeNull:
		return nil
	case DataTypeString:
		s, _ := v.AsString()
		return s
	case DataTypeBoolean:
		b, _ := v.AsBoolean()
		return b
	case DataTypeNumber:
		n, _ := v.AsNumber()
		return n
	case DataTypeUuid:
		id, _ := v.AsUuid()
		return id.String()
	default:
		return nil
	}
}

func fromJSONValue(dataType DataType, raw interface{}) (DataValue, error) {
	if raw == nil {
		return NullValue(), nil
	}
	switch dataType {
	case DataTypeString:
		s, ok := raw.(string)
		if !ok {
			return DataValue{}, fmt.Errorf("expected string")
		}
		return StringValue(s), nil
	case DataTypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return DataValue{}, fmt.Errorf("expected bool")
		}
		return BooleanValue(b), nil
	case DataTypeNumber:
		n, ok := raw.(float64)
		if !ok {
			return DataValue{}, fmt.Errorf("expected number")
		}
		return NumberValue(n), nil
	case DataTypeUuid:
		s, ok := raw.(string)
		if !ok {
			return DataValue{}, fmt.Errorf("expected uuid string")
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return DataValue{}, err
		}
		return UuidValue(id), nil
	default:
		return NullValue(), nil
	}
}
