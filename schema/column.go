// Package schema defines the typed data model every row in the storage core
// is bound to: columns, their data types, tables, and declared indexes.
package schema

// DataType identifies both a schema slot's kind and its byte-encoding
// choice.
type DataType int

const (
	DataTypeNull DataType = iota
	DataTypeString
	DataTypeBoolean
	DataTypeNumber
	DataTypeUuid
)

func (t DataType) String() string {
	switch t {
	case DataTypeNull:
		return "null"
	case DataTypeString:
		return "string"
	case DataTypeBoolean:
		return "boolean"
	case DataTypeNumber:
		return "number"
	case DataTypeUuid:
		return "uuid"
	default:
		return "unknown"
	}
}

// Column identifies a schema slot: its name, type, and constraints.
type Column struct {
	Name         string
	DataType     DataType
	DefaultValue *string
	Required     bool
	Comment      string
	PrimaryKey   bool
	DefaultIndex bool
}

// NewColumn builds a Column with the given name and type; defaults match the
// source's Column::new (not required, not primary key).
func NewColumn(name string, dataType DataType) Column {
	return Column{Name: name, DataType: dataType}
}

func (c Column) SetPrimaryKey(v bool) Column   { c.PrimaryKey = v; return c }
func (c Column) SetRequired(v bool) Column     { c.Required = v; return c }
func (c Column) SetDefaultIndex(v bool) Column { c.DefaultIndex = v; return c }
func (c Column) SetComment(s string) Column    { c.Comment = s; return c }
func (c Column) SetDefaultValue(s string) Column {
	c.DefaultValue = &s
	return c
}
