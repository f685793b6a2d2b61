package codec

import (
	"strings"
)

// TypeRef is the declared type of an input or output column.
type TypeRef string

const (
	TypeString   TypeRef = "string"
	TypeNumber   TypeRef = "number"
	TypeInteger  TypeRef = "integer"
	TypeBoolean  TypeRef = "boolean"
	TypeDate     TypeRef = "date"
	TypeDateTime TypeRef = "dateTime"
)

var typeAliases = map[string]TypeRef{
	"string":        TypeString,
	"number":        TypeNumber,
	"double":        TypeNumber,
	"float":         TypeNumber,
	"decimal":       TypeNumber,
	"integer":       TypeInteger,
	"int":           TypeInteger,
	"long":          TypeInteger,
	"boolean":       TypeBoolean,
	"bool":          TypeBoolean,
	"date":          TypeDate,
	"datetime":      TypeDateTime,
	"date and time": TypeDateTime,
}

// ParseTypeRef normalizes a declared type name. Matching is case-insensitive.
// Unrecognized names are returned unchanged with ok set to false; the codec
// encodes them like strings and decodes them like numbers.
func ParseTypeRef(s string) (ref TypeRef, ok bool) {
	if t, found := typeAliases[strings.ToLower(strings.TrimSpace(s))]; found {
		return t, true
	}
	return TypeRef(s), false
}

// Known reports whether t is one of the supported column types.
func (t TypeRef) Known() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeDate, TypeDateTime:
		return true
	}
	return false
}

// Ordered reports whether ordering operators apply to t.
func (t TypeRef) Ordered() bool {
	switch t {
	case TypeNumber, TypeInteger, TypeDate, TypeDateTime:
		return true
	}
	return false
}

// Operator is a comparison applied between an input cell and a rule literal.
type Operator uint8

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
)

// String returns the literal token of the operator.
func (op Operator) String() string {
	switch op {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	default:
		return "?"
	}
}

// operatorTokens is ordered longest match first.
var operatorTokens = []struct {
	token   string
	op      Operator
	ordered bool
}{
	{"!=", OpNotEqual, false},
	{"<>", OpNotEqual, false},
	{">=", OpGreaterThanOrEqual, true},
	{"<=", OpLessThanOrEqual, true},
	{">", OpGreaterThan, true},
	{"<", OpLessThan, true},
	{"=", OpEqual, true},
}

// Condition is an encoded rule cell. When Active is false the cell is a
// don't-care and Value and Op carry no meaning.
type Condition struct {
	Value  float64
	Op     Operator
	Active bool
}

// DontCare is the condition of an empty or dash cell.
var DontCare = Condition{Op: OpEqual}
