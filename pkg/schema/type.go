package schema

import (
	"fmt"
	"strings"
)

// Type is the value type of a column. Its integer value indexes the
// dispatch tables in package codec, so the order of the constants is part of
// the format.
type Type uint8

const (
	Bool Type = iota
	Integer
	Float
	Long
	Double
	String
	BoolList
	IntegerList
	FloatList
	LongList
	DoubleList
	StringList

	// NumTypes is the number of supported column types.
	NumTypes = int(StringList) + 1
)

var typeNames = [NumTypes]string{
	Bool:        "bool",
	Integer:     "int",
	Float:       "float",
	Long:        "long",
	Double:      "double",
	String:      "string",
	BoolList:    "bool_list",
	IntegerList: "int_list",
	FloatList:   "float_list",
	LongList:    "long_list",
	DoubleList:  "double_list",
	StringList:  "string_list",
}

var typeAliases = map[string]Type{
	"boolean": Bool,
	"int32":   Integer,
	"integer": Integer,
	"float32": Float,
	"int64":   Long,
	"bigint":  Long,
	"float64": Double,
	"varchar": String,
}

func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Valid reports whether t is one of the supported types.
func (t Type) Valid() bool {
	return int(t) < NumTypes
}

// IsList reports whether t is an array type.
func (t Type) IsList() bool {
	return t >= BoolList && t <= StringList
}

// ParseType parses a type name such as "long", "int64" or "string_list".
// A list of an aliased scalar is written with a "_list" suffix, e.g.
// "int64_list".
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	if t, ok := typeAliases[name]; ok {
		return t, nil
	}
	if elem, ok := strings.CutSuffix(name, "_list"); ok {
		if t, err := ParseType(elem); err == nil && !t.IsList() {
			return t + BoolList, nil
		}
	}
	return 0, fmt.Errorf("unknown column type %q", name)
}
