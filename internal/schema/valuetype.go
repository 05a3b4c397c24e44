// Package schema is the system-level constant registry: well-known
// attribute IDs, relation-type IDs, and the ValueType enum. It follows the
// table-name / enum registry convention of a Domain enum with round-trip
// String()/Parse helpers, adapted here to the knowledge-graph's scalar
// value-type tag instead of a storage engine's table-name space.
package schema

import "fmt"

// ValueType tags the scalar kind carried by an attribute's value.
type ValueType uint8

const (
	Unknown ValueType = iota
	Text
	Number
	Checkbox
	URL
	Time
	Point
	valueTypeLen
)

var valueTypeNames = [valueTypeLen]string{
	Unknown:  "UNKNOWN",
	Text:     "TEXT",
	Number:   "NUMBER",
	Checkbox: "CHECKBOX",
	URL:      "URL",
	Time:     "TIME",
	Point:    "POINT",
}

// String renders the canonical wire name of the value type.
func (t ValueType) String() string {
	if t >= valueTypeLen {
		return "UNKNOWN"
	}
	return valueTypeNames[t]
}

// ParseValueType parses the canonical wire name into a ValueType. Unknown
// names round-trip to an error rather than silently becoming Unknown, so
// that on-chain decode failures surface as a DecodeError instead of a
// value that silently looks like every other unknown value.
func ParseValueType(s string) (ValueType, error) {
	for vt := Text; vt < valueTypeLen; vt++ {
		if valueTypeNames[vt] == s {
			return vt, nil
		}
	}
	return Unknown, fmt.Errorf("schema: unknown value type %q", s)
}
