// Package value implements the typed scalar value model: a raw string
// payload tagged with a ValueType and optional formatting metadata, plus
// the identifier constructors used throughout the graph-mapping engine.
package value

import (
	"fmt"

	"github.com/kgindex/kgnode/internal/schema"
)

// Options carries the optional, value-type-dependent formatting metadata
// a Value may be annotated with.
type Options struct {
	Format   string // e.g. a NUMBER's display format
	Unit     string // e.g. a NUMBER's unit
	Language string // e.g. a TEXT's language tag
}

// IsZero reports whether no option field is set.
func (o Options) IsZero() bool {
	return o.Format == "" && o.Unit == "" && o.Language == ""
}

// Value is a tagged scalar: a raw string payload plus its type tag and
// options. Equality is structural over all three fields.
type Value struct {
	Raw     string
	Type    schema.ValueType
	Options Options
}

// New constructs a Value, rejecting Unknown (UNKNOWN must never be
// constructed directly; it only exists as the sentinel returned by a
// failed parse).
func New(raw string, vt schema.ValueType, opts Options) (Value, error) {
	if vt == schema.Unknown {
		return Value{}, fmt.Errorf("value: cannot construct a value of UNKNOWN type")
	}
	return Value{Raw: raw, Type: vt, Options: opts}, nil
}

// ParseWire decodes a value off the on-chain wire representation, where
// the type arrives as its canonical string name. UNKNOWN (or any name
// that fails to parse) is a DecodeError-class failure for the caller to
// surface, per the enumeration in the value model's contract.
func ParseWire(raw string, typeName string, opts Options) (Value, error) {
	vt, err := schema.ParseValueType(typeName)
	if err != nil {
		return Value{}, fmt.Errorf("value: parse wire value: %w", err)
	}
	return New(raw, vt, opts)
}

// Equal reports structural equality over (raw, type, options).
func (v Value) Equal(other Value) bool {
	return v.Raw == other.Raw && v.Type == other.Type && v.Options == other.Options
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%q)", v.Type, v.Raw)
}
