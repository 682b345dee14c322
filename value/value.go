// Package value defines the immediate values and value types of quad.
package value

import (
	"fmt"
	"strconv"
)

// Type is a declared value type.
type Type int

const (
	TypeInvalid Type = iota
	TypeBool
	TypeUint
	TypeInt
	TypePtr
)

var typeNames = map[Type]string{
	TypeBool: "bool",
	TypeUint: "uint",
	TypeInt:  "int",
	TypePtr:  "ptr",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "invalid"
}

// LookupType returns the type with the given source spelling.
func LookupType(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return TypeInvalid, false
}

// TypeNames returns the source spelling of every type, in declaration order.
func TypeNames() []string {
	return []string{"int", "uint", "bool", "ptr"}
}

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	Bool Kind = iota + 1
	U64
	I64
	Str
	Ptr
)

var kindNames = map[Kind]string{
	Bool: "Bool",
	U64:  "U64",
	I64:  "I64",
	Str:  "Str",
	Ptr:  "Ptr",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is an immediate value. Bool, U64 and I64 values are views of the
// same 64-bit word in Bits. A Str value holds a string pool index in Bits
// and a Ptr value names a static memory region in Ref.
type Value struct {
	Kind Kind
	Bits uint64
	Ref  string
}

// NewBool returns a boolean value.
func NewBool(b bool) Value {
	if b {
		return Value{Kind: Bool, Bits: 1}
	}
	return Value{Kind: Bool}
}

// NewU64 returns an unsigned 64-bit value.
func NewU64(u uint64) Value {
	return Value{Kind: U64, Bits: u}
}

// NewI64 returns a signed 64-bit value.
func NewI64(i int64) Value {
	return Value{Kind: I64, Bits: uint64(i)}
}

// NewStr returns a reference to entry index of the string pool.
func NewStr(index int) Value {
	return Value{Kind: Str, Bits: uint64(index)}
}

// NewPtr returns the address of the named static memory region.
func NewPtr(name string) Value {
	return Value{Kind: Ptr, Ref: name}
}

// FromBits reinterprets a raw machine word according to a declared type.
// Booleans are normalized to 0 or 1.
func FromBits(t Type, bits uint64) (Value, error) {
	switch t {
	case TypeBool:
		return NewBool(bits != 0), nil
	case TypeUint:
		return NewU64(bits), nil
	case TypeInt:
		return NewI64(int64(bits)), nil
	}
	return Value{}, fmt.Errorf("cannot build a %s value from a machine word", t)
}

// Word returns the 64-bit word pushed for v. It panics for Str and Ptr
// values, which have no word until they are placed in memory.
func (v Value) Word() uint64 {
	switch v.Kind {
	case Bool, U64, I64:
		return v.Bits
	}
	panic(fmt.Sprintf("value: %s has no immediate word", v.Kind))
}

// Int returns the signed interpretation of the value.
func (v Value) Int() int64 {
	return int64(v.Bits)
}

// Index returns the string pool index of a Str value.
func (v Value) Index() int {
	return int(v.Bits)
}

// Type returns the declared type that the value inhabits.
func (v Value) Type() Type {
	switch v.Kind {
	case Bool:
		return TypeBool
	case U64:
		return TypeUint
	case I64:
		return TypeInt
	case Ptr, Str:
		return TypePtr
	}
	return TypeInvalid
}

// Literal returns the value as it would be written in assembly or source.
func (v Value) Literal() string {
	switch v.Kind {
	case Bool:
		return strconv.FormatUint(v.Bits, 10)
	case U64:
		return strconv.FormatUint(v.Bits, 10)
	case I64:
		return strconv.FormatInt(int64(v.Bits), 10)
	case Str:
		return "str_" + strconv.FormatUint(v.Bits, 10)
	case Ptr:
		return v.Ref
	}
	return "?"
}

func (v Value) String() string {
	switch v.Kind {
	case Bool:
		return fmt.Sprintf("Bool(%t)", v.Bits != 0)
	case U64:
		return fmt.Sprintf("U64(%d)", v.Bits)
	case I64:
		return fmt.Sprintf("I64(%d)", int64(v.Bits))
	case Str:
		return fmt.Sprintf("Str(%d)", v.Bits)
	case Ptr:
		return fmt.Sprintf("Ptr(%s)", v.Ref)
	}
	return "Invalid"
}
