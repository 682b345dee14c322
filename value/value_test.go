package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupType(t *testing.T) {
	for _, name := range TypeNames() {
		typ, ok := LookupType(name)
		require.True(t, ok, name)
		assert.Equal(t, name, typ.String())
	}
	_, ok := LookupType("string")
	assert.False(t, ok)
	assert.Equal(t, "invalid", TypeInvalid.String())
}

func TestFromBits(t *testing.T) {
	tests := []struct {
		typ      Type
		bits     uint64
		expected Value
	}{
		{TypeUint, 5, NewU64(5)},
		{TypeInt, ^uint64(0), NewI64(-1)},
		{TypeBool, 0, NewBool(false)},
		{TypeBool, 7, NewBool(true)},
	}
	for _, tt := range tests {
		v, err := FromBits(tt.typ, tt.bits)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, v)
		assert.Equal(t, tt.typ, v.Type())
	}
	_, err := FromBits(TypePtr, 1)
	assert.Error(t, err)
}

func TestReinterpretation(t *testing.T) {
	v := NewI64(-2)
	assert.Equal(t, uint64(0xfffffffffffffffe), v.Word())
	assert.Equal(t, int64(-2), v.Int())
	assert.Equal(t, "-2", v.Literal())
	assert.Equal(t, "I64(-2)", v.String())

	u := NewU64(v.Word())
	assert.Equal(t, "18446744073709551614", u.Literal())
}

func TestString(t *testing.T) {
	assert.Equal(t, "Bool(true)", NewBool(true).String())
	assert.Equal(t, "U64(5)", NewU64(5).String())
	assert.Equal(t, "Str(3)", NewStr(3).String())
	assert.Equal(t, "Ptr(buf)", NewPtr("buf").String())
	assert.Equal(t, "Invalid", Value{}.String())
	assert.Equal(t, "U64", U64.String())
}

func TestWordPanicsForReferences(t *testing.T) {
	assert.Panics(t, func() { NewStr(0).Word() })
	assert.Panics(t, func() { NewPtr("buf").Word() })
	assert.Equal(t, 2, NewStr(2).Index())
	assert.Equal(t, TypePtr, NewPtr("buf").Type())
}
