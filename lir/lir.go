// Package lir lowers quad programs into a flat stack-machine instruction
// sequence and folds constant bodies to immediate values.
package lir

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quadlang/quad/op"
	"github.com/quadlang/quad/value"
)

// Op is one low-level instruction. Which operand field is meaningful
// depends on the opcode: Value for PUSH, Name for PROC, CALL, LABEL, JUMP,
// JUMP_F and PUSH_MEM, Arg for PUSH_STR, USE_BINDING and the locals and
// escaping stack opcodes.
type Op struct {
	Code  op.Code
	Value value.Value
	Name  string
	Arg   uint64
}

// Simple returns an op that carries no operand.
func Simple(code op.Code) Op { return Op{Code: code} }

// Push returns an op pushing an immediate value.
func Push(v value.Value) Op { return Op{Code: op.Push, Value: v} }

// PushStr returns an op pushing the string pool entry at index.
func PushStr(index int) Op { return Op{Code: op.PushStr, Arg: uint64(index)} }

// PushMem returns an op pushing the address of a static memory region.
func PushMem(name string) Op { return Op{Code: op.PushMem, Name: name} }

// Call returns a call to the named procedure.
func Call(name string) Op { return Op{Code: op.Call, Name: name} }

// Proc returns the entry marker of the named procedure.
func Proc(name string) Op { return Op{Code: op.Proc, Name: name} }

// Label returns a label declaration.
func Label(name string) Op { return Op{Code: op.Label, Name: name} }

// Jump returns an unconditional jump to a label.
func Jump(label string) Op { return Op{Code: op.Jump, Name: label} }

// JumpF returns a jump to label taken when the popped value is false.
func JumpF(label string) Op { return Op{Code: op.JumpF, Name: label} }

// UseBinding returns an op pushing the binding depth slots below the top of
// the return stack.
func UseBinding(depth int) Op { return Op{Code: op.UseBinding, Arg: uint64(depth)} }

// WithArg returns an op carrying a count or offset operand.
func WithArg(code op.Code, arg uint64) Op { return Op{Code: code, Arg: arg} }

func (o Op) String() string {
	name := strings.ToLower(o.Code.String())
	switch op.GetInfo(o.Code).Operand {
	case op.ValueOperand:
		return fmt.Sprintf("%s %s", name, o.Value)
	case op.NameOperand:
		return fmt.Sprintf("%s %s", name, o.Name)
	case op.ArgOperand:
		return fmt.Sprintf("%s %d", name, o.Arg)
	}
	return name
}

// Unit is a lowered program: the instruction sequence plus the data it
// refers to.
type Unit struct {
	Ops     []Op
	Strings []string          // string pool, indexed by PUSH_STR
	Memory  map[string]uint64 // static memory region sizes in bytes
}

// MemoryNames returns the static memory region names in sorted order.
func (u *Unit) MemoryNames() []string {
	names := make([]string, 0, len(u.Memory))
	for name := range u.Memory {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders the instruction sequence as a bracketed list.
func (u *Unit) String() string {
	parts := make([]string, len(u.Ops))
	for i, o := range u.Ops {
		parts[i] = o.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// BlockedError is returned by an evaluator when execution reached a call to
// a name that has no procedure in the unit. While folding, this means the
// body depends on a constant that has not been folded yet.
type BlockedError struct {
	Name string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("evaluation blocked on %q", e.Name)
}
