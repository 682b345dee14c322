// Package dis renders lowered quad code as a table.
package dis

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/quadlang/quad/internal/table"
	"github.com/quadlang/quad/lir"
	"github.com/quadlang/quad/op"
)

// Instruction is one row of a listing.
type Instruction struct {
	Offset   int
	Proc     string // owning procedure, empty for the entry code
	Opcode   op.Code
	Operands string
	Info     string
}

var (
	controlColor = color.New(color.FgYellow)
	stackColor   = color.New(color.FgCyan)
	markerColor  = color.New(color.Bold)
)

// Disassemble returns one instruction per op, with operands rendered and
// pooled strings and memory sizes shown as info.
func Disassemble(unit *lir.Unit) []Instruction {
	instructions := make([]Instruction, 0, len(unit.Ops))
	current := ""
	for i, o := range unit.Ops {
		if o.Code == op.Proc {
			current = o.Name
		}
		instr := Instruction{Offset: i, Proc: current, Opcode: o.Code}
		switch op.GetInfo(o.Code).Operand {
		case op.ValueOperand:
			instr.Operands = o.Value.Literal()
			instr.Info = o.Value.Kind.String()
		case op.NameOperand:
			instr.Operands = o.Name
		case op.ArgOperand:
			instr.Operands = strconv.FormatUint(o.Arg, 10)
		}
		switch o.Code {
		case op.PushStr:
			if o.Arg < uint64(len(unit.Strings)) {
				instr.Info = strconv.Quote(unit.Strings[o.Arg])
			}
		case op.PushMem:
			if size, ok := unit.Memory[o.Name]; ok {
				instr.Info = fmt.Sprintf("%d bytes", size)
			}
		}
		instructions = append(instructions, instr)
	}
	return instructions
}

// Filter keeps the instructions owned by the named procedure.
func Filter(instructions []Instruction, proc string) []Instruction {
	var out []Instruction
	for _, instr := range instructions {
		if instr.Proc == proc {
			out = append(out, instr)
		}
	}
	return out
}

// Print writes the instructions as a table.
func Print(instructions []Instruction, w io.Writer) error {
	t := table.NewTable(w)
	t.WithHeader([]string{"OFFSET", "OPCODE", "OPERANDS", "INFO"})
	t.WithHeaderAlignment([]table.Alignment{table.AlignCenter, table.AlignCenter, table.AlignCenter, table.AlignCenter})
	t.WithColumnAlignment([]table.Alignment{table.AlignRight, table.AlignLeft, table.AlignRight, table.AlignLeft})
	for _, instr := range instructions {
		t.Append([]string{
			strconv.Itoa(instr.Offset),
			paint(instr.Opcode),
			instr.Operands,
			instr.Info,
		})
	}
	return t.Render()
}

func paint(code op.Code) string {
	name := code.String()
	switch code {
	case op.Proc, op.Label:
		return markerColor.Sprint(name)
	case op.Call, op.Return, op.Jump, op.JumpF, op.Exit:
		return controlColor.Sprint(name)
	case op.Bind, op.UseBinding, op.Unbind:
		return stackColor.Sprint(name)
	}
	return name
}
