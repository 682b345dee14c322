package ast

import (
	"strings"

	"github.com/quadlang/quad/internal/token"
	"github.com/quadlang/quad/value"
)

// Proc is a procedure definition.
type Proc struct {
	Proc    token.Position // position of "proc"
	NamePos token.Position
	Name    string
	Ins     []value.Type
	Outs    []value.Type
	Body    Block
	EndPos  token.Position
}

func (x *Proc) itemNode() {}

func (x *Proc) ItemName() string { return x.Name }

func (x *Proc) Pos() token.Position { return x.Proc }
func (x *Proc) End() token.Position { return x.EndPos }

func (x *Proc) String() string {
	var b strings.Builder
	b.WriteString("proc ")
	b.WriteString(x.Name)
	for _, t := range x.Ins {
		b.WriteString(" ")
		b.WriteString(t.String())
	}
	if len(x.Outs) > 0 {
		b.WriteString(" :")
		for _, t := range x.Outs {
			b.WriteString(" ")
			b.WriteString(t.String())
		}
	}
	b.WriteString(" do ")
	writeBlock(&b, x.Body)
	b.WriteString("end")
	return b.String()
}

// Const is a named constant whose body is evaluated at compile time.
type Const struct {
	Const   token.Position // position of "const"
	NamePos token.Position
	Name    string
	Type    value.Type
	Body    Block
	EndPos  token.Position
}

func (x *Const) itemNode() {}

func (x *Const) ItemName() string { return x.Name }

func (x *Const) Pos() token.Position { return x.Const }
func (x *Const) End() token.Position { return x.EndPos }

func (x *Const) String() string {
	var b strings.Builder
	b.WriteString("const ")
	b.WriteString(x.Name)
	b.WriteString(" : ")
	b.WriteString(x.Type.String())
	b.WriteString(" do ")
	writeBlock(&b, x.Body)
	b.WriteString("end")
	return b.String()
}

// Mem declares a static memory region. Size is folded like a uint constant
// to give the region's size in bytes.
type Mem struct {
	Mem     token.Position // position of "mem"
	NamePos token.Position
	Name    string
	Size    Block
	EndPos  token.Position
}

func (x *Mem) itemNode() {}

func (x *Mem) ItemName() string { return x.Name }

func (x *Mem) Pos() token.Position { return x.Mem }
func (x *Mem) End() token.Position { return x.EndPos }

func (x *Mem) String() string {
	var b strings.Builder
	b.WriteString("mem ")
	b.WriteString(x.Name)
	b.WriteString(" do ")
	writeBlock(&b, x.Size)
	b.WriteString("end")
	return b.String()
}
