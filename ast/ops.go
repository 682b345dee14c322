package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quadlang/quad/internal/token"
	"github.com/quadlang/quad/value"
)

// Literal is a boolean, numeric or character literal.
type Literal struct {
	ValuePos token.Position // position of the literal
	EndPos   token.Position
	Literal  string      // the literal text as written
	Value    value.Value // the parsed value
}

func (x *Literal) opNode() {}

func (x *Literal) Pos() token.Position { return x.ValuePos }
func (x *Literal) End() token.Position { return x.EndPos }

func (x *Literal) String() string { return x.Literal }

// String is a string literal. Its bytes enter the string pool when the
// enclosing body is lowered.
type String struct {
	ValuePos token.Position
	EndPos   token.Position
	Value    string // unescaped bytes
}

func (x *String) opNode() {}

func (x *String) Pos() token.Position { return x.ValuePos }
func (x *String) End() token.Position { return x.EndPos }

func (x *String) String() string { return strconv.Quote(x.Value) }

// Word is a reference by name to a procedure, constant, memory region or
// binding. It is resolved during lowering.
type Word struct {
	NamePos token.Position
	Name    string
}

func (x *Word) opNode() {}

func (x *Word) Pos() token.Position { return x.NamePos }
func (x *Word) End() token.Position { return x.NamePos.Advance(len(x.Name)) }

func (x *Word) String() string { return x.Name }

// Intrinsic is a built-in operation.
type Intrinsic struct {
	NamePos token.Position
	Kind    IntrinsicKind
}

func (x *Intrinsic) opNode() {}

func (x *Intrinsic) Pos() token.Position { return x.NamePos }
func (x *Intrinsic) End() token.Position { return x.NamePos.Advance(len(x.Kind.String())) }

func (x *Intrinsic) String() string { return x.Kind.String() }

// If runs Then when the popped condition is true, otherwise Else. A nil Else
// means there was no else branch.
type If struct {
	If     token.Position // position of "if"
	Then   Block
	Else   Block
	EndPos token.Position // position after "end"
}

func (x *If) opNode() {}

func (x *If) Pos() token.Position { return x.If }
func (x *If) End() token.Position { return x.EndPos }

// HasElse reports whether the conditional has an else branch.
func (x *If) HasElse() bool { return x.Else != nil }

func (x *If) String() string {
	var b strings.Builder
	b.WriteString("if ")
	writeBlock(&b, x.Then)
	if x.HasElse() {
		b.WriteString("else ")
		writeBlock(&b, x.Else)
	}
	b.WriteString("end")
	return b.String()
}

// While repeats Body as long as Cond leaves true on the stack.
type While struct {
	While  token.Position // position of "while"
	Cond   Block
	Body   Block
	EndPos token.Position
}

func (x *While) opNode() {}

func (x *While) Pos() token.Position { return x.While }
func (x *While) End() token.Position { return x.EndPos }

func (x *While) String() string {
	var b strings.Builder
	b.WriteString("while ")
	writeBlock(&b, x.Cond)
	b.WriteString("do ")
	writeBlock(&b, x.Body)
	b.WriteString("end")
	return b.String()
}

// Binding is one entry of a bind list: either a typed name or the ignore
// marker.
type Binding struct {
	NamePos token.Position
	Name    string
	Type    value.Type
	Ignore  bool
}

func (b Binding) String() string {
	if b.Ignore {
		return "_"
	}
	return fmt.Sprintf("%s : %s", b.Name, b.Type)
}

// Bind moves the top len(Bindings) stack values into named bindings that
// are visible within Body. The last binding takes the top of the stack.
type Bind struct {
	Bind     token.Position // position of "bind"
	Bindings []Binding
	Body     Block
	EndPos   token.Position
}

func (x *Bind) opNode() {}

func (x *Bind) Pos() token.Position { return x.Bind }
func (x *Bind) End() token.Position { return x.EndPos }

// Names returns the bound names, skipping ignored slots.
func (x *Bind) Names() []string {
	var names []string
	for _, b := range x.Bindings {
		if !b.Ignore {
			names = append(names, b.Name)
		}
	}
	return names
}

func (x *Bind) String() string {
	var b strings.Builder
	b.WriteString("bind ")
	for _, binding := range x.Bindings {
		b.WriteString(binding.String())
		b.WriteString(" ")
	}
	b.WriteString("do ")
	writeBlock(&b, x.Body)
	b.WriteString("end")
	return b.String()
}

// Return leaves the current procedure.
type Return struct {
	Return token.Position
}

func (x *Return) opNode() {}

func (x *Return) Pos() token.Position { return x.Return }
func (x *Return) End() token.Position { return x.Return.Advance(6) } // len("return")

func (x *Return) String() string { return "return" }

func writeBlock(b *strings.Builder, block Block) {
	if len(block) == 0 {
		return
	}
	b.WriteString(block.String())
	b.WriteString(" ")
}
