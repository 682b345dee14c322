// Package ast defines the tree representation of quad programs.
package ast

import (
	"strings"

	"github.com/quadlang/quad/internal/token"
)

// Node represents a portion of the syntax tree. All nodes have position
// information indicating where they appear in the source code.
type Node interface {
	// Pos returns the position of the first character belonging to the node.
	Pos() token.Position

	// End returns the position of the first character immediately after the node.
	End() token.Position

	// String returns a human friendly representation of the Node. This should
	// be similar to the original source code, but not necessarily identical.
	String() string
}

// Op is a node that may appear in a block. Execution order is block order.
type Op interface {
	Node
	opNode()
}

// Item is a top-level definition.
type Item interface {
	Node
	ItemName() string
	itemNode()
}

// Block is an ordered sequence of nodes.
type Block []Op

func (b Block) String() string {
	parts := make([]string, len(b))
	for i, op := range b {
		parts[i] = op.String()
	}
	return strings.Join(parts, " ")
}

// Range returns the source range spanned by a node.
func Range(n Node) token.Range {
	return token.Range{File: n.Pos().File, Start: n.Pos().Char, End: n.End().Char}
}

// Program holds every item in a source file, keyed by name. Order lists the
// item names in source order.
type Program struct {
	Items map[string]Item
	Order []string
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{Items: map[string]Item{}}
}

// Add appends an item, reporting false if the name is already taken.
func (p *Program) Add(item Item) bool {
	name := item.ItemName()
	if _, exists := p.Items[name]; exists {
		return false
	}
	p.Items[name] = item
	p.Order = append(p.Order, name)
	return true
}

// Item returns the named item, or nil.
func (p *Program) Item(name string) Item {
	return p.Items[name]
}

// Procs returns the procedures in source order.
func (p *Program) Procs() []*Proc {
	var procs []*Proc
	for _, name := range p.Order {
		if proc, ok := p.Items[name].(*Proc); ok {
			procs = append(procs, proc)
		}
	}
	return procs
}

func (p *Program) Pos() token.Position {
	if len(p.Order) == 0 {
		return token.NoPos
	}
	return p.Items[p.Order[0]].Pos()
}

func (p *Program) End() token.Position {
	if len(p.Order) == 0 {
		return token.NoPos
	}
	return p.Items[p.Order[len(p.Order)-1]].End()
}

func (p *Program) String() string {
	parts := make([]string, 0, len(p.Order))
	for _, name := range p.Order {
		parts = append(parts, p.Items[name].String())
	}
	return strings.Join(parts, "\n")
}
