package ast

import "iter"

// Visitor defines the interface for AST traversal. If Visit returns nil,
// children of the node are not visited. Otherwise, the returned Visitor
// is used to visit children.
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses an AST in depth-first order. It starts by calling
// v.Visit(node); if the returned visitor w is not nil, Walk is invoked
// recursively with visitor w for each of the children of node. Program
// items are visited in source order.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}
	for _, child := range children(node) {
		Walk(v, child)
	}
}

// children returns the direct children of a node in execution order.
func children(node Node) []Node {
	var out []Node
	add := func(blocks ...Block) {
		for _, block := range blocks {
			for _, op := range block {
				out = append(out, op)
			}
		}
	}
	switch n := node.(type) {
	case *Program:
		for _, name := range n.Order {
			out = append(out, n.Items[name])
		}
	case *Proc:
		add(n.Body)
	case *Const:
		add(n.Body)
	case *Mem:
		add(n.Size)
	case *If:
		add(n.Then, n.Else)
	case *While:
		add(n.Cond, n.Body)
	case *Bind:
		add(n.Body)
	}
	return out
}

// Inspect traverses an AST in depth-first order. It calls f(node) for each
// node; if f returns true, Inspect invokes f recursively for each of the
// children of node.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Preorder returns an iterator over all the nodes of the AST rooted at node
// in depth-first preorder.
func Preorder(root Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		var visit func(Node) bool
		visit = func(n Node) bool {
			if !yield(n) {
				return false
			}
			for _, child := range children(n) {
				if !visit(child) {
					return false
				}
			}
			return true
		}
		visit(root)
	}
}
