// Package reach computes which items of a program are used from main.
package reach

import (
	"github.com/quadlang/quad/ast"
)

// Entry is the name of the program entry point.
const Entry = "main"

// Analyze returns the set of item names reachable from Entry through word
// references. Names shadowed by an enclosing bind are not references. The
// entry point is included whenever it exists.
func Analyze(prog *ast.Program) map[string]bool {
	reachable := map[string]bool{}
	if prog.Item(Entry) == nil {
		return reachable
	}
	work := []string{Entry}
	reachable[Entry] = true
	for len(work) > 0 {
		name := work[len(work)-1]
		work = work[:len(work)-1]
		for _, ref := range References(prog.Item(name)) {
			if reachable[ref] || prog.Item(ref) == nil {
				continue
			}
			reachable[ref] = true
			work = append(work, ref)
		}
	}
	return reachable
}

// References returns the free word names referenced by an item, in first
// occurrence order, without duplicates.
func References(item ast.Item) []string {
	var refs []string
	seen := map[string]bool{}
	var visit func(block ast.Block, bound map[string]int)
	visit = func(block ast.Block, bound map[string]int) {
		for _, op := range block {
			switch n := op.(type) {
			case *ast.Word:
				if bound[n.Name] == 0 && !seen[n.Name] {
					seen[n.Name] = true
					refs = append(refs, n.Name)
				}
			case *ast.If:
				visit(n.Then, bound)
				visit(n.Else, bound)
			case *ast.While:
				visit(n.Cond, bound)
				visit(n.Body, bound)
			case *ast.Bind:
				names := n.Names()
				for _, name := range names {
					bound[name]++
				}
				visit(n.Body, bound)
				for _, name := range names {
					bound[name]--
				}
			}
		}
	}
	bound := map[string]int{}
	switch it := item.(type) {
	case *ast.Proc:
		visit(it.Body, bound)
	case *ast.Const:
		visit(it.Body, bound)
	case *ast.Mem:
		visit(it.Size, bound)
	}
	return refs
}
