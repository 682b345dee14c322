package ast

// Encode converts a node into plain maps and slices suitable for JSON
// encoding. Every map carries a "kind" key naming the node type.
func Encode(node Node) any {
	switch n := node.(type) {
	case *Program:
		items := make([]any, 0, len(n.Order))
		for _, name := range n.Order {
			items = append(items, Encode(n.Items[name]))
		}
		return map[string]any{"kind": "program", "items": items}
	case *Proc:
		return map[string]any{
			"kind": "proc",
			"name": n.Name,
			"ins":  typeNames(n.Ins),
			"outs": typeNames(n.Outs),
			"body": encodeBlock(n.Body),
			"pos":  n.Proc.String(),
		}
	case *Const:
		return map[string]any{
			"kind": "const",
			"name": n.Name,
			"type": n.Type.String(),
			"body": encodeBlock(n.Body),
			"pos":  n.Const.String(),
		}
	case *Mem:
		return map[string]any{
			"kind": "mem",
			"name": n.Name,
			"size": encodeBlock(n.Size),
			"pos":  n.Mem.String(),
		}
	case *Literal:
		return map[string]any{"kind": "literal", "value": n.Value.String()}
	case *String:
		return map[string]any{"kind": "string", "value": n.Value}
	case *Word:
		return map[string]any{"kind": "word", "name": n.Name}
	case *Intrinsic:
		return map[string]any{"kind": "intrinsic", "name": n.Kind.String()}
	case *If:
		m := map[string]any{"kind": "if", "then": encodeBlock(n.Then)}
		if n.HasElse() {
			m["else"] = encodeBlock(n.Else)
		}
		return m
	case *While:
		return map[string]any{
			"kind": "while",
			"cond": encodeBlock(n.Cond),
			"body": encodeBlock(n.Body),
		}
	case *Bind:
		bindings := make([]any, len(n.Bindings))
		for i, b := range n.Bindings {
			if b.Ignore {
				bindings[i] = "_"
			} else {
				bindings[i] = map[string]any{"name": b.Name, "type": b.Type.String()}
			}
		}
		return map[string]any{
			"kind":     "bind",
			"bindings": bindings,
			"body":     encodeBlock(n.Body),
		}
	case *Return:
		return map[string]any{"kind": "return"}
	}
	return nil
}

func encodeBlock(block Block) []any {
	out := make([]any, len(block))
	for i, op := range block {
		out[i] = Encode(op)
	}
	return out
}

func typeNames[T interface{ String() string }](types []T) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
