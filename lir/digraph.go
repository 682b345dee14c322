package lir

import "sort"

// digraph maps each node to the set of nodes it depends on.
type digraph map[string]map[string]bool

func (d digraph) add(node string, deps []string) {
	set := map[string]bool{}
	for _, dep := range deps {
		set[dep] = true
	}
	d[node] = set
}

// ordering lists the nodes so that every node comes after the nodes it
// depends on. Leaf nodes are stripped in rounds and each round is sorted,
// so the result is deterministic. When the graph has a cycle the returned
// cycle is non-empty and starts and ends with the same node.
func (d digraph) ordering() (order []string, cycle []string) {
	remaining := digraph{}
	for node, deps := range d {
		set := map[string]bool{}
		for dep := range deps {
			if _, ok := d[dep]; ok {
				set[dep] = true
			}
		}
		remaining[node] = set
	}
	for {
		leaves := remaining.leaves()
		if len(leaves) == 0 {
			break
		}
		for _, leaf := range leaves {
			delete(remaining, leaf)
		}
		for _, deps := range remaining {
			for _, leaf := range leaves {
				delete(deps, leaf)
			}
		}
		order = append(order, leaves...)
	}
	return order, remaining.cycle()
}

func (d digraph) leaves() []string {
	var leaves []string
	for node, deps := range d {
		if len(deps) == 0 {
			leaves = append(leaves, node)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// cycle extracts a cycle from a graph with no leaves.
func (d digraph) cycle() []string {
	if len(d) == 0 {
		return nil
	}
	start := sortedKeys(d)[0]
	path := []string{start}
	seen := map[string]int{start: 0}
	for node := start; ; {
		next := sortedKeys(d[node])[0]
		if i, ok := seen[next]; ok {
			return append(path[i:], next)
		}
		seen[next] = len(path)
		path = append(path, next)
		node = next
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
