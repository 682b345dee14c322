package lir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrdering(t *testing.T) {
	g := digraph{}
	g.add("C", []string{"A", "B"})
	g.add("B", []string{"A", "proc"})
	g.add("A", nil)
	g.add("D", nil)
	order, cycle := g.ordering()
	assert.Empty(t, cycle)
	assert.Equal(t, []string{"A", "D", "B", "C"}, order)
}

func TestOrderingCycle(t *testing.T) {
	g := digraph{}
	g.add("A", []string{"B"})
	g.add("B", []string{"C"})
	g.add("C", []string{"A"})
	g.add("X", nil)
	g.add("Y", []string{"A"})
	order, cycle := g.ordering()
	assert.Equal(t, []string{"X"}, order)
	assert.Equal(t, []string{"A", "B", "C", "A"}, cycle)
}

func TestOrderingSelfLoop(t *testing.T) {
	g := digraph{}
	g.add("N", []string{"N"})
	_, cycle := g.ordering()
	assert.Equal(t, []string{"N", "N"}, cycle)
}
