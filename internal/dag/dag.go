package dag

import (
	"fmt"
	"sort"
	"strings"
)

// New creates a graph with n nodes and no edges.
func New(n int) *Graph {
	return &Graph{
		deps:       make([][]int, n),
		dependents: make([][]int, n),
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.deps)
}

// Edges returns the number of distinct edges.
func (g *Graph) Edges() int {
	return g.edges
}

func (g *Graph) check(id int) error {
	if id < 0 || id >= len(g.deps) {
		return fmt.Errorf("node not found: %d", id)
	}
	return nil
}

// AddEdge creates a directed edge from the `from` node to the `to` node, i.e.
// `to` depends on `from`. Adding an existing edge again is a no-op. An error
// is returned if either node does not exist or if the edge is a self-reference.
func (g *Graph) AddEdge(from, to int) error {
	if from == to {
		return fmt.Errorf("self-referential edge not allowed: %d -> %d", from, from)
	}
	if err := g.check(from); err != nil {
		return fmt.Errorf("source %w", err)
	}
	if err := g.check(to); err != nil {
		return fmt.Errorf("destination %w", err)
	}
	var added bool
	g.deps[to], added = insertSorted(g.deps[to], from)
	if !added {
		return nil
	}
	g.dependents[from], _ = insertSorted(g.dependents[from], to)
	g.edges++
	return nil
}

func insertSorted(s []int, v int) ([]int, bool) {
	i := sort.SearchInts(s, v)
	if i < len(s) && s[i] == v {
		return s, false
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s, true
}

// HasEdge reports whether `to` depends directly on `from`.
func (g *Graph) HasEdge(from, to int) bool {
	if g.check(from) != nil || g.check(to) != nil {
		return false
	}
	s := g.deps[to]
	i := sort.SearchInts(s, from)
	return i < len(s) && s[i] == from
}

// Dependencies returns the nodes the given node depends on, in ascending
// order. The returned slice must not be modified.
func (g *Graph) Dependencies(id int) []int {
	if g.check(id) != nil {
		return nil
	}
	return g.deps[id]
}

// Dependents returns the nodes that depend on the given node, in ascending
// order. The returned slice must not be modified.
func (g *Graph) Dependents(id int) []int {
	if g.check(id) != nil {
		return nil
	}
	return g.dependents[id]
}

// StronglyConnected returns the strongly connected components of the graph
// using an iterative Tarjan walk. Each component is sorted ascending.
// Components are returned dependents first: a component never depends on a
// component listed before it.
func (g *Graph) StronglyConnected() [][]int {
	n := len(g.deps)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}

	type frame struct{ v, next int }
	var (
		stack []int
		comps [][]int
		calls []frame
		count int
	)
	visit := func(v int) {
		index[v], low[v] = count, count
		count++
		stack = append(stack, v)
		onStack[v] = true
		calls = append(calls, frame{v: v})
	}

	for root := 0; root < n; root++ {
		if index[root] >= 0 {
			continue
		}
		visit(root)
		for len(calls) > 0 {
			f := &calls[len(calls)-1]
			v := f.v
			if f.next < len(g.dependents[v]) {
				w := g.dependents[v][f.next]
				f.next++
				if index[w] < 0 {
					visit(w)
				} else if onStack[w] && index[w] < low[v] {
					low[v] = index[w]
				}
				continue
			}

			calls = calls[:len(calls)-1]
			if len(calls) > 0 {
				if u := calls[len(calls)-1].v; low[v] < low[u] {
					low[u] = low[v]
				}
			}
			if low[v] != index[v] {
				continue
			}
			var comp []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			sort.Ints(comp)
			comps = append(comps, comp)
		}
	}
	return comps
}

// Cycles returns every strongly connected component with more than one node,
// ordered by their lowest node.
func (g *Graph) Cycles() [][]int {
	var out [][]int
	for _, c := range g.StronglyConnected() {
		if len(c) > 1 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// DetectCycles returns a non-nil error listing the nodes of every cycle in
// the graph.
func (g *Graph) DetectCycles() error {
	cycles := g.Cycles()
	if len(cycles) == 0 {
		return nil
	}
	parts := make([]string, len(cycles))
	for i, c := range cycles {
		parts[i] = fmt.Sprint(c)
	}
	return fmt.Errorf("cycle detected involving nodes %s", strings.Join(parts, ", "))
}

// Condense collapses every component into a single node. comps must partition
// the nodes of g. It returns the component graph, whose node i is comps[i],
// and the component of every original node.
func (g *Graph) Condense(comps [][]int) (*Graph, []int) {
	of := make([]int, len(g.deps))
	for ci, c := range comps {
		for _, v := range c {
			of[v] = ci
		}
	}
	cg := New(len(comps))
	for to, deps := range g.deps {
		for _, from := range deps {
			if of[from] != of[to] {
				_ = cg.AddEdge(of[from], of[to])
			}
		}
	}
	return cg, of
}

// TopologicalOrder returns the nodes in dependency order (Kahn's algorithm).
// Among the nodes whose dependencies are all emitted, the one picked next is
// the first in ascending order for which no other ready node is preferred;
// prefer(last, a, b) reports whether a should be emitted before b, where last
// is the node emitted most recently (-1 at the start). A nil prefer picks the
// lowest node. An error is returned if the graph has a cycle.
func (g *Graph) TopologicalOrder(prefer func(last, a, b int) bool) ([]int, error) {
	if prefer == nil {
		prefer = func(_, a, b int) bool { return a < b }
	}
	n := len(g.deps)
	pending := make([]int, n)
	var ready []int
	for v := 0; v < n; v++ {
		pending[v] = len(g.deps[v])
		if pending[v] == 0 {
			ready = append(ready, v)
		}
	}

	order := make([]int, 0, n)
	last := -1
	for len(ready) > 0 {
		best := 0
		for i := 1; i < len(ready); i++ {
			if prefer(last, ready[i], ready[best]) {
				best = i
			}
		}
		v := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, v)
		last = v
		for _, w := range g.dependents[v] {
			pending[w]--
			if pending[w] == 0 {
				i := sort.SearchInts(ready, w)
				ready = append(ready, 0)
				copy(ready[i+1:], ready[i:])
				ready[i] = w
			}
		}
	}
	if len(order) != n {
		if err := g.DetectCycles(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("graph could not be ordered")
	}
	return order, nil
}
