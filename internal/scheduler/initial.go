package scheduler

import (
	"github.com/specialistvlad/equagrid/internal/dag"
	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/registry"
)

// initialOrder orders the initial phase and checks the initial value sources
// of the main equations.
func (b *builder) initialOrder() []registry.EquationHandle {
	n := len(b.records)
	g := dag.New(n)
	for i, rec := range b.records {
		if !b.initial[i] {
			continue
		}
		for _, d := range rec.Dependencies {
			t := int(d.Equation)
			if t == i {
				b.issues.Add(registry.IssueCycle, []string{b.name(d.Equation)},
					"initial value equation %q reads its own value", b.name(d.Equation))
				continue
			}
			if b.initial[t] {
				_ = g.AddEdge(t, i)
			}
		}
	}

	for i := 0; i < n; i++ {
		e := registry.EquationHandle(i)
		eq := b.r.Equation(e)
		var source []indexset.Handle
		var what string
		switch eq.Initial.Kind {
		case registry.InitialFromEquation:
			source = b.sig[eq.Initial.Equation]
			what = b.name(eq.Initial.Equation)
		case registry.InitialFromParameter:
			p := b.r.Parameter(eq.Initial.Parameter)
			source = b.sets.Canonical(p.Sets)
			what = "parameter " + p.Name
		default:
			continue
		}
		if !subset(source, b.sig[e]) {
			b.issues.Add(registry.IssueInitialValue, []string{eq.Name},
				"initial value of %q comes from %q indexed over %s, which is not contained in %s",
				eq.Name, what, b.setNames(source), b.setNames(b.sig[e]))
		}
	}

	order, err := g.TopologicalOrder(nil)
	if err != nil {
		for _, c := range g.Cycles() {
			names := make([]string, len(c))
			for k, v := range c {
				names[k] = b.name(registry.EquationHandle(v))
			}
			b.issues.Add(registry.IssueCycle, names, "initial value equations %s depend on each other", quoted(names))
		}
		return nil
	}
	var initial []registry.EquationHandle
	for _, v := range order {
		if b.initial[v] {
			initial = append(initial, registry.EquationHandle(v))
		}
	}
	return initial
}
