package scheduler

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/specialistvlad/equagrid/internal/trace"
)

// builder holds the intermediate state of one Build call.
type builder struct {
	r       *registry.Registry
	sets    *indexset.Registry
	records []trace.Record
	issues  registry.Issues

	// initial marks equations evaluated in the initial phase only.
	initial []bool
	solver  []registry.SolverHandle
	cond    []*registry.Conditional
	floor   [][]indexset.Handle
	sig     [][]indexset.Handle

	units  []*unit
	unitOf []int
}

// Build computes the schedule of a registry from the trace of its equations.
// Every problem found is reported in a *registry.ConfigurationError.
func Build(ctx context.Context, r *registry.Registry, records []trace.Record) (*Schedule, error) {
	logger := ctxlog.FromContext(ctx)
	n := r.NumEquations()
	if len(records) != n {
		return nil, fmt.Errorf("got %d trace records for %d equations", len(records), n)
	}
	b := &builder{
		r:       r,
		sets:    r.IndexSets(),
		records: records,
		initial: make([]bool, n),
		solver:  make([]registry.SolverHandle, n),
		cond:    make([]*registry.Conditional, n),
		floor:   make([][]indexset.Handle, n),
		sig:     make([][]indexset.Handle, n),
		unitOf:  make([]int, n),
	}

	b.classify()
	if err := b.issues.Err(); err != nil {
		return nil, err
	}
	b.signatures()
	if err := b.issues.Err(); err != nil {
		return nil, err
	}
	logger.Debug("Signatures computed.", "equations", n)

	initial := b.initialOrder()
	b.buildUnits()
	plan := b.order()
	if err := b.issues.Err(); err != nil {
		return nil, err
	}

	s := b.freeze(initial, plan)
	logger.Debug("Schedule built.", "batches", len(s.Batches), "groups", len(s.Groups), "initial", len(s.Initial))
	return s, nil
}

func (b *builder) name(e registry.EquationHandle) string {
	return b.r.Equation(e).Name
}

func (b *builder) names(es []registry.EquationHandle) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = b.name(e)
	}
	return out
}

func quoted(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(q, ", ")
}

func (b *builder) setNames(hs []indexset.Handle) string {
	names := make([]string, len(hs))
	for i, h := range hs {
		names[i] = b.sets.Name(h)
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// classify resolves the effective solver and conditional of every equation,
// marks the initial phase and checks declarations that need no signatures.
func (b *builder) classify() {
	for i := range b.records {
		e := registry.EquationHandle(i)
		eq := b.r.Equation(e)
		b.solver[e] = eq.Solver
		b.cond[e] = eq.Conditional

		switch eq.Kind {
		case registry.InitialValue:
			b.initial[e] = true
		case registry.Cumulative:
			// Targets are registered before their cumulatives.
			b.initial[e] = b.initial[eq.Aggregate.Target]
		case registry.ComputedExternally:
			if w := eq.ComputedBy; w != registry.NoEquation {
				b.solver[e] = b.r.Equation(w).Solver
				b.cond[e] = b.r.Equation(w).Conditional
			}
		case registry.ODE:
			if eq.Solver == registry.NoSolver {
				b.issues.Add(registry.IssueSolverCoupling, []string{eq.Name}, "ODE equation %q has no solver", eq.Name)
			}
		}
	}

	for i, rec := range b.records {
		e := registry.EquationHandle(i)
		if !b.initial[e] {
			continue
		}
		for _, in := range rec.Inputs {
			name := b.r.Input(in).Name
			b.issues.Add(registry.IssueInitialValue, []string{b.name(e)},
				"initial value equation %q reads input %q, which has no value before the first timestep", b.name(e), name)
		}
		for _, d := range rec.Dependencies {
			switch {
			case !d.Kind.Ordering():
				b.issues.Add(registry.IssueInitialValue, []string{b.name(e), b.name(d.Equation)},
					"initial value equation %q reads a lagged value of %q", b.name(e), b.name(d.Equation))
			case !b.initial[d.Equation]:
				b.issues.Add(registry.IssueInitialValue, []string{b.name(e), b.name(d.Equation)},
					"initial value equation %q reads %q, which is not an initial value equation", b.name(e), b.name(d.Equation))
			}
		}
	}
}

func sameConditional(a, b *registry.Conditional) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// subset reports whether every set of a is in b. Both are canonical.
func subset(a, b []indexset.Handle) bool {
	for _, h := range a {
		if !slices.Contains(b, h) {
			return false
		}
	}
	return true
}

// signatures computes the index sets of every equation: the sets it reads
// through directly, plus the signatures of the equations it reads, closed
// transitively. Coupled equations of one solver are promoted to a common
// signature.
func (b *builder) signatures() {
	for i, rec := range b.records {
		e := registry.EquationHandle(i)
		eq := b.r.Equation(e)
		base := append([]indexset.Handle(nil), eq.Sets...)
		base = append(base, rec.Sets...)
		for _, pr := range rec.Parameters {
			ps := b.sets.Canonical(b.r.Parameter(pr.Parameter).Sets)
			if pr.Set != indexset.None {
				ps = b.sets.Without(ps, pr.Set)
			}
			base = append(base, ps...)
		}
		for _, in := range rec.Inputs {
			base = append(base, b.r.Input(in).Sets...)
		}
		if c := b.cond[e]; c != nil {
			base = append(base, b.r.Parameter(c.Parameter).Sets...)
		}
		b.floor[e] = b.sets.Canonical(base)
	}

	for {
		b.propagate()
		if !b.promote() {
			break
		}
	}
	if len(b.issues) > 0 {
		return
	}
	b.checkCrossReads()
}

// propagate runs the signature fixpoint from the current floors.
func (b *builder) propagate() {
	for e := range b.sig {
		b.sig[e] = b.floor[e]
	}
	for changed := true; changed; {
		changed = false
		for i, rec := range b.records {
			next := append([]indexset.Handle(nil), b.sig[i]...)
			for _, d := range rec.Dependencies {
				inherited := b.sig[d.Equation]
				if d.Kind == trace.Cross || d.Kind == trace.LaggedCross {
					inherited = b.sets.Without(inherited, d.Set)
				}
				next = append(next, inherited...)
			}
			next = b.sets.Canonical(next)
			if !slices.Equal(next, b.sig[i]) {
				b.sig[i] = next
				changed = true
			}
		}
	}
}

// promote raises the floor of solver equations that read each other to the
// largest signature among them. It reports whether any floor changed.
func (b *builder) promote() bool {
	n := len(b.records)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for i, rec := range b.records {
		if b.initial[i] || b.solver[i] == registry.NoSolver {
			continue
		}
		for _, d := range rec.Dependencies {
			t := int(d.Equation)
			if !d.Kind.Ordering() || b.solver[t] != b.solver[i] {
				continue
			}
			ri, rt := find(i), find(t)
			if ri != rt {
				if ri < rt {
					parent[rt] = ri
				} else {
					parent[ri] = rt
				}
			}
		}
	}

	components := make(map[int][]registry.EquationHandle)
	var roots []int
	for i := 0; i < n; i++ {
		if b.initial[i] || b.solver[i] == registry.NoSolver {
			continue
		}
		root := find(i)
		if _, ok := components[root]; !ok {
			roots = append(roots, root)
		}
		components[root] = append(components[root], registry.EquationHandle(i))
	}

	changed := false
	for _, root := range roots {
		members := components[root]
		if len(members) < 2 {
			continue
		}
		largest := b.sig[members[0]]
		for _, e := range members[1:] {
			if !sameConditional(b.cond[e], b.cond[members[0]]) {
				b.issues.Add(registry.IssueSolverCoupling, b.names(members),
					"equations %s read each other under solver %q but have different conditionals",
					quoted(b.names(members)), b.r.Solver(b.solver[e]).Name)
				return false
			}
			s := b.sig[e]
			switch {
			case subset(s, largest):
			case subset(largest, s):
				largest = s
			default:
				b.issues.Add(registry.IssueIndexSets, b.names(members),
					"equations %s are integrated together by solver %q but are indexed over index sets %s and %s, which are not nested",
					quoted(b.names(members)), b.r.Solver(b.solver[e]).Name, b.setNames(largest), b.setNames(s))
				return false
			}
		}
		for _, e := range members {
			if !slices.Equal(b.sig[e], largest) {
				b.floor[e] = b.sets.Canonical(append(append([]indexset.Handle(nil), b.floor[e]...), largest...))
				if !slices.Equal(b.floor[e], b.sig[e]) {
					changed = true
				}
			}
		}
	}
	return changed
}

// checkCrossReads rejects cross-index reads along a set the target is not
// indexed by, or whose sub-indexed sets the target is also indexed by.
func (b *builder) checkCrossReads() {
	check := func(e registry.EquationHandle, what string, target []indexset.Handle, set indexset.Handle) {
		if !slices.Contains(target, set) {
			b.issues.Add(registry.IssueCrossIndex, []string{b.name(e)},
				"equation %q reads %s across index set %q, which it is not indexed by", b.name(e), what, b.sets.Name(set))
			return
		}
		for _, h := range target {
			if p, tied := b.sets.Parent(h); tied && p == set {
				b.issues.Add(registry.IssueCrossIndex, []string{b.name(e)},
					"equation %q reads %s across index set %q, but %s is also indexed by %q which is tied to it",
					b.name(e), what, b.sets.Name(set), what, b.sets.Name(h))
				return
			}
		}
	}
	for i, rec := range b.records {
		e := registry.EquationHandle(i)
		for _, d := range rec.Dependencies {
			if d.Kind == trace.Cross || d.Kind == trace.LaggedCross {
				check(e, fmt.Sprintf("%q", b.name(d.Equation)), b.sig[d.Equation], d.Set)
			}
		}
		for _, pr := range rec.Parameters {
			if pr.Set != indexset.None {
				p := b.r.Parameter(pr.Parameter)
				check(e, fmt.Sprintf("parameter %q", p.Name), b.sets.Canonical(p.Sets), pr.Set)
			}
		}
	}
}
