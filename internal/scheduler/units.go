package scheduler

import (
	"fmt"
	"slices"
	"sort"

	"github.com/specialistvlad/equagrid/internal/dag"
	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/specialistvlad/equagrid/internal/trace"
)

// unit is the smallest block the ordering moves around: all equations of one
// solver with the same signature and conditional, or a single equation
// without a solver together with the equations it computes externally.
type unit struct {
	solver  registry.SolverHandle
	cond    *registry.Conditional
	sig     []indexset.Handle
	members []registry.EquationHandle

	// equations are the non-ODE members in evaluation order.
	equations []registry.EquationHandle
	odes      []registry.EquationHandle
}

func (u *unit) hasSolver() bool {
	return u.solver != registry.NoSolver
}

// unit edge flags
const (
	edgeHard uint8 = 1 << iota
	edgeHardCross
	edgeSoft
)

type planBatch struct {
	units []int
}

type planGroup struct {
	sig     []indexset.Handle
	batches []planBatch
}

func (b *builder) buildUnits() {
	keys := make(map[string]int)
	var externals []registry.EquationHandle
	for i := range b.records {
		e := registry.EquationHandle(i)
		b.unitOf[e] = -1
		if b.initial[e] {
			continue
		}
		eq := b.r.Equation(e)
		if eq.Kind == registry.ComputedExternally {
			externals = append(externals, e)
			continue
		}
		if b.solver[e] != registry.NoSolver {
			key := fmt.Sprintf("%d|%v|%v", b.solver[e], b.sig[e], b.cond[e] != nil)
			if c := b.cond[e]; c != nil {
				key += fmt.Sprintf("|%d=%g", c.Parameter, c.Value)
			}
			if u, ok := keys[key]; ok {
				b.unitOf[e] = u
				b.units[u].members = append(b.units[u].members, e)
				continue
			}
			keys[key] = len(b.units)
		}
		b.unitOf[e] = len(b.units)
		b.units = append(b.units, &unit{
			solver:  b.solver[e],
			cond:    b.cond[e],
			sig:     b.sig[e],
			members: []registry.EquationHandle{e},
		})
	}

	for _, e := range externals {
		w := b.r.Equation(e).ComputedBy
		if !slices.Equal(b.sig[e], b.sig[w]) {
			b.issues.Add(registry.IssueIndexSets, []string{b.name(e), b.name(w)},
				"equation %q is computed by %q but is indexed over %s instead of %s",
				b.name(e), b.name(w), b.setNames(b.sig[e]), b.setNames(b.sig[w]))
		}
		u := b.unitOf[w]
		b.unitOf[e] = u
		b.units[u].members = append(b.units[u].members, e)
	}
	for _, u := range b.units {
		slices.Sort(u.members)
	}
}

func (b *builder) kind(e int) registry.EquationKind {
	return b.r.Equation(registry.EquationHandle(e)).Kind
}

// order checks current-timestep reads for cycles and arranges the units into
// groups of batches.
func (b *builder) order() []planGroup {
	if len(b.issues) > 0 {
		return nil
	}
	n := len(b.records)
	eg := dag.New(n)
	ug := dag.New(len(b.units))
	flags := make(map[[2]int]uint8)

	for e, rec := range b.records {
		if b.initial[e] {
			continue
		}
		ue := b.unitOf[e]
		for _, d := range rec.Dependencies {
			t := int(d.Equation)
			if !d.Kind.Ordering() || b.initial[t] {
				continue
			}
			cross := d.Kind == trace.Cross
			soft := cross && b.sets.IsBranched(d.Set) &&
				slices.Contains(b.sig[t], d.Set) && slices.Contains(b.sig[e], d.Set)
			ut := b.unitOf[t]

			if ut == ue {
				u := b.units[ue]
				names := b.names([]registry.EquationHandle{registry.EquationHandle(e), d.Equation})
				switch {
				case cross && soft:
					// Upstream positions are final before this one starts.
				case cross && u.hasSolver():
					b.issues.Add(registry.IssueSolverCoupling, names,
						"equation %q reads %q across index set %q while both are integrated by solver %q",
						names[0], names[1], b.sets.Name(d.Set), b.r.Solver(u.solver).Name)
				case cross:
					b.issues.Add(registry.IssueCycle, names,
						"equation %q reads %q across index set %q, which is only allowed upstream along a branched index set both are indexed over",
						names[0], names[1], b.sets.Name(d.Set))
				case t == e:
					if b.kind(e) != registry.ODE {
						b.issues.Add(registry.IssueCycle, names[:1], "equation %q reads its own current value", names[0])
					}
				case u.hasSolver() && (b.kind(e) == registry.ODE || b.kind(t) == registry.ODE):
				default:
					_ = eg.AddEdge(t, e)
				}
				continue
			}

			f := flags[[2]int{ut, ue}]
			switch {
			case soft:
				f |= edgeSoft
			case cross:
				f |= edgeHard | edgeHardCross
				_ = eg.AddEdge(t, e)
			default:
				f |= edgeHard
				_ = eg.AddEdge(t, e)
			}
			flags[[2]int{ut, ue}] = f
			_ = ug.AddEdge(ut, ue)
		}
	}

	for _, c := range eg.Cycles() {
		es := make([]registry.EquationHandle, len(c))
		var solvers []string
		for i, v := range c {
			es[i] = registry.EquationHandle(v)
			if s := b.solver[v]; s != registry.NoSolver && !slices.Contains(solvers, b.r.Solver(s).Name) {
				solvers = append(solvers, b.r.Solver(s).Name)
			}
		}
		names := b.names(es)
		if len(solvers) > 0 {
			sort.Strings(solvers)
			b.issues.Add(registry.IssueSolverCoupling, names,
				"equations %s depend on each other's current values across the boundary of solver %s", quoted(names), quoted(solvers))
			continue
		}
		b.issues.Add(registry.IssueCycle, names, "equations %s depend on each other's current values", quoted(names))
	}
	if len(b.issues) > 0 {
		return nil
	}

	comps := ug.StronglyConnected()
	for _, c := range comps {
		if len(c) > 1 {
			b.checkCluster(c, ug, flags)
		}
	}
	if len(b.issues) > 0 {
		return nil
	}
	for _, u := range b.units {
		b.orderMembers(u, eg)
	}

	minHandle := func(units []int) registry.EquationHandle {
		m := b.units[units[0]].members[0]
		for _, u := range units[1:] {
			m = min(m, b.units[u].members[0])
		}
		return m
	}
	cg, _ := ug.Condense(comps)
	clusterSig := func(c int) []indexset.Handle { return b.units[comps[c][0]].sig }
	clusters, err := cg.TopologicalOrder(func(last, x, y int) bool {
		if last >= 0 {
			sx, sy := slices.Equal(clusterSig(x), clusterSig(last)), slices.Equal(clusterSig(y), clusterSig(last))
			if sx != sy {
				return sx
			}
		}
		return minHandle(comps[x]) < minHandle(comps[y])
	})
	if err != nil {
		// Condensations are acyclic.
		panic(err)
	}

	var groups []planGroup
	groupOf := make([]int, len(b.units))
	for i := range groupOf {
		groupOf[i] = -1
	}
	for _, c := range clusters {
		units := b.clusterOrder(comps[c], ug, flags)
		sig := clusterSig(c)

		join := len(groups) > 0 && slices.Equal(groups[len(groups)-1].sig, sig)
		for _, u := range units {
			if !join {
				break
			}
			for _, p := range ug.Dependencies(u) {
				if groupOf[p] == len(groups)-1 && flags[[2]int{p, u}]&edgeHardCross != 0 {
					join = false
					break
				}
			}
		}
		if !join {
			groups = append(groups, planGroup{sig: sig})
		}
		g := &groups[len(groups)-1]
		for _, u := range units {
			groupOf[u] = len(groups) - 1
			cur := b.units[u]
			if !cur.hasSolver() && len(g.batches) > 0 {
				lb := &g.batches[len(g.batches)-1]
				prev := b.units[lb.units[0]]
				if !prev.hasSolver() && sameConditional(prev.cond, cur.cond) {
					lb.units = append(lb.units, u)
					continue
				}
			}
			g.batches = append(g.batches, planBatch{units: []int{u}})
		}
	}
	return groups
}

// checkCluster validates units that only form a cycle through reads along
// branched index sets: they must share a signature, and their other reads
// must still be acyclic.
func (b *builder) checkCluster(c []int, ug *dag.Graph, flags map[[2]int]uint8) {
	var members []registry.EquationHandle
	var solvers []string
	sameSig := true
	hardCross := false
	hard := dag.New(len(c))
	for i, u := range c {
		unit := b.units[u]
		members = append(members, unit.members...)
		if unit.hasSolver() {
			name := b.r.Solver(unit.solver).Name
			if !slices.Contains(solvers, name) {
				solvers = append(solvers, name)
			}
		}
		if !slices.Equal(unit.sig, b.units[c[0]].sig) {
			sameSig = false
		}
		for j, v := range c {
			if i == j || !ug.HasEdge(u, v) {
				continue
			}
			f := flags[[2]int{u, v}]
			if f&edgeHardCross != 0 {
				hardCross = true
			}
			if f&edgeHard != 0 {
				_ = hard.AddEdge(i, j)
			}
		}
	}
	slices.Sort(members)
	sort.Strings(solvers)
	names := b.names(members)

	switch {
	case hard.DetectCycles() != nil && len(solvers) > 0:
		b.issues.Add(registry.IssueSolverCoupling, names,
			"equations %s need values of solver %s both before and after its step", quoted(names), quoted(solvers))
	case hard.DetectCycles() != nil:
		b.issues.Add(registry.IssueCycle, names, "equations %s depend on each other's current values", quoted(names))
	case !sameSig:
		b.issues.Add(registry.IssueCycle, names,
			"equations %s read each other along branched index sets but are indexed over different index sets", quoted(names))
	case hardCross:
		b.issues.Add(registry.IssueCrossIndex, names,
			"equations %s form a cycle through a cross-index read that needs every position first", quoted(names))
	}
}

// clusterOrder orders the units of one cluster along their hard edges.
func (b *builder) clusterOrder(c []int, ug *dag.Graph, flags map[[2]int]uint8) []int {
	if len(c) == 1 {
		return c
	}
	local := dag.New(len(c))
	for i, u := range c {
		for j, v := range c {
			if i != j && ug.HasEdge(u, v) && flags[[2]int{u, v}]&edgeHard != 0 {
				_ = local.AddEdge(i, j)
			}
		}
	}
	order, err := local.TopologicalOrder(func(last, x, y int) bool {
		if last >= 0 {
			ux, uy, ul := b.units[c[x]], b.units[c[y]], b.units[c[last]]
			sx, sy := sameConditional(ux.cond, ul.cond), sameConditional(uy.cond, ul.cond)
			if sx != sy {
				return sx
			}
		}
		return b.units[c[x]].members[0] < b.units[c[y]].members[0]
	})
	if err != nil {
		// checkCluster rejected hard cycles.
		panic(err)
	}
	out := make([]int, len(order))
	for i, k := range order {
		out[i] = c[k]
	}
	return out
}

// orderMembers sorts the non-ODE members of a unit topologically and keeps
// the ODEs in registration order.
func (b *builder) orderMembers(u *unit, eg *dag.Graph) {
	var plain []registry.EquationHandle
	for _, e := range u.members {
		if b.kind(int(e)) == registry.ODE {
			u.odes = append(u.odes, e)
		} else {
			plain = append(plain, e)
		}
	}
	if len(plain) < 2 {
		u.equations = plain
		return
	}
	pos := make(map[registry.EquationHandle]int, len(plain))
	for i, e := range plain {
		pos[e] = i
	}
	local := dag.New(len(plain))
	for i, e := range plain {
		for _, d := range eg.Dependencies(int(e)) {
			if j, ok := pos[registry.EquationHandle(d)]; ok {
				_ = local.AddEdge(j, i)
			}
		}
	}
	order, err := local.TopologicalOrder(nil)
	if err != nil {
		panic(err)
	}
	for _, k := range order {
		u.equations = append(u.equations, plain[k])
	}
}
