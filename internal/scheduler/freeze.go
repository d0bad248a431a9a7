package scheduler

import (
	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/specialistvlad/equagrid/internal/trace"
)

// freeze copies the plan into the immutable Schedule.
func (b *builder) freeze(initial []registry.EquationHandle, plan []planGroup) *Schedule {
	n := len(b.records)
	s := &Schedule{
		Signatures: make([][]indexset.Handle, n),
		LagDepth:   make([]int, n),
		BatchOf:    make([]int, n),
	}

	sigSize := 0
	for _, sig := range b.sig {
		sigSize += len(sig)
	}
	sigs := newArena[indexset.Handle](sigSize)
	for e, sig := range b.sig {
		s.Signatures[e] = sigs.clone(sig)
		s.BatchOf[e] = -1
	}

	eqs := newArena[registry.EquationHandle](n)
	s.Initial = eqs.clone(initial)

	for _, pg := range plan {
		g := Group{Signature: s.Signatures[b.units[pg.batches[0].units[0]].members[0]]}
		for _, pb := range pg.batches {
			first := b.units[pb.units[0]]
			var list, odes []registry.EquationHandle
			for _, u := range pb.units {
				list = append(list, b.units[u].equations...)
				odes = append(odes, b.units[u].odes...)
			}
			batch := Batch{
				Solver:      first.solver,
				Conditional: first.cond,
				Signature:   g.Signature,
				Equations:   eqs.clone(list),
				ODEs:        eqs.clone(odes),
			}
			if batch.HasSolver() && len(odes) > 0 && b.r.Solver(batch.Solver).Method.RequiresJacobian() {
				batch.Jacobian = b.jacobian(batch.Equations, batch.ODEs)
			}
			bi := len(s.Batches)
			for _, e := range batch.Equations {
				s.BatchOf[e] = bi
			}
			for _, e := range batch.ODEs {
				s.BatchOf[e] = bi
			}
			s.Batches = append(s.Batches, batch)
			g.Batches = append(g.Batches, bi)
		}
		s.Groups = append(s.Groups, g)
	}

	for _, rec := range b.records {
		for _, d := range rec.Dependencies {
			if d.Kind == trace.Lagged || d.Kind == trace.LaggedCross {
				s.LagDepth[d.Equation] = max(s.LagDepth[d.Equation], d.Lag)
			}
		}
	}
	return s
}

// jacobian computes which ODE states every derivative of a batch depends on.
// Intermediate equations are visited once, in evaluation order, and carry
// the set of states they depend on forward.
func (b *builder) jacobian(eqs, odes []registry.EquationHandle) *Jacobian {
	odePos := make(map[registry.EquationHandle]int, len(odes))
	for i, e := range odes {
		odePos[e] = i
	}
	eqPos := make(map[registry.EquationHandle]int, len(eqs))
	for k, e := range eqs {
		eqPos[e] = k
	}

	// reach collects the ODE positions e reads through current values.
	reach := func(e registry.EquationHandle, via [][]bool) []bool {
		mark := make([]bool, len(odes))
		for _, d := range b.records[e].Dependencies {
			if d.Kind != trace.Current {
				continue
			}
			if j, ok := odePos[d.Equation]; ok {
				mark[j] = true
			} else if k, ok := eqPos[d.Equation]; ok && via[k] != nil {
				for j, m := range via[k] {
					mark[j] = mark[j] || m
				}
			}
		}
		return mark
	}

	through := make([][]bool, len(eqs))
	for k, e := range eqs {
		through[k] = reach(e, through)
	}

	jac := &Jacobian{
		Rows:          make([][]int, len(odes)),
		Columns:       make([][]int, len(odes)),
		Intermediates: make([][]int, len(odes)),
	}
	for i, e := range odes {
		for j, m := range reach(e, through) {
			if m {
				jac.Rows[i] = append(jac.Rows[i], j)
				jac.Columns[j] = append(jac.Columns[j], i)
			}
		}
	}
	for k := range eqs {
		for j, m := range through[k] {
			if m {
				jac.Intermediates[j] = append(jac.Intermediates[j], k)
			}
		}
	}
	return jac
}
