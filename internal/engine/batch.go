package engine

import (
	"math"

	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/specialistvlad/equagrid/internal/scheduler"
	"github.com/specialistvlad/equagrid/internal/solver"
	"gonum.org/v1/gonum/mat"
)

// runGroup evaluates every active batch of a group over every tuple of its
// signature.
func (r *Run) runGroup(gi int) error {
	g := &r.schedule.Groups[gi]
	var batches []int
	for _, bi := range g.Batches {
		if r.active[bi] {
			batches = append(batches, bi)
		}
	}
	if len(batches) == 0 {
		return nil
	}
	r.ctx.group = gi
	defer func() { r.ctx.group, r.ctx.batch = -1, -1 }()
	return r.forEachTuple(r.groupSpaces[gi], func() error {
		for _, bi := range batches {
			b := &r.schedule.Batches[bi]
			if b.Conditional != nil && !r.gateOpen(b.Conditional) {
				continue
			}
			if err := r.runBatch(bi, b); err != nil {
				return err
			}
		}
		return nil
	})
}

// gateOpen reports whether the conditional holds at the current tuple.
func (r *Run) gateOpen(c *registry.Conditional) bool {
	return r.ds.params[c.Parameter][r.ctx.at(r.ds.paramSpaces[c.Parameter])] == c.Value
}

func (r *Run) runBatch(bi int, b *scheduler.Batch) (err error) {
	r.ctx.eq = registry.NoEquation
	r.ctx.batch = bi
	defer r.recoverEval(registry.NoEquation, &err)
	if s := r.solvers[bi]; s != nil {
		return s.advance()
	}
	for _, e := range b.Equations {
		if err := r.checkValue(e, r.store(e)); err != nil {
			return err
		}
	}
	return nil
}

// evalChecked evaluates e at the current tuple and checks the value.
func (r *Run) evalChecked(e registry.EquationHandle) (err error) {
	defer r.recoverEval(e, &err)
	return r.checkValue(e, r.store(e))
}

// store evaluates e at the current tuple and writes its value. Equations
// computed externally are written by their writer and only read back.
func (r *Run) store(e registry.EquationHandle) float64 {
	c := r.ctx
	eq := r.reg.Equation(e)
	c.eq = e
	off := c.at(r.spaces[e])
	var v float64
	switch eq.Kind {
	case registry.ComputedExternally:
		return r.cur[e][off]
	case registry.Cumulative:
		v = r.cumulative(eq.Aggregate)
	default:
		v = eq.Body(c)
	}
	r.cur[e][off] = v
	return v
}

// cumulative sums the aggregate's target over every position of its set.
func (r *Run) cumulative(a registry.Aggregate) float64 {
	c := r.ctx
	target := r.spaces[a.Target]
	n := c.count(a.Over)
	old := c.binding[a.Over]
	defer func() { c.binding[a.Over] = old }()

	sum := 0.0
	for i := 0; i < n; i++ {
		c.binding[a.Over] = i
		term := r.cur[a.Target][c.at(target)]
		if a.Weight != registry.NoParameter {
			term *= r.ds.params[a.Weight][c.at(r.ds.paramSpaces[a.Weight])]
		}
		sum += term
	}
	return sum
}

// batchSolver integrates the ODEs of one solver batch at the current tuple.
// One integrator serves every tuple of the batch; integrators keep no state
// between calls to Advance.
type batchSolver struct {
	run   *Run
	batch *scheduler.Batch
	name  string
	it    solver.Integrator
	jac   bool

	offs          []int
	y, base, f0   []float64
	perturbedBody []float64
}

func newBatchSolver(r *Run, b *scheduler.Batch) *batchSolver {
	s := r.reg.Solver(b.Solver)
	n := len(b.ODEs)
	return &batchSolver{
		run:           r,
		batch:         b,
		name:          s.Name,
		it:            s.Method.NewIntegrator(n),
		jac:           s.Method.RequiresJacobian(),
		offs:          make([]int, n),
		y:             make([]float64, n),
		base:          make([]float64, n),
		f0:            make([]float64, n),
		perturbedBody: make([]float64, n),
	}
}

func (s *batchSolver) advance() error {
	r := s.run
	for i, e := range s.batch.ODEs {
		s.offs[i] = r.ctx.at(r.spaces[e])
		s.y[i] = r.cur[e][s.offs[i]]
	}
	var jac solver.JacobianFunc
	if s.jac {
		jac = s.jacobian
	}
	if err := s.it.Advance(s.y, 1, s.derivatives, jac); err != nil {
		e := s.batch.ODEs[0]
		return &SolverError{Solver: s.name, Timestep: r.timestep(), Indices: r.indices(e), Err: err}
	}

	s.setState(s.y)
	for i, e := range s.batch.ODEs {
		if err := r.checkValue(e, s.y[i]); err != nil {
			return err
		}
	}
	for _, e := range s.batch.Equations {
		if err := r.checkValue(e, r.store(e)); err != nil {
			return err
		}
	}
	return nil
}

func (s *batchSolver) setState(y []float64) {
	for i, e := range s.batch.ODEs {
		s.run.cur[e][s.offs[i]] = y[i]
	}
}

// derivatives is the solver callback: it sets the states, re-evaluates the
// intermediate equations and evaluates every ODE body.
func (s *batchSolver) derivatives(y, dydt []float64) {
	r := s.run
	s.setState(y)
	for _, e := range s.batch.Equations {
		r.store(e)
	}
	for i, e := range s.batch.ODEs {
		r.ctx.eq = e
		dydt[i] = r.reg.Equation(e).Body(r.ctx)
	}
}

// perturbation is the forward difference step for a state value.
func perturbation(v float64) float64 {
	return math.Sqrt(2.220446049250313e-16) * math.Max(1, math.Abs(v))
}

// jacobian estimates d(dydt)/dy at y by forward differences.
func (s *batchSolver) jacobian(y []float64, jac *mat.Dense) {
	copy(s.base, y)
	s.derivatives(s.base, s.f0)
	if s.run.opts.Jacobian == JacobianFull || s.batch.Jacobian == nil {
		s.fullJacobian(jac)
	} else {
		s.reducedJacobian(jac)
	}
}

func (s *batchSolver) fullJacobian(jac *mat.Dense) {
	n := len(s.base)
	f1 := s.perturbedBody
	for j := 0; j < n; j++ {
		v := s.base[j]
		h := perturbation(v)
		s.base[j] = v + h
		s.derivatives(s.base, f1)
		s.base[j] = v
		for i := 0; i < n; i++ {
			jac.Set(i, j, (f1[i]-s.f0[i])/h)
		}
	}
	s.derivatives(s.base, f1)
}

// reducedJacobian perturbs one state at a time and only re-evaluates what
// depends on it. Entries outside the batch's dependency structure are zero.
func (s *batchSolver) reducedJacobian(jac *mat.Dense) {
	r := s.run
	structure := s.batch.Jacobian
	odes, eqs := s.batch.ODEs, s.batch.Equations
	for j := range s.base {
		v := s.base[j]
		h := perturbation(v)

		r.cur[odes[j]][s.offs[j]] = v + h
		for _, k := range structure.Intermediates[j] {
			r.store(eqs[k])
		}
		for _, i := range structure.Columns[j] {
			r.ctx.eq = odes[i]
			d := r.reg.Equation(odes[i]).Body(r.ctx)
			jac.Set(i, j, (d-s.f0[i])/h)
		}

		r.cur[odes[j]][s.offs[j]] = v
		for _, k := range structure.Intermediates[j] {
			r.store(eqs[k])
		}
	}
}
