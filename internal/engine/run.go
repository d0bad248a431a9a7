package engine

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/model"
	"github.com/specialistvlad/equagrid/internal/registry"
	"github.com/specialistvlad/equagrid/internal/scheduler"
)

// State is the lifecycle state of a Run.
type State int

const (
	Uninitialized State = iota
	InitialValuesComputed
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case InitialValuesComputed:
		return "initial values computed"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// JacobianStrategy selects how solver batches estimate their Jacobian.
type JacobianStrategy int

const (
	// JacobianReduced perturbs one state at a time and re-evaluates only the
	// intermediates and derivatives that depend on it.
	JacobianReduced JacobianStrategy = iota
	// JacobianFull re-evaluates the whole batch for every perturbed state.
	JacobianFull
)

func (s JacobianStrategy) String() string {
	if s == JacobianFull {
		return "full"
	}
	return "reduced"
}

// ParseJacobianStrategy parses "reduced" or "full".
func ParseJacobianStrategy(s string) (JacobianStrategy, error) {
	switch strings.ToLower(s) {
	case "", "reduced":
		return JacobianReduced, nil
	case "full":
		return JacobianFull, nil
	default:
		return JacobianReduced, fmt.Errorf("unknown jacobian strategy %q, expected reduced or full", s)
	}
}

// Options tune a run.
type Options struct {
	// CheckNaN aborts the run on the first NaN or infinite value.
	CheckNaN bool
	Jacobian JacobianStrategy
	// OnTimestep is called after every completed timestep.
	OnTimestep func(t int)
}

// Run is the mutable state of one simulation of a model over a dataset.
type Run struct {
	model    *model.Model
	reg      *registry.Registry
	sets     *indexset.Registry
	schedule *scheduler.Schedule
	ds       *Dataset
	opts     Options

	state State
	// t is the timestep being computed, and the number of completed ones.
	t   int
	err error

	// spaces, cur, hist and results are indexed by equation handle.
	spaces []*indexset.Space
	cur    [][]float64
	// hist[e][k] holds the values of e k+1 timesteps back. Deeper reads go
	// to results, or to initial before the first timestep.
	hist    [][][]float64
	results [][]float64
	initial [][]float64
	groupOf []int
	// eqRank is the position of an equation in its batch, -1 for ODEs and
	// initial equations. batchRank is the position of a batch in its group.
	eqRank    []int
	batchRank []int

	groupSpaces []*indexset.Space
	active      []bool
	solvers     []*batchSolver
	ctx         *evalContext
}

// NewRun allocates the run state of a simulation over ds.
func NewRun(ds *Dataset, opts Options) (*Run, error) {
	m := ds.model
	r := &Run{
		model:    m,
		reg:      m.Registry(),
		sets:     m.IndexSets(),
		schedule: m.Schedule(),
		ds:       ds,
		opts:     opts,
	}
	n := r.reg.NumEquations()
	r.ctx = &evalContext{run: r, binding: make([]int, r.sets.Len()), eq: registry.NoEquation, group: -1, batch: -1}
	for i := range r.ctx.binding {
		r.ctx.binding[i] = -1
	}

	cache := make(map[string]*indexset.Space)
	space := func(sig []indexset.Handle) (*indexset.Space, error) {
		key := fmt.Sprint(sig)
		if sp, ok := cache[key]; ok {
			return sp, nil
		}
		sp, err := r.sets.NewSpace(sig)
		if err != nil {
			return nil, err
		}
		cache[key] = sp
		return sp, nil
	}

	r.spaces = make([]*indexset.Space, n)
	r.cur = make([][]float64, n)
	r.hist = make([][][]float64, n)
	r.results = make([][]float64, n)
	r.groupOf = make([]int, n)
	r.eqRank = make([]int, n)
	for i := 0; i < n; i++ {
		sp, err := space(r.schedule.Signatures[i])
		if err != nil {
			return nil, fmt.Errorf("equation %q: %w", r.reg.Equation(registry.EquationHandle(i)).Name, err)
		}
		r.spaces[i] = sp
		r.cur[i] = make([]float64, sp.Size())
		r.hist[i] = make([][]float64, max(1, r.schedule.LagDepth[i]))
		for k := range r.hist[i] {
			r.hist[i][k] = make([]float64, sp.Size())
		}
		r.results[i] = make([]float64, ds.timesteps*sp.Size())
		r.groupOf[i] = -1
		r.eqRank[i] = -1
	}

	r.groupSpaces = make([]*indexset.Space, len(r.schedule.Groups))
	r.batchRank = make([]int, len(r.schedule.Batches))
	for gi, g := range r.schedule.Groups {
		sp, err := space(g.Signature)
		if err != nil {
			return nil, err
		}
		r.groupSpaces[gi] = sp
		for rank, bi := range g.Batches {
			r.batchRank[bi] = rank
			b := &r.schedule.Batches[bi]
			for k, e := range b.Equations {
				r.groupOf[e] = gi
				r.eqRank[e] = k
			}
			for _, e := range b.ODEs {
				r.groupOf[e] = gi
			}
		}
	}

	r.active = make([]bool, len(r.schedule.Batches))
	r.solvers = make([]*batchSolver, len(r.schedule.Batches))
	for bi := range r.schedule.Batches {
		b := &r.schedule.Batches[bi]
		r.active[bi] = r.reachable(b.Conditional)
		if b.HasSolver() && len(b.ODEs) > 0 {
			r.solvers[bi] = newBatchSolver(r, b)
		}
	}
	return r, nil
}

// reachable reports whether any value of the conditional's parameter opens
// the gate. Batches whose gate never opens are left out of the run.
func (r *Run) reachable(c *registry.Conditional) bool {
	if c == nil {
		return true
	}
	return slices.Contains(r.ds.params[c.Parameter], c.Value)
}

// State returns the lifecycle state of the run.
func (r *Run) State() State { return r.state }

// Timestep returns the number of completed timesteps.
func (r *Run) Timestep() int { return r.t }

// ExecutedBatches returns the positions in the schedule of the batches the
// run evaluates. Batches gated off everywhere are absent.
func (r *Run) ExecutedBatches() []int {
	var out []int
	for bi, ok := range r.active {
		if ok {
			out = append(out, bi)
		}
	}
	return out
}

// checkInputs rejects runs whose executed equations read inputs the dataset
// has no series for.
func (r *Run) checkInputs() error {
	var missing []string
	check := func(e registry.EquationHandle) {
		for _, in := range r.model.Reads(e).Inputs {
			if !r.ds.HasInput(in) {
				missing = append(missing, fmt.Sprintf("input %q read by %q", r.reg.Input(in).Name, r.reg.Equation(e).Name))
			}
		}
	}
	for _, e := range r.schedule.Initial {
		check(e)
	}
	for _, bi := range r.ExecutedBatches() {
		b := &r.schedule.Batches[bi]
		for _, e := range b.Equations {
			check(e)
		}
		for _, e := range b.ODEs {
			check(e)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("dataset has no series for:\n- %s", strings.Join(missing, "\n- "))
	}
	return nil
}

// Initialize evaluates the initial value equations and seeds every equation
// with its initial value.
func (r *Run) Initialize(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if r.state != Uninitialized {
		return fmt.Errorf("run is already %s", r.state)
	}
	if err := r.checkInputs(); err != nil {
		return err
	}

	r.ctx.group = -1
	for _, e := range r.schedule.Initial {
		if err := r.forEachTuple(r.spaces[e], func() error { return r.evalChecked(e) }); err != nil {
			return err
		}
	}

	for i := range r.cur {
		e := registry.EquationHandle(i)
		src := r.reg.Equation(e).Initial
		if src.Kind == registry.InitialNone {
			continue
		}
		err := r.forEachTuple(r.spaces[e], func() (err error) {
			defer r.recoverEval(e, &err)
			r.ctx.eq = e
			var v float64
			switch src.Kind {
			case registry.InitialFromEquation:
				v = r.cur[src.Equation][r.ctx.at(r.spaces[src.Equation])]
			case registry.InitialFromParameter:
				v = r.ds.params[src.Parameter][r.ctx.at(r.ds.paramSpaces[src.Parameter])]
			case registry.InitialConstant:
				v = src.Value
			}
			r.cur[e][r.ctx.at(r.spaces[e])] = v
			return r.checkValue(e, v)
		})
		if err != nil {
			return err
		}
	}

	r.initial = make([][]float64, len(r.cur))
	for e := range r.cur {
		r.initial[e] = slices.Clone(r.cur[e])
		for _, h := range r.hist[e] {
			copy(h, r.cur[e])
		}
	}
	r.state = InitialValuesComputed
	if r.ds.timesteps == 0 {
		r.state = Finished
	}
	logger.Debug("Initial values computed.", "initial_equations", len(r.schedule.Initial), "executed_batches", len(r.ExecutedBatches()))
	return nil
}

// forEachTuple binds every tuple of sp in turn and calls fn.
func (r *Run) forEachTuple(sp *indexset.Space, fn func() error) error {
	c := r.ctx
	sets := sp.Sets()
	defer func() {
		for _, h := range sets {
			c.binding[h] = -1
		}
	}()
	for k := 0; k < sp.Size(); k++ {
		for l, p := range sp.Tuple(k) {
			c.binding[sets[l]] = p
		}
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// Step computes one timestep.
func (r *Run) Step(ctx context.Context) error {
	switch {
	case r.state == Uninitialized:
		return ErrNotInitialized
	case r.err != nil:
		return r.err
	case r.state == Finished:
		return ErrFinished
	}
	r.state = Running
	for gi := range r.schedule.Groups {
		if err := r.runGroup(gi); err != nil {
			r.err = err
			return err
		}
	}

	for e, cur := range r.cur {
		copy(r.results[e][r.t*len(cur):], cur)
		h := r.hist[e]
		oldest := h[len(h)-1]
		copy(h[1:], h[:len(h)-1])
		copy(oldest, cur)
		h[0] = oldest
	}
	ctxlog.FromContext(ctx).Debug("Timestep computed.", "timestep", r.t)
	if r.opts.OnTimestep != nil {
		r.opts.OnTimestep(r.t)
	}
	r.t++
	if r.t == r.ds.timesteps {
		r.state = Finished
	}
	return nil
}

// RunModel runs a model over ds from the initial values to the last
// timestep. On failure the returned run holds the timesteps completed
// before the error.
func RunModel(ctx context.Context, ds *Dataset, opts Options) (*Run, error) {
	logger := ctxlog.FromContext(ctx)
	run, err := NewRun(ds, opts)
	if err != nil {
		return nil, err
	}
	if err := run.Initialize(ctx); err != nil {
		return run, err
	}
	for run.State() != Finished {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		if err := run.Step(ctx); err != nil {
			logger.Error("Run aborted.", "timestep", run.Timestep(), "error", err)
			return run, err
		}
	}
	logger.Debug("Run finished.", "timesteps", run.Timestep())
	return run, nil
}

// ResultSeries returns the values of an equation at the tuple named by
// indices for every completed timestep.
func (r *Run) ResultSeries(name string, indices ...string) ([]float64, error) {
	e, err := r.reg.LookupEquation(name)
	if err != nil {
		return nil, err
	}
	sp := r.spaces[e]
	tuple, err := resolveTuple(r.sets, sp, fmt.Sprintf("equation %q", name), indices)
	if err != nil {
		return nil, err
	}
	return r.Series(e, sp.Offset(tuple)), nil
}

// Series returns the values of an equation at a flat tuple position for
// every completed timestep.
func (r *Run) Series(e registry.EquationHandle, offset int) []float64 {
	size := r.spaces[e].Size()
	out := make([]float64, r.t)
	for t := range out {
		out[t] = r.results[e][t*size+offset]
	}
	return out
}

// Space returns the index tuples an equation is evaluated over.
func (r *Run) Space(e registry.EquationHandle) *indexset.Space {
	return r.spaces[e]
}

// indices names the current tuple of e for error reports.
func (r *Run) indices(e registry.EquationHandle) []string {
	if e < 0 || int(e) >= len(r.spaces) {
		return nil
	}
	sets := r.spaces[e].Sets()
	tuple := make([]int, len(sets))
	for l, h := range sets {
		if tuple[l] = r.ctx.binding[h]; tuple[l] < 0 {
			return nil
		}
	}
	return tupleNames(r.sets, sets, tuple)
}

func (r *Run) timestep() int {
	if r.state == Running {
		return r.t
	}
	return -1
}

func (r *Run) checkValue(e registry.EquationHandle, v float64) error {
	if !r.opts.CheckNaN || !(math.IsNaN(v) || math.IsInf(v, 0)) {
		return nil
	}
	return &NumericError{
		Equation: r.reg.Equation(e).Name,
		Timestep: r.timestep(),
		Indices:  r.indices(e),
		Value:    v,
	}
}

// recoverEval turns a panic raised while evaluating e into an error.
func (r *Run) recoverEval(e registry.EquationHandle, err *error) {
	p := recover()
	if p == nil {
		return
	}
	if cur := r.ctx.eq; cur != registry.NoEquation {
		e = cur
	}
	cause, ok := p.(readError)
	if !ok {
		cause = readError{err: fmt.Errorf("panic: %v", p)}
	}
	name := ""
	if e >= 0 && int(e) < len(r.spaces) {
		name = r.reg.Equation(e).Name
	}
	*err = &EvaluationError{Equation: name, Timestep: r.timestep(), Indices: r.indices(e), Err: cause.err}
}
