package engine

import (
	"time"

	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/registry"
)

// evalContext is the registry.Values handed to bodies at run time. It holds
// the index tuple being evaluated as one position per index set.
type evalContext struct {
	run *Run
	// binding[h] is the current position in index set h, -1 when unbound.
	binding []int
	// eq is the equation being evaluated.
	eq registry.EquationHandle
	// group is the schedule group being evaluated, -1 in the initial phase.
	group int
	// batch is the schedule batch being evaluated, -1 outside of one.
	batch int
}

var _ registry.Values = (*evalContext)(nil)

func (c *evalContext) name(e registry.EquationHandle) string {
	return c.run.reg.Equation(e).Name
}

// at returns the flat position of the current tuple in sp.
func (c *evalContext) at(sp *indexset.Space) int {
	for _, h := range sp.Sets() {
		if c.binding[h] < 0 {
			fail("read of a value indexed over %q outside of that index set", c.run.sets.Name(h))
		}
	}
	return sp.OffsetOf(c.binding)
}

// count returns the number of positions of set under the current tuple.
func (c *evalContext) count(set indexset.Handle) int {
	parentPos := 0
	if p, tied := c.run.sets.Parent(set); tied {
		if c.binding[p] < 0 {
			fail("index set %q is tied to %q, which is not being evaluated", c.run.sets.Name(set), c.run.sets.Name(p))
		}
		parentPos = c.binding[p]
	}
	return c.run.sets.Count(set, parentPos)
}

// moved returns the flat position in sp of the current tuple with the
// position in set replaced by index.
func (c *evalContext) moved(sp *indexset.Space, set indexset.Handle, index int) int {
	if set < 0 || int(set) >= len(c.binding) {
		fail("unknown index set handle %d", set)
	}
	if n := c.count(set); index < 0 || index >= n {
		fail("index %d is out of range for index set %q of %d indices", index, c.run.sets.Name(set), n)
	}
	old := c.binding[set]
	c.binding[set] = index
	off := c.at(sp)
	c.binding[set] = old
	return off
}

func (c *evalContext) checkEquation(e registry.EquationHandle) {
	if e < 0 || int(e) >= len(c.run.cur) {
		fail("unknown equation handle %d", e)
	}
}

func (c *evalContext) Param(p registry.ParameterHandle) float64 {
	ds := c.run.ds
	return ds.params[p][c.at(ds.paramSpaces[p])]
}

func (c *evalContext) ParamAt(p registry.ParameterHandle, set indexset.Handle, index int) float64 {
	ds := c.run.ds
	return ds.params[p][c.moved(ds.paramSpaces[p], set, index)]
}

func (c *evalContext) Input(i registry.InputHandle) float64 {
	ds := c.run.ds
	if !ds.HasInput(i) || c.run.t >= ds.timesteps {
		fail("input %q has no value at timestep %d", c.run.reg.Input(i).Name, c.run.t)
	}
	sp := ds.inputSpaces[i]
	return ds.inputs[i][c.run.t*sp.Size()+c.at(sp)]
}

func (c *evalContext) Result(e registry.EquationHandle) float64 {
	c.checkEquation(e)
	if !c.computed(e) {
		fail("%q is not computed yet at timestep %d", c.name(e), c.run.t)
	}
	return c.run.cur[e][c.at(c.run.spaces[e])]
}

// computed reports whether the current value of e is already written at
// this point of the timestep. Reads the trace saw are ordered by the
// schedule; this catches the ones it did not see.
func (c *evalContext) computed(e registry.EquationHandle) bool {
	r := c.run
	bi := r.schedule.BatchOf[e]
	if c.batch < 0 || bi < 0 {
		return true
	}
	switch g := r.groupOf[e]; {
	case g != c.group:
		return g < c.group
	case bi != c.batch:
		return r.batchRank[bi] < r.batchRank[c.batch]
	}
	// Same batch: solver states are always set, and intermediates are
	// evaluated in order before the derivatives.
	return r.eqRank[e] < 0 || c.eq < 0 || r.eqRank[c.eq] < 0 || r.eqRank[e] < r.eqRank[c.eq]
}

func (c *evalContext) LastResult(e registry.EquationHandle) float64 {
	return c.EarlierResult(e, 1)
}

func (c *evalContext) EarlierResult(e registry.EquationHandle, steps int) float64 {
	c.checkEquation(e)
	r := c.run
	if steps < 1 {
		fail("%q cannot be read %d timesteps back", c.name(e), steps)
	}
	off := c.at(r.spaces[e])
	if hist := r.hist[e]; steps <= len(hist) {
		return hist[steps-1][off]
	}
	if t := r.t - steps; t >= 0 {
		return r.results[e][t*len(r.cur[e])+off]
	}
	return r.initial[e][off]
}

func (c *evalContext) ResultAt(e registry.EquationHandle, set indexset.Handle, index int) float64 {
	c.checkEquation(e)
	r := c.run
	if c.group >= 0 && r.groupOf[e] >= c.group {
		if !r.sets.IsBranched(set) || c.binding[set] < 0 || index >= c.binding[set] {
			fail("%q is not computed yet at index %d of %q", c.name(e), index, r.sets.Name(set))
		}
	}
	return r.cur[e][c.moved(r.spaces[e], set, index)]
}

func (c *evalContext) LastResultAt(e registry.EquationHandle, set indexset.Handle, index int) float64 {
	c.checkEquation(e)
	return c.run.hist[e][0][c.moved(c.run.spaces[e], set, index)]
}

func (c *evalContext) SetResult(e registry.EquationHandle, value float64) {
	c.checkEquation(e)
	eq := c.run.reg.Equation(e)
	if eq.Kind != registry.ComputedExternally || eq.ComputedBy != c.eq {
		fail("%q is not computed by %q", eq.Name, c.name(c.eq))
	}
	c.run.cur[e][c.at(c.run.spaces[e])] = value
}

func (c *evalContext) CurrentIndex(set indexset.Handle) int {
	if set < 0 || int(set) >= len(c.binding) || c.binding[set] < 0 {
		fail("index set handle %d is not being evaluated", set)
	}
	return c.binding[set]
}

func (c *evalContext) IndexCount(set indexset.Handle) int {
	if set < 0 || int(set) >= len(c.binding) {
		fail("unknown index set handle %d", set)
	}
	return c.count(set)
}

func (c *evalContext) BranchInputs(set indexset.Handle) []int {
	return c.run.sets.BranchInputs(set, c.CurrentIndex(set))
}

func (c *evalContext) Timestep() int {
	return c.run.t
}

func (c *evalContext) Time() time.Time {
	ds := c.run.ds
	return ds.start.Add(time.Duration(c.run.t) * ds.step)
}

func (c *evalContext) DayOfYear() int {
	return c.Time().YearDay()
}
