package registry

import (
	"time"

	"github.com/specialistvlad/equagrid/internal/indexset"
)

// Body computes an equation's value (or derivative, for ODE equations) from
// the evaluation context. Bodies must be deterministic and may only read
// through v; at finalization they are run against placeholder values, so
// divisions must tolerate zero denominators.
type Body func(v Values) float64

// Values is the evaluation context handed to equation bodies. Reads are
// resolved at the index tuple the equation is currently evaluated at.
type Values interface {
	// Param reads a parameter at the current tuple.
	Param(p ParameterHandle) float64
	// ParamAt reads a parameter with the position in set replaced by index.
	ParamAt(p ParameterHandle, set indexset.Handle, index int) float64
	// Input reads an input series at the current timestep.
	Input(i InputHandle) float64

	// Result reads an equation's value at the current timestep.
	Result(e EquationHandle) float64
	// LastResult reads an equation's value at the previous timestep.
	LastResult(e EquationHandle) float64
	// EarlierResult reads an equation's value steps timesteps back; steps of
	// 1 is LastResult.
	EarlierResult(e EquationHandle, steps int) float64
	// ResultAt reads the current value at another position of set. For
	// branched sets only positions before the current one may be read.
	ResultAt(e EquationHandle, set indexset.Handle, index int) float64
	// LastResultAt reads the previous timestep's value at another position.
	LastResultAt(e EquationHandle, set indexset.Handle, index int) float64
	// SetResult assigns a ComputedExternally equation written by this body.
	SetResult(e EquationHandle, value float64)

	// CurrentIndex returns the position being evaluated in set.
	CurrentIndex(set indexset.Handle) int
	// IndexCount returns the number of positions of set, under the current
	// parent position for tied sets.
	IndexCount(set indexset.Handle) int
	// BranchInputs returns the branch inputs of the current position of a
	// branched set.
	BranchInputs(set indexset.Handle) []int

	Timestep() int
	Time() time.Time
	DayOfYear() int
}
