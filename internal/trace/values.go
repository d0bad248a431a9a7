package trace

import (
	"fmt"
	"time"

	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/registry"
)

// traceEpoch is the time reported to bodies while tracing.
var traceEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// values implements registry.Values by recording every read into a Record.
type values struct {
	r           *registry.Registry
	rec         *Record
	placeholder float64
	issues      registry.Issues

	seenDeps   map[Dependency]struct{}
	seenParams map[ParameterRead]struct{}
	seenInputs map[registry.InputHandle]struct{}
	seenSets   map[indexset.Handle]struct{}
	seenWrites map[registry.EquationHandle]struct{}
	seenIssues map[string]struct{}
}

var _ registry.Values = (*values)(nil)

func newValues(r *registry.Registry, rec *Record) *values {
	return &values{
		r:          r,
		rec:        rec,
		seenDeps:   make(map[Dependency]struct{}),
		seenParams: make(map[ParameterRead]struct{}),
		seenInputs: make(map[registry.InputHandle]struct{}),
		seenSets:   make(map[indexset.Handle]struct{}),
		seenWrites: make(map[registry.EquationHandle]struct{}),
		seenIssues: make(map[string]struct{}),
	}
}

func (v *values) run(body registry.Body) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	body(v)
	return nil
}

func (v *values) name() string {
	return v.r.Equation(v.rec.Equation).Name
}

func (v *values) invalid(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if _, ok := v.seenIssues[msg]; ok {
		return
	}
	v.seenIssues[msg] = struct{}{}
	v.issues.Add(registry.IssueTrace, []string{v.name()}, "equation %q %s", v.name(), msg)
}

func (v *values) validSet(s indexset.Handle) bool {
	if s < 0 || int(s) >= v.r.IndexSets().Len() {
		v.invalid("reads unknown index set handle %d", s)
		return false
	}
	return true
}

func (v *values) dep(e registry.EquationHandle, kind Kind, set indexset.Handle, lag int) {
	if e < 0 || int(e) >= v.r.NumEquations() {
		v.invalid("reads unknown equation handle %d", e)
		return
	}
	if set != indexset.None && !v.validSet(set) {
		return
	}
	d := Dependency{Equation: e, Kind: kind, Set: set, Lag: lag}
	if _, ok := v.seenDeps[d]; ok {
		return
	}
	v.seenDeps[d] = struct{}{}
	v.rec.Dependencies = append(v.rec.Dependencies, d)
}

func (v *values) param(p registry.ParameterHandle, set indexset.Handle) float64 {
	if p < 0 || int(p) >= v.r.NumParameters() {
		v.invalid("reads unknown parameter handle %d", p)
		return v.placeholder
	}
	if set != indexset.None && !v.validSet(set) {
		return v.placeholder
	}
	pr := ParameterRead{Parameter: p, Set: set}
	if _, ok := v.seenParams[pr]; !ok {
		v.seenParams[pr] = struct{}{}
		v.rec.Parameters = append(v.rec.Parameters, pr)
	}
	return v.placeholder
}

func (v *values) touch(s indexset.Handle) {
	if !v.validSet(s) {
		return
	}
	if _, ok := v.seenSets[s]; ok {
		return
	}
	v.seenSets[s] = struct{}{}
	v.rec.Sets = append(v.rec.Sets, s)
}

func (v *values) Param(p registry.ParameterHandle) float64 {
	return v.param(p, indexset.None)
}

func (v *values) ParamAt(p registry.ParameterHandle, set indexset.Handle, _ int) float64 {
	return v.param(p, set)
}

func (v *values) Input(i registry.InputHandle) float64 {
	if i < 0 || int(i) >= v.r.NumInputs() {
		v.invalid("reads unknown input handle %d", i)
		return v.placeholder
	}
	if _, ok := v.seenInputs[i]; !ok {
		v.seenInputs[i] = struct{}{}
		v.rec.Inputs = append(v.rec.Inputs, i)
	}
	return v.placeholder
}

func (v *values) Result(e registry.EquationHandle) float64 {
	v.dep(e, Current, indexset.None, 0)
	return v.placeholder
}

func (v *values) LastResult(e registry.EquationHandle) float64 {
	v.dep(e, Lagged, indexset.None, 1)
	return v.placeholder
}

func (v *values) EarlierResult(e registry.EquationHandle, steps int) float64 {
	// Lags taken from parameters see placeholder values here. The engine
	// serves lags deeper than the traced one from its stored results.
	v.dep(e, Lagged, indexset.None, max(1, steps))
	return v.placeholder
}

func (v *values) ResultAt(e registry.EquationHandle, set indexset.Handle, _ int) float64 {
	v.dep(e, Cross, set, 0)
	return v.placeholder
}

func (v *values) LastResultAt(e registry.EquationHandle, set indexset.Handle, _ int) float64 {
	v.dep(e, LaggedCross, set, 1)
	return v.placeholder
}

func (v *values) SetResult(e registry.EquationHandle, _ float64) {
	if e < 0 || int(e) >= v.r.NumEquations() {
		v.invalid("writes unknown equation handle %d", e)
		return
	}
	if _, ok := v.seenWrites[e]; ok {
		return
	}
	v.seenWrites[e] = struct{}{}
	target := v.r.Equation(e)
	if target.Kind != registry.ComputedExternally || target.ComputedBy != v.rec.Equation {
		v.issues.Add(registry.IssueComputedExternally, []string{v.name(), target.Name},
			"equation %q writes %q, which is not computed externally by it", v.name(), target.Name)
		return
	}
	v.rec.Writes = append(v.rec.Writes, e)
}

func (v *values) CurrentIndex(set indexset.Handle) int {
	v.touch(set)
	return 0
}

func (v *values) IndexCount(set indexset.Handle) int {
	v.touch(set)
	return 1
}

func (v *values) BranchInputs(set indexset.Handle) []int {
	v.touch(set)
	return []int{0}
}

func (v *values) Timestep() int   { return 0 }
func (v *values) Time() time.Time { return traceEpoch }
func (v *values) DayOfYear() int  { return 1 }
