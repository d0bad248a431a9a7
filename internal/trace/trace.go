package trace

import (
	"context"
	"fmt"

	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/registry"
)

// Kind is the kind of an equation read.
type Kind int

const (
	// Current reads the value of the current timestep at the same tuple.
	Current Kind = iota
	// Lagged reads a previous timestep's value at the same tuple.
	Lagged
	// Cross reads the current value at another position of Set.
	Cross
	// LaggedCross reads a previous timestep's value at another position of Set.
	LaggedCross
)

func (k Kind) String() string {
	switch k {
	case Current:
		return "current"
	case Lagged:
		return "lagged"
	case Cross:
		return "cross"
	case LaggedCross:
		return "lagged cross"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Ordering reports whether reads of this kind constrain evaluation order.
func (k Kind) Ordering() bool {
	return k == Current || k == Cross
}

// Dependency is one equation read.
type Dependency struct {
	Equation registry.EquationHandle
	Kind     Kind
	// Set is the index set a cross read moves along, indexset.None otherwise.
	Set indexset.Handle
	// Lag is the number of timesteps back for lagged reads, 0 otherwise.
	Lag int
}

// ParameterRead is one parameter read. Set is not None for ParamAt reads.
type ParameterRead struct {
	Parameter registry.ParameterHandle
	Set       indexset.Handle
}

// Record lists everything one equation reads and writes, in first-read order
// without duplicates.
type Record struct {
	Equation     registry.EquationHandle
	Parameters   []ParameterRead
	Inputs       []registry.InputHandle
	Dependencies []Dependency
	// Sets were queried through CurrentIndex, IndexCount or BranchInputs.
	Sets []indexset.Handle
	// Writes are ComputedExternally equations assigned through SetResult.
	Writes []registry.EquationHandle
}

// Run traces every equation of the registry. Records are indexed by equation
// handle. Problems found while tracing are returned as issues; a body that
// panics gets an issue and an incomplete record.
func Run(ctx context.Context, r *registry.Registry) ([]Record, registry.Issues) {
	logger := ctxlog.FromContext(ctx)
	records := make([]Record, r.NumEquations())
	var issues registry.Issues

	for i := range records {
		h := registry.EquationHandle(i)
		eq := r.Equation(h)
		rec := &records[i]
		rec.Equation = h

		switch eq.Kind {
		case registry.Cumulative:
			rec.Dependencies = []Dependency{{Equation: eq.Aggregate.Target, Kind: Cross, Set: eq.Aggregate.Over}}
			if eq.Aggregate.Weight != registry.NoParameter {
				rec.Parameters = []ParameterRead{{Parameter: eq.Aggregate.Weight, Set: eq.Aggregate.Over}}
			}
			continue
		case registry.ComputedExternally:
			if eq.ComputedBy == registry.NoEquation {
				issues.Add(registry.IssueComputedExternally, []string{eq.Name}, "equation %q is computed externally but no equation computes it", eq.Name)
				continue
			}
			rec.Dependencies = []Dependency{{Equation: eq.ComputedBy, Kind: Current, Set: indexset.None}}
			continue
		}

		tv := newValues(r, rec)
		for _, placeholder := range []float64{0, 1} {
			tv.placeholder = placeholder
			if err := tv.run(eq.Body); err != nil {
				issues.Add(registry.IssueTrace, []string{eq.Name}, "equation %q panicked while tracing: %v", eq.Name, err)
				break
			}
		}
		issues = append(issues, tv.issues...)
		logger.Debug("Equation traced.", "equation", eq.Name, "dependencies", len(rec.Dependencies), "parameters", len(rec.Parameters), "inputs", len(rec.Inputs))
	}

	for i := range records {
		eq := r.Equation(registry.EquationHandle(i))
		if eq.Kind != registry.ComputedExternally || eq.ComputedBy == registry.NoEquation {
			continue
		}
		if !writes(records[eq.ComputedBy], registry.EquationHandle(i)) {
			writer := r.Equation(eq.ComputedBy).Name
			issues.Add(registry.IssueComputedExternally, []string{eq.Name, writer}, "equation %q is computed by %q, which never sets it", eq.Name, writer)
		}
	}
	return records, issues
}

func writes(rec Record, e registry.EquationHandle) bool {
	for _, w := range rec.Writes {
		if w == e {
			return true
		}
	}
	return false
}
