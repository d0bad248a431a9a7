package scheduler

import (
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/registry"
)

// Batch is a run of equations sharing a signature, a solver and a
// conditional. Equations holds the non-ODE equations in evaluation order;
// ODEs holds the state variables integrated by the solver, in registration
// order.
type Batch struct {
	Solver      registry.SolverHandle
	Conditional *registry.Conditional
	Signature   []indexset.Handle
	Equations   []registry.EquationHandle
	ODEs        []registry.EquationHandle
	// Jacobian is set for solver batches whose method requires one.
	Jacobian *Jacobian
}

// HasSolver reports whether the batch is integrated by a solver.
func (b *Batch) HasSolver() bool {
	return b.Solver != registry.NoSolver
}

// Jacobian is the reduced dependency structure of a solver batch. All
// indices are positions in the batch's ODEs or Equations.
type Jacobian struct {
	// Rows[i] lists the ODEs whose state influences the derivative of ODE i.
	Rows [][]int
	// Columns[j] lists the ODEs whose derivative depends on the state of ODE j.
	Columns [][]int
	// Intermediates[j] lists the non-ODE equations to re-evaluate when the
	// state of ODE j changes.
	Intermediates [][]int
}

// Group is a run of batches evaluated together: for every tuple of the
// signature, every batch of the group in order.
type Group struct {
	Signature []indexset.Handle
	// Batches are positions in Schedule.Batches.
	Batches []int
}

// Schedule is the frozen execution plan of a model. It is shared read-only
// by every run of the model.
type Schedule struct {
	Batches []Batch
	Groups  []Group
	// Initial lists the initial value equations (and cumulatives over them)
	// in evaluation order.
	Initial []registry.EquationHandle
	// Signatures holds the index sets every equation is evaluated over,
	// indexed by equation handle.
	Signatures [][]indexset.Handle
	// LagDepth is the deepest lagged read of every equation; above 1 the
	// evaluator keeps a history of that many timesteps.
	LagDepth []int
	// BatchOf maps an equation to its batch, -1 for initial equations.
	BatchOf []int
}

// Describe writes a human readable listing of the schedule.
func (s *Schedule) Describe(w io.Writer, r *registry.Registry) error {
	sets := r.IndexSets()
	sig := func(hs []indexset.Handle) string {
		names := make([]string, len(hs))
		for i, h := range hs {
			names[i] = sets.Name(h)
		}
		return "[" + strings.Join(names, ", ") + "]"
	}
	names := func(hs []registry.EquationHandle) string {
		out := make([]string, len(hs))
		for i, h := range hs {
			out[i] = r.Equation(h).Name
		}
		return strings.Join(out, ", ")
	}

	var b strings.Builder
	if len(s.Initial) > 0 {
		fmt.Fprintf(&b, "initial: %s\n", names(s.Initial))
	}
	for gi, g := range s.Groups {
		fmt.Fprintf(&b, "group %d %s\n", gi, sig(g.Signature))
		for _, bi := range g.Batches {
			batch := &s.Batches[bi]
			fmt.Fprintf(&b, "  batch %d", bi)
			if batch.HasSolver() {
				fmt.Fprintf(&b, " solver=%s", r.Solver(batch.Solver).Name)
			}
			if c := batch.Conditional; c != nil {
				fmt.Fprintf(&b, " if %s=%g", r.Parameter(c.Parameter).Name, c.Value)
			}
			b.WriteString("\n")
			if len(batch.Equations) > 0 {
				fmt.Fprintf(&b, "    %s\n", names(batch.Equations))
			}
			if len(batch.ODEs) > 0 {
				fmt.Fprintf(&b, "    ode: %s\n", names(batch.ODEs))
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
