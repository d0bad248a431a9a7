package registry

import (
	"fmt"

	"github.com/specialistvlad/equagrid/internal/indexset"
)

func (r *Registry) registerEquation(name, unit string, kind EquationKind, body Body) (EquationHandle, error) {
	if r.frozen {
		return NoEquation, ErrAlreadyFinalized
	}
	if name == "" {
		return NoEquation, fmt.Errorf("equation name cannot be empty")
	}
	if _, ok := r.equationByName[name]; ok {
		return NoEquation, fmt.Errorf("equation %q: %w", name, ErrDuplicateDeclaration)
	}
	if body == nil && kind != Cumulative && kind != ComputedExternally {
		return NoEquation, fmt.Errorf("%s equation %q has no body", kind, name)
	}
	h := EquationHandle(len(r.equations))
	r.equations = append(r.equations, &Equation{
		Name:       name,
		Unit:       unit,
		Kind:       kind,
		Body:       body,
		Module:     r.module,
		Solver:     NoSolver,
		Initial:    InitialSource{Equation: NoEquation, Parameter: NoParameter},
		Aggregate:  Aggregate{Target: NoEquation, Over: indexset.None, Weight: NoParameter},
		ComputedBy: NoEquation,
	})
	r.equationByName[name] = h
	return h, nil
}

// RegisterEquation declares a plain equation whose value is its body's result.
func (r *Registry) RegisterEquation(name, unit string, body Body) (EquationHandle, error) {
	return r.registerEquation(name, unit, Plain, body)
}

// RegisterEquationODE declares a state variable whose body returns its
// derivative. It must be assigned a solver before finalization.
func (r *Registry) RegisterEquationODE(name, unit string, body Body) (EquationHandle, error) {
	return r.registerEquation(name, unit, ODE, body)
}

// RegisterEquationInitialValue declares an equation evaluated once before the
// first timestep, usable as the initial value source of other equations.
func (r *Registry) RegisterEquationInitialValue(name, unit string, body Body) (EquationHandle, error) {
	return r.registerEquation(name, unit, InitialValue, body)
}

// RegisterEquationCumulative declares the sum of target over every index of
// set. weight may be NoParameter; otherwise each term is multiplied by the
// weight parameter at the term's position.
func (r *Registry) RegisterEquationCumulative(name string, target EquationHandle, set indexset.Handle, weight ParameterHandle) (EquationHandle, error) {
	t, err := r.equation(target)
	if err != nil {
		return NoEquation, fmt.Errorf("cumulative equation %q: %w", name, err)
	}
	if err := r.checkSets([]indexset.Handle{set}); err != nil {
		return NoEquation, fmt.Errorf("cumulative equation %q: %w", name, err)
	}
	if weight != NoParameter {
		if _, err := r.parameter(weight); err != nil {
			return NoEquation, fmt.Errorf("cumulative equation %q: %w", name, err)
		}
	}
	h, err := r.registerEquation(name, t.Unit, Cumulative, nil)
	if err != nil {
		return NoEquation, err
	}
	r.equations[h].Aggregate = Aggregate{Target: target, Over: set, Weight: weight}
	return h, nil
}

// RegisterEquationExternal declares an equation assigned by the body of the
// equation set with SetComputedBy.
func (r *Registry) RegisterEquationExternal(name, unit string) (EquationHandle, error) {
	return r.registerEquation(name, unit, ComputedExternally, nil)
}

func (r *Registry) equation(h EquationHandle) (*Equation, error) {
	if h < 0 || int(h) >= len(r.equations) {
		return nil, fmt.Errorf("equation handle %d: %w", h, ErrUnknownHandle)
	}
	return r.equations[h], nil
}

func (r *Registry) mutableEquation(h EquationHandle) (*Equation, error) {
	if r.frozen {
		return nil, ErrAlreadyFinalized
	}
	return r.equation(h)
}

// SetSolver assigns an equation to a solver. ODE equations need one; plain
// equations assigned to a solver are re-evaluated on every solver sub-step.
func (r *Registry) SetSolver(e EquationHandle, s SolverHandle) error {
	eq, err := r.mutableEquation(e)
	if err != nil {
		return err
	}
	if _, err := r.solver(s); err != nil {
		return err
	}
	switch eq.Kind {
	case ODE, Plain:
	default:
		return fmt.Errorf("%s equation %q cannot be assigned a solver", eq.Kind, eq.Name)
	}
	eq.Solver = s
	return nil
}

// SetInitialValue sets where an equation's value before the first timestep
// comes from. Without one it starts at zero.
func (r *Registry) SetInitialValue(e EquationHandle, src InitialSource) error {
	eq, err := r.mutableEquation(e)
	if err != nil {
		return err
	}
	switch eq.Kind {
	case Plain, ODE:
	default:
		return fmt.Errorf("%s equation %q cannot have an initial value", eq.Kind, eq.Name)
	}
	switch src.Kind {
	case InitialFromEquation:
		from, err := r.equation(src.Equation)
		if err != nil {
			return err
		}
		if from.Kind != InitialValue {
			return fmt.Errorf("initial value of %q must come from an initial value equation, %q is %s", eq.Name, from.Name, from.Kind)
		}
	case InitialFromParameter:
		if _, err := r.parameter(src.Parameter); err != nil {
			return err
		}
	case InitialConstant, InitialNone:
	default:
		return fmt.Errorf("unknown initial value kind %d", src.Kind)
	}
	eq.Initial = src
	return nil
}

// SetConditional gates an equation: it is evaluated only where the parameter
// holds the given value, and keeps its previous value elsewhere.
func (r *Registry) SetConditional(e EquationHandle, c Conditional) error {
	eq, err := r.mutableEquation(e)
	if err != nil {
		return err
	}
	if _, err := r.parameter(c.Parameter); err != nil {
		return err
	}
	if eq.Kind == InitialValue {
		return fmt.Errorf("initial value equation %q cannot be conditional", eq.Name)
	}
	eq.Conditional = &c
	return nil
}

// SetIndexSets declares index sets the equation is evaluated over in
// addition to those inferred from its reads.
func (r *Registry) SetIndexSets(e EquationHandle, sets ...indexset.Handle) error {
	eq, err := r.mutableEquation(e)
	if err != nil {
		return err
	}
	if err := r.checkSets(sets); err != nil {
		return fmt.Errorf("equation %q: %w", eq.Name, err)
	}
	eq.Sets = append([]indexset.Handle(nil), sets...)
	return nil
}

// SetComputedBy names the equation whose body assigns a ComputedExternally
// equation through Values.SetResult.
func (r *Registry) SetComputedBy(e, writer EquationHandle) error {
	eq, err := r.mutableEquation(e)
	if err != nil {
		return err
	}
	w, err := r.equation(writer)
	if err != nil {
		return err
	}
	if eq.Kind != ComputedExternally {
		return fmt.Errorf("%s equation %q cannot be computed by another equation", eq.Kind, eq.Name)
	}
	if w.Kind != Plain {
		return fmt.Errorf("equation %q computing %q must be plain, not %s", w.Name, eq.Name, w.Kind)
	}
	eq.ComputedBy = writer
	return nil
}
