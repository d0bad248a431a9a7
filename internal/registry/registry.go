package registry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/specialistvlad/equagrid/internal/ctxlog"
	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/solver"
)

// Registry accumulates the declarations of one model.
type Registry struct {
	indexSets *indexset.Registry

	parameters []*Parameter
	inputs     []*Input
	equations  []*Equation
	solvers    []*Solver

	parameterByName map[string]ParameterHandle
	inputByName     map[string]InputHandle
	equationByName  map[string]EquationHandle
	solverByName    map[string]SolverHandle

	module  string
	modules []string
	frozen  bool
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		indexSets:       indexset.NewRegistry(),
		parameterByName: make(map[string]ParameterHandle),
		inputByName:     make(map[string]InputHandle),
		equationByName:  make(map[string]EquationHandle),
		solverByName:    make(map[string]SolverHandle),
	}
}

// Load registers every module in order, each inside its own module scope.
func (r *Registry) Load(ctx context.Context, modules ...Module) error {
	logger := ctxlog.FromContext(ctx)
	for _, m := range modules {
		if err := r.BeginModule(m.Name()); err != nil {
			return err
		}
		if err := m.Register(r); err != nil {
			return fmt.Errorf("module %q: %w", m.Name(), err)
		}
		r.EndModule()
		logger.Debug("Module registered.", "module", m.Name())
	}
	return nil
}

// IndexSets returns the index set registry of the model.
func (r *Registry) IndexSets() *indexset.Registry {
	return r.indexSets
}

// Freeze ends the declaration phase. It is called by model finalization.
func (r *Registry) Freeze() {
	r.frozen = true
	r.indexSets.Freeze()
}

// Frozen reports whether the registry has been finalized.
func (r *Registry) Frozen() bool {
	return r.frozen
}

// BeginModule opens a naming scope. Declarations made until EndModule record
// the module name; scheduling does not look at it.
func (r *Registry) BeginModule(name string) error {
	if r.frozen {
		return ErrAlreadyFinalized
	}
	if r.module != "" {
		return fmt.Errorf("module %q begun inside module %q", name, r.module)
	}
	r.module = name
	r.modules = append(r.modules, name)
	return nil
}

// EndModule closes the current module scope.
func (r *Registry) EndModule() {
	r.module = ""
}

// Modules returns the names of every module begun, in order.
func (r *Registry) Modules() []string {
	return r.modules
}

func (r *Registry) checkSets(sets []indexset.Handle) error {
	for _, h := range sets {
		if h < 0 || int(h) >= r.indexSets.Len() {
			return fmt.Errorf("index set handle %d: %w", h, ErrUnknownHandle)
		}
	}
	return nil
}

// RegisterParameter declares a parameter. The returned handle is valid only
// for this registry.
func (r *Registry) RegisterParameter(p Parameter) (ParameterHandle, error) {
	if r.frozen {
		return NoParameter, ErrAlreadyFinalized
	}
	if p.Name == "" {
		return NoParameter, fmt.Errorf("parameter name cannot be empty")
	}
	if _, ok := r.parameterByName[p.Name]; ok {
		return NoParameter, fmt.Errorf("parameter %q: %w", p.Name, ErrDuplicateDeclaration)
	}
	if err := r.checkSets(p.Sets); err != nil {
		return NoParameter, fmt.Errorf("parameter %q: %w", p.Name, err)
	}

	switch p.Kind {
	case ParameterBool:
		p.Min, p.Max = 0, 1
	case ParameterEnum:
		if len(p.EnumValues) == 0 {
			return NoParameter, fmt.Errorf("enum parameter %q has no values", p.Name)
		}
		p.Min, p.Max = 0, float64(len(p.EnumValues)-1)
	case ParameterUInt:
		if p.Min == 0 && p.Max == 0 {
			p.Max = math.Inf(1)
		}
	default:
		if p.Min == 0 && p.Max == 0 {
			p.Min, p.Max = math.Inf(-1), math.Inf(1)
		}
	}
	if p.Min > p.Max {
		return NoParameter, fmt.Errorf("parameter %q: min %g is above max %g", p.Name, p.Min, p.Max)
	}
	if p.Kind != ParameterDouble && p.Kind != ParameterTime && (p.Default < p.Min || p.Default > p.Max) {
		return NoParameter, fmt.Errorf("parameter %q: default %g is outside [%g, %g]", p.Name, p.Default, p.Min, p.Max)
	}

	p.Sets = append([]indexset.Handle(nil), p.Sets...)
	p.Module = r.module
	h := ParameterHandle(len(r.parameters))
	r.parameters = append(r.parameters, &p)
	r.parameterByName[p.Name] = h
	return h, nil
}

// EnumValue returns the stored value of an enum parameter's named value.
func (r *Registry) EnumValue(p ParameterHandle, name string) (float64, error) {
	par, err := r.parameter(p)
	if err != nil {
		return 0, err
	}
	for i, v := range par.EnumValues {
		if v == name {
			return float64(i), nil
		}
	}
	return 0, fmt.Errorf("parameter %q has no enum value %q", par.Name, name)
}

// TimeValue converts a time to the stored value of a time parameter.
func TimeValue(t time.Time) float64 {
	return float64(t.Unix())
}

// RegisterInput declares an input series.
func (r *Registry) RegisterInput(name, unit string, sets ...indexset.Handle) (InputHandle, error) {
	if r.frozen {
		return -1, ErrAlreadyFinalized
	}
	if name == "" {
		return -1, fmt.Errorf("input name cannot be empty")
	}
	if _, ok := r.inputByName[name]; ok {
		return -1, fmt.Errorf("input %q: %w", name, ErrDuplicateDeclaration)
	}
	if err := r.checkSets(sets); err != nil {
		return -1, fmt.Errorf("input %q: %w", name, err)
	}
	h := InputHandle(len(r.inputs))
	r.inputs = append(r.inputs, &Input{Name: name, Unit: unit, Sets: append([]indexset.Handle(nil), sets...), Module: r.module})
	r.inputByName[name] = h
	return h, nil
}

// RegisterSolver declares a solver that ODE equations can be assigned to.
func (r *Registry) RegisterSolver(name string, m solver.Method) (SolverHandle, error) {
	if r.frozen {
		return NoSolver, ErrAlreadyFinalized
	}
	if name == "" {
		return NoSolver, fmt.Errorf("solver name cannot be empty")
	}
	if m == nil {
		return NoSolver, fmt.Errorf("solver %q has no method", name)
	}
	if _, ok := r.solverByName[name]; ok {
		return NoSolver, fmt.Errorf("solver %q: %w", name, ErrDuplicateDeclaration)
	}
	h := SolverHandle(len(r.solvers))
	r.solvers = append(r.solvers, &Solver{Name: name, Method: m, Module: r.module})
	r.solverByName[name] = h
	return h, nil
}

// SetSolverMethod replaces the method of a solver, e.g. from a dataset file.
func (r *Registry) SetSolverMethod(s SolverHandle, m solver.Method) error {
	if r.frozen {
		return ErrAlreadyFinalized
	}
	sol, err := r.solver(s)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("solver %q has no method", sol.Name)
	}
	sol.Method = m
	return nil
}

func (r *Registry) parameter(h ParameterHandle) (*Parameter, error) {
	if h < 0 || int(h) >= len(r.parameters) {
		return nil, fmt.Errorf("parameter handle %d: %w", h, ErrUnknownHandle)
	}
	return r.parameters[h], nil
}

func (r *Registry) solver(h SolverHandle) (*Solver, error) {
	if h < 0 || int(h) >= len(r.solvers) {
		return nil, fmt.Errorf("solver handle %d: %w", h, ErrUnknownHandle)
	}
	return r.solvers[h], nil
}

// NumParameters returns the number of declared parameters.
func (r *Registry) NumParameters() int { return len(r.parameters) }

// NumInputs returns the number of declared inputs.
func (r *Registry) NumInputs() int { return len(r.inputs) }

// NumEquations returns the number of declared equations.
func (r *Registry) NumEquations() int { return len(r.equations) }

// NumSolvers returns the number of declared solvers.
func (r *Registry) NumSolvers() int { return len(r.solvers) }

// Parameter returns a parameter declaration. It panics on an unknown handle.
// The result must not be modified.
func (r *Registry) Parameter(h ParameterHandle) *Parameter { return r.parameters[h] }

// Input returns an input declaration.
func (r *Registry) Input(h InputHandle) *Input { return r.inputs[h] }

// Equation returns an equation declaration.
func (r *Registry) Equation(h EquationHandle) *Equation { return r.equations[h] }

// Solver returns a solver declaration.
func (r *Registry) Solver(h SolverHandle) *Solver { return r.solvers[h] }

// LookupParameter resolves a parameter by name.
func (r *Registry) LookupParameter(name string) (ParameterHandle, error) {
	if h, ok := r.parameterByName[name]; ok {
		return h, nil
	}
	return NoParameter, fmt.Errorf("parameter %q: %w", name, ErrUnknownName)
}

// LookupInput resolves an input by name.
func (r *Registry) LookupInput(name string) (InputHandle, error) {
	if h, ok := r.inputByName[name]; ok {
		return h, nil
	}
	return -1, fmt.Errorf("input %q: %w", name, ErrUnknownName)
}

// LookupEquation resolves an equation by name.
func (r *Registry) LookupEquation(name string) (EquationHandle, error) {
	if h, ok := r.equationByName[name]; ok {
		return h, nil
	}
	return NoEquation, fmt.Errorf("equation %q: %w", name, ErrUnknownName)
}

// LookupSolver resolves a solver by name.
func (r *Registry) LookupSolver(name string) (SolverHandle, error) {
	if h, ok := r.solverByName[name]; ok {
		return h, nil
	}
	return NoSolver, fmt.Errorf("solver %q: %w", name, ErrUnknownName)
}
