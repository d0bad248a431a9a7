package registry

import (
	"fmt"

	"github.com/specialistvlad/equagrid/internal/indexset"
	"github.com/specialistvlad/equagrid/internal/solver"
)

type (
	// ParameterHandle identifies a parameter.
	ParameterHandle int
	// InputHandle identifies an input series.
	InputHandle int
	// EquationHandle identifies an equation.
	EquationHandle int
	// SolverHandle identifies a registered solver.
	SolverHandle int
)

const (
	NoParameter ParameterHandle = -1
	NoEquation  EquationHandle  = -1
	NoSolver    SolverHandle    = -1
)

// ParameterKind is the value type of a parameter. Every kind is stored as a
// float64: booleans as 0 or 1, enums as the position of the value, times as
// Unix seconds.
type ParameterKind int

const (
	ParameterDouble ParameterKind = iota
	ParameterUInt
	ParameterBool
	ParameterEnum
	ParameterTime
)

func (k ParameterKind) String() string {
	switch k {
	case ParameterDouble:
		return "double"
	case ParameterUInt:
		return "uint"
	case ParameterBool:
		return "bool"
	case ParameterEnum:
		return "enum"
	case ParameterTime:
		return "time"
	default:
		return fmt.Sprintf("ParameterKind(%d)", int(k))
	}
}

// EquationKind distinguishes how an equation obtains its value.
type EquationKind int

const (
	// Plain equations return their value from the body.
	Plain EquationKind = iota
	// ODE equations return a derivative; the value comes from their solver.
	ODE
	// InitialValue equations are evaluated once before the first timestep.
	InitialValue
	// Cumulative equations sum another equation over an index set.
	Cumulative
	// ComputedExternally equations are assigned by another equation's body.
	ComputedExternally
)

func (k EquationKind) String() string {
	switch k {
	case Plain:
		return "plain"
	case ODE:
		return "ode"
	case InitialValue:
		return "initial value"
	case Cumulative:
		return "cumulative"
	case ComputedExternally:
		return "computed externally"
	default:
		return fmt.Sprintf("EquationKind(%d)", int(k))
	}
}

// Parameter is a typed model constant, one value per tuple of its index sets.
type Parameter struct {
	Name        string
	Unit        string
	Description string
	Kind        ParameterKind
	Default     float64
	// Min and Max are informational bounds checked only on request. Both zero
	// means unbounded.
	Min, Max float64
	// EnumValues lists the allowed names of an enum parameter.
	EnumValues []string
	Sets       []indexset.Handle
	Module     string
}

// Input is an external time series, one value per timestep per tuple of its
// index sets.
type Input struct {
	Name   string
	Unit   string
	Sets   []indexset.Handle
	Module string
}

// Conditional gates an equation on a parameter having a given value.
type Conditional struct {
	Parameter ParameterHandle
	Value     float64
}

// InitialKind selects where an equation's initial value comes from.
type InitialKind int

const (
	InitialNone InitialKind = iota
	InitialFromEquation
	InitialFromParameter
	InitialConstant
)

// InitialSource seeds an equation's value before the first timestep.
type InitialSource struct {
	Kind      InitialKind
	Equation  EquationHandle
	Parameter ParameterHandle
	Value     float64
}

// InitialEquation seeds from an InitialValue equation.
func InitialEquation(e EquationHandle) InitialSource {
	return InitialSource{Kind: InitialFromEquation, Equation: e, Parameter: NoParameter}
}

// InitialParameter seeds from a parameter.
func InitialParameter(p ParameterHandle) InitialSource {
	return InitialSource{Kind: InitialFromParameter, Equation: NoEquation, Parameter: p}
}

// InitialValueOf seeds from a constant.
func InitialValueOf(v float64) InitialSource {
	return InitialSource{Kind: InitialConstant, Equation: NoEquation, Parameter: NoParameter, Value: v}
}

// Aggregate describes a Cumulative equation: the sum of Target over every
// index of Over, each term multiplied by Weight when one is set.
type Aggregate struct {
	Target EquationHandle
	Over   indexset.Handle
	Weight ParameterHandle
}

// Equation is a declared equation and its metadata.
type Equation struct {
	Name   string
	Unit   string
	Kind   EquationKind
	Body   Body
	Module string

	Solver SolverHandle
	// Sets are the explicitly declared index sets, a lower bound for the
	// signature computed at finalization.
	Sets        []indexset.Handle
	Conditional *Conditional
	Initial     InitialSource
	Aggregate   Aggregate
	// ComputedBy is the equation whose body assigns a ComputedExternally equation.
	ComputedBy EquationHandle
}

// Solver is a named integration method that ODE equations can be assigned to.
type Solver struct {
	Name   string
	Method solver.Method
	Module string
}

// Module lets domain content declare itself into a Registry.
type Module interface {
	Name() string
	Register(r *Registry) error
}
