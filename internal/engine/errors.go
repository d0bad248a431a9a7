package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotInitialized is returned when a run is stepped before Initialize.
	ErrNotInitialized = errors.New("run is not initialized")
	// ErrFinished is returned when a finished run is stepped again.
	ErrFinished = errors.New("run is finished")
)

func formatIndices(indices []string) string {
	if len(indices) == 0 {
		return ""
	}
	return "[" + strings.Join(indices, "][") + "]"
}

// NumericError reports a NaN or infinite value produced by an equation.
type NumericError struct {
	Equation string
	// Timestep is -1 for values computed in the initial phase.
	Timestep int
	Indices  []string
	Value    float64
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("equation %s%s produced %v at timestep %d", e.Equation, formatIndices(e.Indices), e.Value, e.Timestep)
}

// SolverError reports a failed integration step.
type SolverError struct {
	Solver   string
	Timestep int
	Indices  []string
	Err      error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solver %s%s failed at timestep %d: %v", e.Solver, formatIndices(e.Indices), e.Timestep, e.Err)
}

func (e *SolverError) Unwrap() error { return e.Err }

// EvaluationError reports an equation body that panicked or read something
// it is not allowed to read at run time.
type EvaluationError struct {
	Equation string
	Timestep int
	Indices  []string
	Err      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("equation %s%s failed at timestep %d: %v", e.Equation, formatIndices(e.Indices), e.Timestep, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// readError is raised as a panic by the evaluation context and recovered at
// the batch boundary, where the equation and indices are known.
type readError struct {
	err error
}

func fail(format string, args ...any) {
	panic(readError{err: fmt.Errorf(format, args...)})
}

// BoundsError lists every parameter value outside its declared bounds.
type BoundsError struct {
	Violations []string
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("parameter values out of bounds:\n- %s", strings.Join(e.Violations, "\n- "))
}
